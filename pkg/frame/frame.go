package frame

import (
	"errors"
	"image"
)

// GL enum values, mirrored here so the capture side never links a GL driver.
const (
	glLuminance    = 0x1909
	glLuminance8   = 0x8040
	glRGBA         = 0x1908
	glRGBA8        = 0x8058
	glUnsignedByte = 0x1401
)

// Format describes how frame bytes are handed to the GPU.
type Format struct {
	PixelFormat    uint32
	InternalFormat uint32
	DataType       uint32
	BytesPerPixel  int
}

var (
	FormatNone = Format{}
	FormatRGBA = Format{PixelFormat: glRGBA, InternalFormat: glRGBA8, DataType: glUnsignedByte, BytesPerPixel: 4}
	FormatGray = Format{PixelFormat: glLuminance, InternalFormat: glLuminance8, DataType: glUnsignedByte, BytesPerPixel: 1}
)

func (f Format) String() string {
	switch f {
	case FormatRGBA:
		return "rgba"
	case FormatGray:
		return "gray"
	}
	return "none"
}

var ErrUnsupported = errors.New("unsupported pixel layout")

// Frame is one slot of captured image data.
// Index 0 marks a slot that has never been written.
type Frame struct {
	Index       uint64
	Timestamp   float64
	Format      Format
	Width       int
	Height      int
	BytesPerRow int
	Data        []byte
}

// Info is the part of a frame that is safe to hand out to observers.
type Info struct {
	Index     uint64
	Timestamp float64
	Width     int
	Height    int
}

func (f *Frame) Info() Info {
	return Info{Index: f.Index, Timestamp: f.Timestamp, Width: f.Width, Height: f.Height}
}

// Size returns the frame dimensions in pixels.
func (f *Frame) Size() image.Point { return image.Point{X: f.Width, Y: f.Height} }

// RowLength is the row pitch in pixels, used for GL_UNPACK_ROW_LENGTH.
func (f *Frame) RowLength() int {
	if f.Format.BytesPerPixel == 0 {
		return 0
	}
	return f.BytesPerRow / f.Format.BytesPerPixel
}

// Sample is a raw capture delivery.
type Sample struct {
	Image     image.Image
	Timestamp float64
}

// layout is the decoded geometry of an incoming image.
type layout struct {
	format Format
	w, h   int
	stride int
}

func decode(img image.Image) (layout, error) {
	if img == nil {
		return layout{}, ErrUnsupported
	}
	b := img.Bounds()
	l := layout{w: b.Dx(), h: b.Dy()}
	if l.w <= 0 || l.h <= 0 {
		return layout{}, ErrUnsupported
	}
	switch i := img.(type) {
	case *image.RGBA:
		l.format, l.stride = FormatRGBA, i.Stride
	case *image.NRGBA:
		l.format, l.stride = FormatRGBA, i.Stride
	case *image.Gray:
		l.format, l.stride = FormatGray, i.Stride
	case *image.YCbCr:
		// converted on push, tightly packed
		l.format, l.stride = FormatRGBA, l.w*4
	default:
		return layout{}, ErrUnsupported
	}
	if l.stride < l.w*l.format.BytesPerPixel || l.stride%l.format.BytesPerPixel != 0 {
		return layout{}, ErrUnsupported
	}
	return l, nil
}
