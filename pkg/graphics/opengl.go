package graphics

import (
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/giongto35/camview/pkg/frame"
	"github.com/giongto35/camview/pkg/render"
	"github.com/go-gl/gl/v2.1/gl"
)

func initContext(getProcAddr func(name string) unsafe.Pointer) error {
	if err := gl.InitWithProcAddrFunc(getProcAddr); err != nil {
		return fmt.Errorf("gl init: %w", err)
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	return nil
}

// GLError wraps a GL error code.
type GLError uint32

func (e GLError) Error() string { return fmt.Sprintf("gl error 0x%X", uint32(e)) }

func lastError(op string) error {
	if e := gl.GetError(); e != gl.NO_ERROR {
		return fmt.Errorf("%v: %w", op, GLError(e))
	}
	return nil
}

func (s *SDL) Error() uint32 { return gl.GetError() }

func (s *SDL) NewTexture() (uint32, error) {
	var tex uint32
	gl.GenTextures(1, &tex)
	if tex == 0 {
		return 0, errors.New("no texture name")
	}
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex, lastError("texture init")
}

func (s *SDL) AllocTexture(tex uint32, f frame.Format, w, h int) error {
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(f.InternalFormat), int32(w), int32(h), 0, f.PixelFormat, f.DataType, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return lastError("texture alloc")
}

// UploadTexture replaces the texture content honoring the frame row pitch.
func (s *SDL) UploadTexture(tex uint32, f *frame.Frame) error {
	if len(f.Data) < f.BytesPerRow*f.Height || len(f.Data) == 0 {
		return errors.New("short frame buffer")
	}
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(f.RowLength()))
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(f.Width), int32(f.Height),
		f.Format.PixelFormat, f.Format.DataType, gl.Ptr(&f.Data[0]))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return lastError("texture upload")
}

func (s *SDL) DrawQuad(tex uint32, q render.Quad) error {
	gl.Enable(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.Begin(gl.TRIANGLE_STRIP)
	for _, v := range q {
		gl.TexCoord2f(v.U, v.V)
		gl.Vertex2f(v.X, v.Y)
	}
	gl.End()
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.Disable(gl.TEXTURE_2D)
	return lastError("draw quad")
}

func (s *SDL) DeleteTexture(tex uint32) { gl.DeleteTextures(1, &tex) }

func (s *SDL) NewDrawable(w, h int, depth render.Depth) (render.Drawable, error) {
	d := render.Drawable{Width: w, Height: h}
	width, height := int32(w), int32(h)

	gl.GenFramebuffers(1, &d.Framebuffer)
	gl.BindFramebuffer(gl.FRAMEBUFFER, d.Framebuffer)

	gl.GenRenderbuffers(1, &d.Color)
	gl.BindRenderbuffer(gl.RENDERBUFFER, d.Color)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.RGBA8, width, height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, d.Color)

	if depth != render.DepthNone {
		gl.GenRenderbuffers(1, &d.Depth)
		gl.BindRenderbuffer(gl.RENDERBUFFER, d.Depth)
		format, attachment := uint32(gl.DEPTH_COMPONENT24), uint32(gl.DEPTH_ATTACHMENT)
		if depth == render.Depth24Stencil8 {
			format, attachment = gl.DEPTH24_STENCIL8, gl.DEPTH_STENCIL_ATTACHMENT
		}
		gl.RenderbufferStorage(gl.RENDERBUFFER, format, width, height)
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, attachment, gl.RENDERBUFFER, d.Depth)
	}
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		s.DeleteDrawable(d)
		return render.Drawable{}, fmt.Errorf("framebuffer incomplete: 0x%X", status)
	}
	return d, lastError("framebuffer init")
}

func (s *SDL) DeleteDrawable(d render.Drawable) {
	if d.Depth != 0 {
		gl.DeleteRenderbuffers(1, &d.Depth)
	}
	if d.Color != 0 {
		gl.DeleteRenderbuffers(1, &d.Color)
	}
	gl.DeleteFramebuffers(1, &d.Framebuffer)
}

func (s *SDL) BindDrawable(d render.Drawable) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, d.Framebuffer)
	gl.Viewport(0, 0, int32(d.Width), int32(d.Height))
	gl.ClearColor(0, 0, 0, 1)
	mask := uint32(gl.COLOR_BUFFER_BIT)
	if d.Depth != 0 {
		mask |= gl.DEPTH_BUFFER_BIT | gl.STENCIL_BUFFER_BIT
	}
	gl.Clear(mask)
}

// Present blits the drawable into dst of the window, dst is top-down.
func (s *SDL) Present(d render.Drawable, dst image.Rectangle) error {
	_, wh := s.DrawableSize()
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, d.Framebuffer)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	filter := uint32(gl.NEAREST)
	if dst.Dx() != d.Width || dst.Dy() != d.Height {
		filter = gl.LINEAR
	}
	gl.BlitFramebuffer(
		0, 0, int32(d.Width), int32(d.Height),
		int32(dst.Min.X), int32(wh-dst.Max.Y), int32(dst.Max.X), int32(wh-dst.Min.Y),
		gl.COLOR_BUFFER_BIT, filter)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return lastError("present")
}

func GLInfo() (version, vendor, renderer, glsl string) {
	return gl.GoStr(gl.GetString(gl.VERSION)),
		gl.GoStr(gl.GetString(gl.VENDOR)),
		gl.GoStr(gl.GetString(gl.RENDERER)),
		gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION))
}
