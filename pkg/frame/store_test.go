package frame

import (
	"image"
	"image/color"
	"testing"
)

func rgba(w, h int, fill byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = fill
	}
	return img
}

func mustStore(t *testing.T, n int) *Store {
	t.Helper()
	s, err := NewStore(n)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewStoreSlots(t *testing.T) {
	if _, err := NewStore(2); err == nil {
		t.Errorf("expected an error for 2 slots")
	}
	s := mustStore(t, 5)
	if s.Slots() != 5 {
		t.Errorf("slots = %v, want 5", s.Slots())
	}
}

func TestStoreLatestBeforePush(t *testing.T) {
	s := mustStore(t, 3)
	if f := s.Latest(); f != nil {
		t.Errorf("expected no frame, got %+v", f.Info())
	}
}

func TestStoreResolutionChange(t *testing.T) {
	s := mustStore(t, 3)

	if _, ok := s.Push(Sample{Image: rgba(640, 480, 1), Timestamp: 1}); !ok {
		t.Fatal("640x480 push rejected")
	}
	if _, ok := s.Push(Sample{Image: rgba(1280, 720, 2), Timestamp: 2}); !ok {
		t.Fatal("1280x720 push rejected")
	}

	f := s.Latest()
	if f == nil {
		t.Fatal("no frame")
	}
	if f.Size() != (image.Point{X: 1280, Y: 720}) {
		t.Errorf("size = %v, want 1280x720", f.Size())
	}
	if f.Index != 2 {
		t.Errorf("index = %v, want 2", f.Index)
	}
	if f.Timestamp != 2 {
		t.Errorf("timestamp = %v, want 2", f.Timestamp)
	}
	if f.Format != FormatRGBA {
		t.Errorf("format = %v, want rgba", f.Format)
	}
	if len(f.Data) < f.BytesPerRow*f.Height {
		t.Errorf("data is too short: %v < %v", len(f.Data), f.BytesPerRow*f.Height)
	}
}

func TestStoreLatestIsStable(t *testing.T) {
	s := mustStore(t, 3)
	s.Push(Sample{Image: rgba(4, 4, 1)})

	a, b := s.Latest(), s.Latest()
	if a != b {
		t.Errorf("expected the same frame reference")
	}

	s.Push(Sample{Image: rgba(4, 4, 2)})
	c := s.Latest()
	if c == a {
		t.Errorf("expected a new frame reference after push")
	}
	if c.Index != 2 {
		t.Errorf("index = %v, want 2", c.Index)
	}
}

func TestStoreDropsUnsupported(t *testing.T) {
	s := mustStore(t, 3)
	s.Push(Sample{Image: rgba(8, 8, 7), Timestamp: 1})
	before := s.Latest()

	tests := []struct {
		name string
		img  image.Image
	}{
		{name: "nil", img: nil},
		{name: "gray16", img: image.NewGray16(image.Rect(0, 0, 8, 8))},
		{name: "cmyk", img: image.NewCMYK(image.Rect(0, 0, 8, 8))},
		{name: "empty", img: image.NewRGBA(image.Rect(0, 0, 0, 0))},
		{name: "paletted", img: image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.Black})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := s.Push(Sample{Image: tt.img}); ok {
				t.Errorf("push of %v should be dropped", tt.name)
			}
			if f := s.Latest(); f != before || f.Index != 1 {
				t.Errorf("latest frame changed after a dropped push")
			}
		})
	}
	if st := s.Stats(); st.Dropped != uint64(len(tests)) || st.Pushed != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestStoreReusesBuffers(t *testing.T) {
	s := mustStore(t, 3)
	for i := 0; i < 9; i++ {
		s.Push(Sample{Image: rgba(16, 16, byte(i))})
		// render side keeps reading between deliveries
		s.Latest()
	}
	if st := s.Stats(); st.Reallocs != 3 {
		t.Errorf("reallocs = %v, want one per slot (3)", st.Reallocs)
	}

	s.Push(Sample{Image: rgba(32, 16, 0)})
	if st := s.Stats(); st.Reallocs != 4 {
		t.Errorf("reallocs = %v, want 4 after a size change", st.Reallocs)
	}
}

func TestStoreRowPadding(t *testing.T) {
	s := mustStore(t, 3)
	big := rgba(10, 4, 9)
	sub := big.SubImage(image.Rect(2, 1, 6, 3)).(*image.RGBA)

	if _, ok := s.Push(Sample{Image: sub}); !ok {
		t.Fatal("sub image push rejected")
	}
	f := s.Latest()
	if f.Width != 4 || f.Height != 2 {
		t.Errorf("size = %vx%v, want 4x2", f.Width, f.Height)
	}
	if f.BytesPerRow != big.Stride {
		t.Errorf("bytes per row = %v, want %v", f.BytesPerRow, big.Stride)
	}
	if f.RowLength() != 10 {
		t.Errorf("row length = %v, want 10", f.RowLength())
	}
	if f.Data[0] != 9 {
		t.Errorf("unexpected pixel value %v", f.Data[0])
	}
}

func TestStoreGray(t *testing.T) {
	s := mustStore(t, 3)
	g := image.NewGray(image.Rect(0, 0, 3, 3))
	g.SetGray(1, 1, color.Gray{Y: 200})
	s.Push(Sample{Image: g})

	f := s.Latest()
	if f.Format != FormatGray {
		t.Errorf("format = %v, want gray", f.Format)
	}
	if f.Data[1*f.BytesPerRow+1] != 200 {
		t.Errorf("pixel = %v, want 200", f.Data[4])
	}
}

func TestStoreConvertsYCbCr(t *testing.T) {
	s := mustStore(t, 3)
	img := image.NewYCbCr(image.Rect(0, 0, 4, 2), image.YCbCrSubsampleRatio420)
	for i := range img.Y {
		img.Y[i] = 128
	}
	for i := range img.Cb {
		img.Cb[i], img.Cr[i] = 128, 128
	}

	if _, ok := s.Push(Sample{Image: img}); !ok {
		t.Fatal("ycbcr push rejected")
	}
	f := s.Latest()
	if f.Format != FormatRGBA || f.BytesPerRow != 16 {
		t.Fatalf("format = %v, bytes per row = %v", f.Format, f.BytesPerRow)
	}
	for i := 0; i < len(f.Data); i += 4 {
		r, g, b, a := f.Data[i], f.Data[i+1], f.Data[i+2], f.Data[i+3]
		if r != 128 || g != 128 || b != 128 || a != 255 {
			t.Fatalf("pixel %v = (%v,%v,%v,%v), want mid gray", i/4, r, g, b, a)
		}
	}
}

// TestStoreConcurrentNoTearing runs one writer against one reader and checks
// that every observed frame is complete and indices never go backwards.
func TestStoreConcurrentNoTearing(t *testing.T) {
	const pushes = 3000
	s := mustStore(t, 3)
	img := rgba(32, 32, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for k := 1; k <= pushes; k++ {
			for i := range img.Pix {
				img.Pix[i] = byte(k)
			}
			s.Push(Sample{Image: img, Timestamp: float64(k)})
		}
	}()

	var last uint64
	check := func() {
		f := s.Latest()
		if f == nil {
			return
		}
		if f.Index == 0 {
			t.Fatalf("got an unwritten frame")
		}
		if f.Index < last {
			t.Fatalf("index went backwards: %v -> %v", last, f.Index)
		}
		last = f.Index
		want := byte(f.Index)
		for i, v := range f.Data[:f.BytesPerRow*f.Height] {
			if v != want {
				t.Fatalf("torn frame %v at byte %v: %v != %v", f.Index, i, v, want)
			}
		}
	}

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
			check()
		}
	}
	check()
	if last != pushes {
		t.Errorf("last index = %v, want %v", last, pushes)
	}
}

// The store has a single reader, here racing a writer that keeps
// switching resolutions so slots get reallocated under it.
func TestStoreReaderDuringResolutionChanges(t *testing.T) {
	const pushes = 2000
	s := mustStore(t, 3)
	sizes := []image.Point{{8, 8}, {16, 4}, {4, 12}}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for k := 1; k <= pushes; k++ {
			size := sizes[k%len(sizes)]
			s.Push(Sample{Image: rgba(size.X, size.Y, byte(k))})
		}
	}()

	var last uint64
	check := func() {
		f := s.Latest()
		if f == nil {
			return
		}
		if f.Index < last {
			t.Fatalf("index went backwards: %v -> %v", last, f.Index)
		}
		last = f.Index
		if want := sizes[f.Index%uint64(len(sizes))]; f.Size() != want {
			t.Fatalf("frame %v is %v, want %v", f.Index, f.Size(), want)
		}
		if len(f.Data) < f.BytesPerRow*f.Height {
			t.Fatalf("frame %v: %v bytes for %v rows of %v", f.Index, len(f.Data), f.Height, f.BytesPerRow)
		}
		for i, v := range f.Data[:f.BytesPerRow*f.Height] {
			if v != byte(f.Index) {
				t.Fatalf("torn frame %v at byte %v", f.Index, i)
			}
		}
	}

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
			check()
		}
	}
	check()
	if last != pushes {
		t.Errorf("last index = %v, want %v", last, pushes)
	}
	if st := s.Stats(); st.Reallocs == 0 {
		t.Errorf("no reallocations: %+v", st)
	}
}
