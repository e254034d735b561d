package frame

import (
	"fmt"
	"image"
	"sync/atomic"

	"golang.org/x/image/draw"
)

const MinSlots = 3

// Store is a lock-free ring of frame slots shared by exactly one writer
// (the capture delivery loop) and one reader (the render loop).
//
// The writer fills a slot that is neither the published one nor the one
// held by the reader and then publishes it with a single atomic store.
// The reader announces the slot it is about to read and re-checks that
// it is still the published one, so a slot is never written while read.
type Store struct {
	slots []Frame

	ready   atomic.Int64 // published slot, -1 before the first push
	reading atomic.Int64 // slot held by the reader, -1 if none

	seq uint64 // writer side only

	pushed   atomic.Uint64
	dropped  atomic.Uint64
	reallocs atomic.Uint64
}

type Stats struct {
	Pushed   uint64
	Dropped  uint64
	Reallocs uint64
}

func NewStore(n int) (*Store, error) {
	if n < MinSlots {
		return nil, fmt.Errorf("frame store needs at least %d slots, got %d", MinSlots, n)
	}
	s := &Store{slots: make([]Frame, n)}
	s.ready.Store(-1)
	s.reading.Store(-1)
	return s, nil
}

// Push copies the sample into the next free slot and publishes it.
// Samples with an unsupported layout are dropped and false is returned.
// Push must not be called concurrently with itself.
func (s *Store) Push(sample Sample) (Info, bool) {
	l, err := decode(sample.Image)
	if err != nil {
		s.dropped.Add(1)
		return Info{}, false
	}
	src, ok := pixels(sample.Image, l)
	if !ok {
		s.dropped.Add(1)
		return Info{}, false
	}

	i := s.next()
	slot := &s.slots[i]
	if slot.Width != l.w || slot.Height != l.h || slot.BytesPerRow != l.stride || len(slot.Data) < l.stride*l.h {
		slot.Data = make([]byte, l.stride*l.h)
		s.reallocs.Add(1)
	}

	if src != nil {
		copy(slot.Data, src)
	} else {
		dst := &image.RGBA{Pix: slot.Data, Stride: l.stride, Rect: image.Rect(0, 0, l.w, l.h)}
		draw.Draw(dst, dst.Rect, sample.Image, sample.Image.Bounds().Min, draw.Src)
	}

	s.seq++
	slot.Index = s.seq
	slot.Timestamp = sample.Timestamp
	slot.Format = l.format
	slot.Width, slot.Height = l.w, l.h
	slot.BytesPerRow = l.stride

	info := slot.Info()
	s.ready.Store(int64(i))
	s.pushed.Add(1)
	return info, true
}

// Latest returns the most recently published frame or nil if nothing
// was pushed yet. The pointer stays the same until a newer frame is
// published and remains safe to read until the next Latest call.
func (s *Store) Latest() *Frame {
	for {
		r := s.ready.Load()
		if r < 0 {
			return nil
		}
		s.reading.Store(r)
		if s.ready.Load() == r {
			return &s.slots[r]
		}
	}
}

// Slots returns the ring size.
func (s *Store) Slots() int { return len(s.slots) }

func (s *Store) Stats() Stats {
	return Stats{Pushed: s.pushed.Load(), Dropped: s.dropped.Load(), Reallocs: s.reallocs.Load()}
}

// next picks the slot after the published one in ring order,
// skipping the one held by the reader.
func (s *Store) next() int {
	n := len(s.slots)
	i := int(s.ready.Load()+1) % n
	if int64(i) == s.reading.Load() {
		i = (i + 1) % n
	}
	return i
}

// pixels returns the contiguous source bytes of img for a direct copy,
// nil for images that need a conversion pass.
func pixels(img image.Image, l layout) ([]byte, bool) {
	var pix []byte
	var off int
	at := img.Bounds().Min
	switch i := img.(type) {
	case *image.RGBA:
		pix, off = i.Pix, i.PixOffset(at.X, at.Y)
	case *image.NRGBA:
		pix, off = i.Pix, i.PixOffset(at.X, at.Y)
	case *image.Gray:
		pix, off = i.Pix, i.PixOffset(at.X, at.Y)
	default:
		return nil, true
	}
	n := l.stride*(l.h-1) + l.w*l.format.BytesPerPixel
	if off < 0 || off+n > len(pix) {
		return nil, false
	}
	return pix[off : off+n], true
}
