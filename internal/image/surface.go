package imagepkg

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Surface is the raster every banner is drawn onto. It is reused across
// composites: each composite resizes, clears and redraws it completely.
//
// A Surface is not safe for concurrent use.
type Surface struct {
	img  *image.NRGBA
	clip *image.Alpha
}

// NewSurface returns an empty 0x0 surface.
func NewSurface() *Surface {
	return &Surface{img: image.NewNRGBA(image.Rectangle{})}
}

// Resize makes the surface w x h. The pixel buffer is reallocated only when
// the size changes; contents are undefined afterwards, call Clear.
func (s *Surface) Resize(w, h int) {
	if s.img.Rect.Dx() == w && s.img.Rect.Dy() == h {
		return
	}
	s.img = image.NewNRGBA(image.Rect(0, 0, w, h))
}

// Clear sets every pixel to transparent black.
func (s *Surface) Clear() {
	clear(s.img.Pix)
}

// Bounds returns the surface rectangle.
func (s *Surface) Bounds() image.Rectangle {
	return s.img.Rect
}

// Image exposes the backing pixels. The result is only valid until the
// next Resize or composite.
func (s *Surface) Image() *image.NRGBA {
	return s.img
}

// Blank reports whether every pixel is fully transparent.
func (s *Surface) Blank() bool {
	for _, p := range s.img.Pix {
		if p != 0 {
			return false
		}
	}
	return true
}

// Clipped reports whether a clip is active.
func (s *Surface) Clipped() bool {
	return s.clip != nil
}

// WithClip constrains drawing to mask while fn runs. The previous clip is
// restored when fn returns, whatever it returns. mask must cover the
// surface bounds.
func (s *Surface) WithClip(mask *image.Alpha, fn func() error) error {
	prev := s.clip
	s.clip = mask
	defer func() { s.clip = prev }()
	return fn()
}

// DrawStretched draws src scaled to exactly fill r, through the active
// clip if there is one.
func (s *Surface) DrawStretched(src image.Image, r image.Rectangle) {
	if r.Empty() {
		return
	}
	scaled := imaging.Resize(src, r.Dx(), r.Dy(), imaging.Lanczos)
	if s.clip == nil {
		draw.Draw(s.img, r, scaled, image.Point{}, draw.Over)
		return
	}
	draw.DrawMask(s.img, r, scaled, image.Point{}, s.clip, r.Min, draw.Over)
}
