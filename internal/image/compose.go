package imagepkg

import (
	"image"

	errs "github.com/youruser/bannerapp/internal/errors"
	"github.com/youruser/bannerapp/internal/geometry"
)

// ComposeBanner draws one banner onto s: the template stretched over the
// whole canvas, then the visual stretched into the geometry's visual
// rectangle, clipped to a rounded rectangle when the geometry has a corner
// radius.
//
// The surface is cleared first and the clip is dropped before returning,
// so the result depends only on the arguments.
func ComposeBanner(s *Surface, template, visual image.Image, g geometry.Geometry) error {
	if template == nil {
		return errs.New(errs.ErrCodeNotReady, "template image is not loaded")
	}
	if visual == nil {
		return errs.New(errs.ErrCodeNotReady, "visual image is not loaded")
	}

	s.Resize(g.CanvasWidth, g.CanvasHeight)
	s.Clear()
	s.DrawStretched(template, g.Canvas())

	rect := g.VisualRect()
	if g.CornerRadius <= 0 {
		s.DrawStretched(visual, rect)
		return nil
	}
	mask := RoundedRectMask(g.Canvas(), rect, float64(g.CornerRadius))
	return s.WithClip(mask, func() error {
		s.DrawStretched(visual, rect)
		return nil
	})
}
