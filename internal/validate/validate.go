// Package validate decides whether a visual image may be placed into a
// banner geometry.
//
// Two rules exist. ModeExact requires the visual to match the geometry's
// visual rectangle pixel for pixel. ModeAspect additionally accepts any
// visual whose width/height ratio is within AspectTolerance of the
// rectangle's ratio; the compositor then stretches it into place.
// ModeAspect is the default.
package validate

import (
	"fmt"
	"image"
	"math"
	"strings"

	errs "github.com/youruser/bannerapp/internal/errors"
	"github.com/youruser/bannerapp/internal/geometry"
)

// AspectTolerance is the largest accepted |ratio difference| in ModeAspect.
const AspectTolerance = 0.01

// Mode selects the validation rule.
type Mode int

const (
	ModeAspect Mode = iota
	ModeExact
)

func (m Mode) String() string {
	if m == ModeExact {
		return "exact"
	}
	return "aspect"
}

// ParseMode parses "aspect" or "exact". An empty string means ModeAspect.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "aspect":
		return ModeAspect, nil
	case "exact":
		return ModeExact, nil
	}
	return ModeAspect, fmt.Errorf("unknown validation mode %q (want aspect or exact)", s)
}

// Validator checks visuals against a geometry. The zero value uses
// ModeAspect. Validator is stateless and safe for concurrent use.
type Validator struct {
	Mode Mode
}

// New returns a Validator using mode.
func New(mode Mode) Validator {
	return Validator{Mode: mode}
}

// Validate checks img against g. name is only used in the error message.
// A nil img is reported as missing input.
func (v Validator) Validate(img image.Image, name string, g geometry.Geometry) error {
	if img == nil {
		return errs.New(errs.ErrCodeMissingInput, "no visual image to validate")
	}
	b := img.Bounds()
	return v.Check(b.Dx(), b.Dy(), name, g)
}

// Check applies the rule to raw dimensions. It returns nil or a
// *errors.SizeMismatchError.
func (v Validator) Check(width, height int, name string, g geometry.Geometry) error {
	if v.accepts(width, height, g) {
		return nil
	}
	return &errs.SizeMismatchError{
		SizeID:         g.SizeID,
		Name:           name,
		ExpectedWidth:  g.VisualWidth,
		ExpectedHeight: g.VisualHeight,
		ActualWidth:    width,
		ActualHeight:   height,
		Exact:          v.Mode == ModeExact,
	}
}

func (v Validator) accepts(width, height int, g geometry.Geometry) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	if width == g.VisualWidth && height == g.VisualHeight {
		return true
	}
	if v.Mode == ModeExact || g.VisualHeight == 0 {
		return false
	}
	got := float64(width) / float64(height)
	want := float64(g.VisualWidth) / float64(g.VisualHeight)
	return math.Abs(got-want) < AspectTolerance
}
