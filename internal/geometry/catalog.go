// Package geometry holds the fixed table of supported banner sizes.
//
// Every offset, radius and output format used anywhere else in the app is
// read from this table; nothing recomputes them.
package geometry

import (
	"image"

	errs "github.com/youruser/bannerapp/internal/errors"
)

const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
)

// Geometry describes how one banner size is composed.
type Geometry struct {
	SizeID        string `json:"size_id"`
	CanvasWidth   int    `json:"canvas_width"`
	CanvasHeight  int    `json:"canvas_height"`
	VisualOffsetX int    `json:"visual_offset_x"`
	VisualOffsetY int    `json:"visual_offset_y"`
	VisualWidth   int    `json:"visual_width"`
	VisualHeight  int    `json:"visual_height"`
	CornerRadius  int    `json:"corner_radius"`
	MimeType      string `json:"mime_type"`
	// JPEGQuality is 1-100 and only used when MimeType is MimeJPEG.
	JPEGQuality int `json:"jpeg_quality,omitempty"`
}

// Canvas returns the full canvas rectangle.
func (g Geometry) Canvas() image.Rectangle {
	return image.Rect(0, 0, g.CanvasWidth, g.CanvasHeight)
}

// VisualRect returns the rectangle the visual is drawn into.
func (g Geometry) VisualRect() image.Rectangle {
	return image.Rect(g.VisualOffsetX, g.VisualOffsetY,
		g.VisualOffsetX+g.VisualWidth, g.VisualOffsetY+g.VisualHeight)
}

// Ext returns the file extension (without dot) for the output format.
func (g Geometry) Ext() string {
	if g.MimeType == MimeJPEG {
		return "jpg"
	}
	return "png"
}

var catalog = []Geometry{
	{
		SizeID:        "315x186",
		CanvasWidth:   1029,
		CanvasHeight:  258,
		VisualOffsetX: 48,
		VisualOffsetY: 36,
		VisualWidth:   315,
		VisualHeight:  186,
		CornerRadius:  20,
		MimeType:      MimePNG,
	},
	{
		SizeID:        "232x232",
		CanvasWidth:   1029,
		CanvasHeight:  258,
		VisualOffsetX: 260,
		VisualOffsetY: 13,
		VisualWidth:   232,
		VisualHeight:  232,
		CornerRadius:  15,
		MimeType:      MimePNG,
	},
	{
		SizeID:        "1200x497",
		CanvasWidth:   1200,
		CanvasHeight:  600,
		VisualOffsetX: 0,
		// bottom-aligned; the visual must stay inside the 600px canvas
		VisualOffsetY: 103,
		VisualWidth:   1200,
		VisualHeight:  497,
		CornerRadius:  0,
		MimeType:      MimeJPEG,
		JPEGQuality:   90,
	},
}

// Lookup returns the geometry for sizeID.
func Lookup(sizeID string) (Geometry, error) {
	for _, g := range catalog {
		if g.SizeID == sizeID {
			return g, nil
		}
	}
	return Geometry{}, errs.New(errs.ErrCodeUnknownSize, "unknown banner size %q", sizeID)
}

// All returns every supported geometry in display order. The returned slice
// is a copy.
func All() []Geometry {
	out := make([]Geometry, len(catalog))
	copy(out, catalog)
	return out
}

// IDs returns the supported size ids in display order.
func IDs() []string {
	ids := make([]string, len(catalog))
	for i, g := range catalog {
		ids[i] = g.SizeID
	}
	return ids
}
