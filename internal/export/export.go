// Package export turns composited banners into downloadable files.
//
// A single banner is delivered as one image file; several banners are
// bundled into banners.zip with one entry per banner, in input order.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/klauspost/compress/zip"

	errs "github.com/youruser/bannerapp/internal/errors"
	"github.com/youruser/bannerapp/internal/geometry"
	"github.com/youruser/bannerapp/internal/util"
)

const (
	ArchiveName = "banners.zip"
	ArchiveMime = "application/zip"
)

// Naming selects how archive entries are named.
type Naming int

const (
	// NameByIndex names entries banner_<size>_<i>.<ext>, i 1-based.
	NameByIndex Naming = iota
	// NameBySource names entries <visual base name>_banner.<ext>.
	NameBySource
)

func (n Naming) String() string {
	if n == NameBySource {
		return "source"
	}
	return "index"
}

// ParseNaming parses "index" or "source". An empty string means NameByIndex.
func ParseNaming(s string) (Naming, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "index":
		return NameByIndex, nil
	case "source":
		return NameBySource, nil
	}
	return NameByIndex, fmt.Errorf("unknown naming %q (want index or source)", s)
}

// Banner is one encoded composite.
type Banner struct {
	Index    int    `json:"index"`
	Source   string `json:"source"`
	SizeID   string `json:"size_id"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// Artifact is what the user downloads.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
	// Entries lists the file names inside Data, in order. For a single
	// image it holds Filename only.
	Entries []string
}

// Manager encodes surfaces and bundles banners.
type Manager struct {
	Naming Naming
	logger *log.Logger
	now    func() time.Time
}

// NewManager returns a Manager. A nil logger uses log.Default().
func NewManager(naming Naming, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{Naming: naming, logger: logger, now: time.Now}
}

// EncodeImage writes img to w in the geometry's output format. JPEG uses
// the geometry's fixed quality.
func EncodeImage(w io.Writer, img image.Image, g geometry.Geometry) error {
	var err error
	switch g.MimeType {
	case geometry.MimeJPEG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(g.JPEGQuality))
	case geometry.MimePNG:
		err = imaging.Encode(w, img, imaging.PNG)
	default:
		err = fmt.Errorf("unsupported output type %q", g.MimeType)
	}
	if err != nil {
		return errs.Wrap(errs.ErrCodeEncode, err, "could not encode %s banner", g.SizeID)
	}
	return nil
}

// Encode encodes the composited surface img as banner number index
// (1-based) made from the visual file source.
func (m *Manager) Encode(img image.Image, g geometry.Geometry, index int, source string) (Banner, error) {
	var buf bytes.Buffer
	if err := EncodeImage(&buf, img, g); err != nil {
		m.logger.Error("encode failed", "size", g.SizeID, "index", index, "source", source, "err", err)
		return Banner{}, err
	}
	m.logger.Debug("encoded banner", "size", g.SizeID, "index", index, "bytes", buf.Len())
	return Banner{
		Index:    index,
		Source:   source,
		SizeID:   g.SizeID,
		MimeType: g.MimeType,
		Data:     buf.Bytes(),
	}, nil
}

// SingleName is the file name used when one banner is downloaded alone.
func SingleName(g geometry.Geometry) string {
	return fmt.Sprintf("banner_%s.%s", g.SizeID, g.Ext())
}

// EntryNames returns one archive entry name per banner, in order. Names
// never collide.
func (m *Manager) EntryNames(banners []Banner, g geometry.Geometry) []string {
	names := make([]string, len(banners))
	seen := make(map[string]bool, len(banners))
	for i, b := range banners {
		name := m.entryName(b, i+1, g)
		stem := strings.TrimSuffix(name, "."+g.Ext())
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d.%s", stem, n, g.Ext())
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

func (m *Manager) entryName(b Banner, pos int, g geometry.Geometry) string {
	index := b.Index
	if index <= 0 {
		index = pos
	}
	if m.Naming == NameBySource {
		base := util.BaseName(b.Source)
		if base == "" || base == "." || base == "/" {
			base = fmt.Sprintf("visual_%d", index)
		}
		return fmt.Sprintf("%s_banner.%s", base, g.Ext())
	}
	return fmt.Sprintf("banner_%s_%d.%s", g.SizeID, index, g.Ext())
}

// Export packages banners for download: one banner becomes a single image
// file, more become banners.zip. Bundling failures are reported with
// ErrCodeArchive.
func (m *Manager) Export(ctx context.Context, banners []Banner, g geometry.Geometry) (*Artifact, error) {
	switch len(banners) {
	case 0:
		return nil, errs.New(errs.ErrCodeMissingInput, "no banners to export")
	case 1:
		name := SingleName(g)
		return &Artifact{
			Filename:    name,
			ContentType: banners[0].MimeType,
			Data:        banners[0].Data,
			Entries:     []string{name},
		}, nil
	}

	names := m.EntryNames(banners, g)
	data, err := m.archive(ctx, banners, names)
	if err != nil {
		m.logger.Error("archive failed", "size", g.SizeID, "entries", len(banners), "err", err)
		return nil, errs.Wrap(errs.ErrCodeArchive, err, "could not create %s", ArchiveName)
	}
	m.logger.Info("archive ready", "size", g.SizeID, "entries", len(names), "bytes", len(data))
	return &Artifact{
		Filename:    ArchiveName,
		ContentType: ArchiveMime,
		Data:        data,
		Entries:     names,
	}, nil
}

func (m *Manager) archive(ctx context.Context, banners []Banner, names []string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := m.now()

	for i, b := range banners {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return nil, err
		}
		// PNG and JPEG are already compressed.
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     names[i],
			Method:   zip.Store,
			Modified: modified,
		})
		if err != nil {
			zw.Close()
			return nil, err
		}
		if _, err := w.Write(b.Data); err != nil {
			zw.Close()
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
