// Package session holds what one user has loaded (template, visuals,
// selected banner size) and runs validation, compositing and export over it.
//
// All mutation goes through LoadTemplate, LoadVisuals, SelectSize and Reset.
// Each of them drops the cached composites, so a render after any change
// always starts from scratch.
//
// Decoding happens outside the state lock. Every load takes a generation
// number when it starts; if another load of the same kind (or a Reset) has
// started by the time the decode finishes, the result is thrown away rather
// than written over newer state.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/charmbracelet/log"

	errs "github.com/youruser/bannerapp/internal/errors"
	"github.com/youruser/bannerapp/internal/export"
	"github.com/youruser/bannerapp/internal/geometry"
	imagepkg "github.com/youruser/bannerapp/internal/image"
	"github.com/youruser/bannerapp/internal/notify"
	"github.com/youruser/bannerapp/internal/validate"
)

// ErrSuperseded is returned by a load whose result was discarded because a
// newer load or a reset started while it was decoding.
var ErrSuperseded = errors.New("superseded by a newer load")

// Input is one image to load. Decode is called without the state lock held.
type Input struct {
	Name   string
	Decode func(ctx context.Context) (image.Image, error)
}

// BytesInput decodes an uploaded file.
func BytesInput(name string, data []byte) Input {
	return Input{
		Name: name,
		Decode: func(context.Context) (image.Image, error) {
			return imagepkg.DecodeBytes(data)
		},
	}
}

// URLInput downloads and decodes an image, reading at most limit bytes.
func URLInput(url string, limit int64) Input {
	return Input{
		Name: url,
		Decode: func(ctx context.Context) (image.Image, error) {
			return imagepkg.DownloadImage(ctx, url, limit)
		},
	}
}

type loaded struct {
	name string
	img  image.Image
}

// ImageInfo describes a loaded image.
type ImageInfo struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (l loaded) info() ImageInfo {
	b := l.img.Bounds()
	return ImageInfo{Name: l.name, Width: b.Dx(), Height: b.Dy()}
}

// Snapshot is a read-only view of a State.
type Snapshot struct {
	Template   *ImageInfo         `json:"template"`
	Visuals    []ImageInfo        `json:"visuals"`
	Size       *geometry.Geometry `json:"size"`
	Validation string             `json:"validation"`
	Loading    bool               `json:"loading"`
	Ready      bool               `json:"ready"`
	Composited int                `json:"composited"`
}

// Options configures a State.
type Options struct {
	Validator validate.Validator
	Naming    export.Naming
	Logger    *log.Logger
	// Sink receives notices when the context carries none.
	Sink notify.Sink
}

// State is one user's session. It is safe for concurrent use; operations
// that draw hold the lock for the whole batch so banners are produced one
// at a time, in upload order.
type State struct {
	mu sync.Mutex

	template *loaded
	visuals  []loaded
	size     *geometry.Geometry
	last     []export.Banner

	templateGen     uint64
	visualsGen      uint64
	templatePending bool
	visualsPending  bool

	surface   *imagepkg.Surface
	validator validate.Validator
	exporter  *export.Manager
	logger    *log.Logger
	sink      notify.Sink
}

// New returns an empty State.
func New(opts Options) *State {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &State{
		surface:   imagepkg.NewSurface(),
		validator: opts.Validator,
		exporter:  export.NewManager(opts.Naming, logger),
		logger:    logger,
		sink:      opts.Sink,
	}
}

func (s *State) notifier(ctx context.Context) notify.Sink {
	return notify.FromContext(ctx, s.sink)
}

// report sends err to the user. Decode and encode failures get a generic
// message; the detail goes to the log.
func (s *State) report(ctx context.Context, err error, generic string) {
	code := errs.GetCode(err)
	n := notify.Notice{Level: notify.LevelError, Code: string(code)}
	switch code {
	case errs.ErrCodeDecode, errs.ErrCodeEncode, errs.ErrCodeArchive, "":
		n.Message = generic
	case errs.ErrCodeSizeMismatch:
		n.Level = notify.LevelWarn
		n.Message = errs.UserMessage(err)
	default:
		n.Message = errs.UserMessage(err)
	}
	s.notifier(ctx).Notify(n)
}

func (s *State) success(ctx context.Context, format string, args ...any) {
	s.notifier(ctx).Notify(notify.Notice{Level: notify.LevelSuccess, Message: fmt.Sprintf(format, args...)})
}

// invalidate must be called with mu held.
func (s *State) invalidate() {
	s.last = nil
}

// LoadTemplate decodes in and makes it the template, replacing any previous
// one. On failure the previous template stays.
func (s *State) LoadTemplate(ctx context.Context, in Input) error {
	s.mu.Lock()
	s.templateGen++
	gen := s.templateGen
	s.templatePending = true
	s.mu.Unlock()

	img, err := in.Decode(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.templateGen {
		s.logger.Warn("discarding superseded template", "name", in.Name, "gen", gen, "current", s.templateGen)
		return ErrSuperseded
	}
	s.templatePending = false
	if err != nil {
		s.logger.Error("template decode failed", "name", in.Name, "err", err)
		s.report(ctx, err, "The template image could not be read. Try a PNG or JPEG file.")
		return err
	}

	s.template = &loaded{name: in.Name, img: img}
	s.invalidate()
	b := img.Bounds()
	s.logger.Info("template loaded", "name", in.Name, "width", b.Dx(), "height", b.Dy())
	s.success(ctx, "Template loaded (%dx%d).", b.Dx(), b.Dy())
	return nil
}

// LoadVisuals decodes ins, in order, and makes them the visual set. If any
// file fails to decode the previous set stays. When a size is selected,
// visuals failing validation are dropped and reported; the returned error
// then carries one *errors.SizeMismatchError per dropped visual.
func (s *State) LoadVisuals(ctx context.Context, ins []Input) error {
	if len(ins) == 0 {
		err := errs.New(errs.ErrCodeMissingInput, "choose at least one visual image")
		s.report(ctx, err, "")
		return err
	}

	s.mu.Lock()
	s.visualsGen++
	gen := s.visualsGen
	s.visualsPending = true
	s.mu.Unlock()

	decoded := make([]loaded, 0, len(ins))
	var decodeErr error
	for _, in := range ins {
		img, err := in.Decode(ctx)
		if err != nil {
			s.logger.Error("visual decode failed", "name", in.Name, "err", err)
			decodeErr = err
			break
		}
		decoded = append(decoded, loaded{name: in.Name, img: img})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.visualsGen {
		s.logger.Warn("discarding superseded visuals", "count", len(ins), "gen", gen, "current", s.visualsGen)
		return ErrSuperseded
	}
	s.visualsPending = false
	if decodeErr != nil {
		s.report(ctx, decodeErr, "A visual image could not be read. Try PNG or JPEG files.")
		return decodeErr
	}

	kept, rejected := s.filterValid(ctx, decoded)
	s.visuals = kept
	s.invalidate()
	s.logger.Info("visuals loaded", "count", len(kept), "rejected", len(rejected))
	if len(kept) > 0 {
		s.success(ctx, "%d visual image(s) loaded.", len(kept))
	}
	return errors.Join(rejected...)
}

// filterValid drops visuals that fail validation for the selected size and
// clears the surface if any were dropped. mu must be held.
func (s *State) filterValid(ctx context.Context, in []loaded) (kept []loaded, rejected []error) {
	if s.size == nil {
		return in, nil
	}
	kept = make([]loaded, 0, len(in))
	for _, v := range in {
		if err := s.validator.Validate(v.img, v.name, *s.size); err != nil {
			s.logger.Warn("visual rejected", "name", v.name, "size", s.size.SizeID, "err", err)
			s.report(ctx, err, "")
			rejected = append(rejected, err)
			continue
		}
		kept = append(kept, v)
	}
	if len(rejected) > 0 {
		s.surface.Clear()
	}
	return kept, rejected
}

// SelectSize makes sizeID the active banner size. Loaded visuals are
// validated again against it; those that no longer fit are dropped with a
// notice. An unknown id leaves the selection unchanged.
func (s *State) SelectSize(ctx context.Context, sizeID string) error {
	g, err := geometry.Lookup(sizeID)
	if err != nil {
		s.report(ctx, err, "")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.size = &g
	s.visuals, _ = s.filterValid(ctx, s.visuals)
	s.invalidate()
	s.logger.Info("size selected", "size", g.SizeID, "visuals", len(s.visuals))
	return nil
}

// ready checks that everything needed to render is present. mu must be held.
func (s *State) ready() error {
	if s.templatePending || s.visualsPending {
		return errs.New(errs.ErrCodeNotReady, "images are still loading")
	}
	if s.template == nil {
		return errs.New(errs.ErrCodeMissingInput, "upload a template image first")
	}
	if s.size == nil {
		return errs.New(errs.ErrCodeMissingInput, "select a banner size first")
	}
	if len(s.visuals) == 0 {
		return errs.New(errs.ErrCodeMissingInput, "upload at least one visual image first")
	}
	return nil
}

// Render composites every visual against the template under the selected
// size and returns the encoded banners, banner i made from visual i. The
// result is cached until the next change.
func (s *State) Render(ctx context.Context) ([]export.Banner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render(ctx)
}

func (s *State) render(ctx context.Context) ([]export.Banner, error) {
	if err := s.ready(); err != nil {
		s.report(ctx, err, "")
		return nil, err
	}
	if s.last != nil {
		return s.last, nil
	}

	g := *s.size
	out := make([]export.Banner, 0, len(s.visuals))
	for i, v := range s.visuals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.validator.Validate(v.img, v.name, g); err != nil {
			s.surface.Clear()
			s.report(ctx, err, "")
			return nil, err
		}
		if err := imagepkg.ComposeBanner(s.surface, s.template.img, v.img, g); err != nil {
			s.surface.Clear()
			s.report(ctx, err, "")
			return nil, err
		}
		b, err := s.exporter.Encode(s.surface.Image(), g, i+1, v.name)
		if err != nil {
			s.surface.Clear()
			s.report(ctx, err, "The banner could not be encoded.")
			return nil, err
		}
		out = append(out, b)
	}
	s.last = out
	s.logger.Debug("rendered banners", "size", g.SizeID, "count", len(out))
	return out, nil
}

// Preview returns banner index (1-based).
func (s *State) Preview(ctx context.Context, index int) (export.Banner, error) {
	banners, err := s.Render(ctx)
	if err != nil {
		return export.Banner{}, err
	}
	if index < 1 || index > len(banners) {
		err := errs.New(errs.ErrCodeMissingInput, "no banner %d (have %d)", index, len(banners))
		s.report(ctx, err, "")
		return export.Banner{}, err
	}
	return banners[index-1], nil
}

// Export renders and packages the banners: one image file for a single
// visual, banners.zip for several.
func (s *State) Export(ctx context.Context) (*export.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	banners, err := s.render(ctx)
	if err != nil {
		return nil, err
	}
	art, err := s.exporter.Export(ctx, banners, *s.size)
	if err != nil {
		s.report(ctx, err, "The download could not be prepared.")
		return nil, err
	}
	s.success(ctx, "Generated %s with %d banner(s).", art.Filename, len(art.Entries))
	return art, nil
}

// Reset drops everything loaded, clears the selection and the surface, and
// discards any decode still in flight.
func (s *State) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.template = nil
	s.visuals = nil
	s.size = nil
	s.invalidate()
	s.templateGen++
	s.visualsGen++
	s.templatePending = false
	s.visualsPending = false
	s.surface.Clear()
	s.logger.Info("session reset")
	s.notifier(ctx).Notify(notify.Notice{Level: notify.LevelInfo, Message: "Session reset."})
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Visuals:    make([]ImageInfo, len(s.visuals)),
		Validation: s.validator.Mode.String(),
		Loading:    s.templatePending || s.visualsPending,
		Composited: len(s.last),
	}
	if s.template != nil {
		info := s.template.info()
		snap.Template = &info
	}
	for i, v := range s.visuals {
		snap.Visuals[i] = v.info()
	}
	if s.size != nil {
		g := *s.size
		snap.Size = &g
	}
	snap.Ready = s.ready() == nil
	return snap
}

// SurfaceBlank reports whether the drawing surface is empty.
func (s *State) SurfaceBlank() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface.Blank()
}
