package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	errs "github.com/youruser/bannerapp/internal/errors"
	"github.com/youruser/bannerapp/internal/geometry"
	"github.com/youruser/bannerapp/internal/notify"
	"github.com/youruser/bannerapp/internal/session"
)

const cookieName = "banner_session"

const (
	// maxVisualFiles is how many visuals one upload request may carry.
	maxVisualFiles = 20
	// formOverhead covers multipart headers and boundaries on top of the
	// file bytes.
	formOverhead = 1 << 20
)

// Handler serves the banner API. Each browser gets its own session, keyed
// by the banner_session cookie.
type Handler struct {
	store     *session.Store
	maxUpload int64
	logger    *log.Logger
}

// NewHandler returns a Handler. maxUpload is the per-file limit in bytes.
func NewHandler(store *session.Store, maxUpload int64, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{store: store, maxUpload: maxUpload, logger: logger}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type stateResponse struct {
	State   session.Snapshot `json:"state"`
	Notices []notify.Notice  `json:"notices"`
	Error   *errorBody       `json:"error,omitempty"`
}

// session returns the caller's session, creating one if needed, and a
// recorder collecting the notices raised while serving this request.
func (h *Handler) session(c *gin.Context) (*session.State, *notify.Recorder) {
	id, _ := c.Cookie(cookieName)
	id, st := h.store.GetOrCreate(id)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, id, 0, "/", "", false, true)
	return st, record(c)
}

// lookup is session for read-only routes: a caller without a live session
// gets an empty one that is not stored and no cookie.
func (h *Handler) lookup(c *gin.Context) (*session.State, *notify.Recorder) {
	if id, err := c.Cookie(cookieName); err == nil {
		if st, ok := h.store.Get(id); ok {
			return st, record(c)
		}
	}
	return h.store.Blank(), record(c)
}

func record(c *gin.Context) *notify.Recorder {
	rec := &notify.Recorder{}
	c.Request = c.Request.WithContext(notify.WithSink(c.Request.Context(), rec))
	return rec
}

// limitBody caps the whole request body at n bytes.
func limitBody(c *gin.Context, n int64) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
}

// bodyError turns a failed form parse into the error to report: too large
// when the body cap tripped, fallback otherwise.
func bodyError(err error, fallback error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errs.TooLarge("the request", maxErr.Limit)
	}
	return fallback
}

func statusFor(err error) int {
	if errors.Is(err, session.ErrSuperseded) {
		return http.StatusConflict
	}
	switch errs.GetCode(err) {
	case errs.ErrCodeMissingInput, errs.ErrCodeDecode:
		return http.StatusBadRequest
	case errs.ErrCodeUnknownSize:
		return http.StatusNotFound
	case errs.ErrCodeNotReady:
		return http.StatusConflict
	case errs.ErrCodeSizeMismatch:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func (h *Handler) respond(c *gin.Context, st *session.State, rec *notify.Recorder, err error) {
	resp := stateResponse{State: st.Snapshot(), Notices: rec.Notices()}
	if resp.Notices == nil {
		resp.Notices = []notify.Notice{}
	}
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		resp.Error = &errorBody{Code: string(errs.GetCode(err)), Message: errs.UserMessage(err)}
		if errors.Is(err, session.ErrSuperseded) {
			resp.Error.Code = "SUPERSEDED"
		}
	}
	c.JSON(status, resp)
}

// readUpload reads one multipart file, enforcing the size limit.
func (h *Handler) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > h.maxUpload {
		return nil, errs.TooLarge(fh.Filename, h.maxUpload)
	}
	return data, nil
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func sizes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sizes": geometry.All()})
}

func (h *Handler) state(c *gin.Context) {
	st, rec := h.lookup(c)
	h.respond(c, st, rec, nil)
}

// uploadTemplate accepts a multipart "file" or a JSON body {"url": "..."}.
func (h *Handler) uploadTemplate(c *gin.Context) {
	st, rec := h.session(c)
	ctx := c.Request.Context()
	limitBody(c, h.maxUpload+formOverhead)

	var in session.Input
	if strings.Contains(c.ContentType(), "application/json") {
		var req struct {
			URL string `json:"url"`
		}
		missing := errs.New(errs.ErrCodeMissingInput, "send a template file or a JSON body with a url")
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respond(c, st, rec, bodyError(err, missing))
			return
		}
		if req.URL == "" {
			h.respond(c, st, rec, missing)
			return
		}
		in = session.URLInput(req.URL, h.maxUpload)
	} else {
		fh, err := c.FormFile("file")
		if err != nil {
			h.respond(c, st, rec, bodyError(err, errs.New(errs.ErrCodeMissingInput, "choose a template image to upload")))
			return
		}
		data, err := h.readUpload(fh)
		if err != nil {
			h.logger.Warn("template upload rejected", "name", fh.Filename, "err", err)
			h.respond(c, st, rec, err)
			return
		}
		in = session.BytesInput(fh.Filename, data)
	}

	h.respond(c, st, rec, st.LoadTemplate(ctx, in))
}

// uploadVisuals accepts one or more multipart "files", kept in upload order.
func (h *Handler) uploadVisuals(c *gin.Context) {
	st, rec := h.session(c)
	ctx := c.Request.Context()
	limitBody(c, maxVisualFiles*h.maxUpload+formOverhead)

	var files []*multipart.FileHeader
	form, err := c.MultipartForm()
	if err != nil {
		if tooLarge := bodyError(err, nil); tooLarge != nil {
			h.logger.Warn("visual upload rejected", "err", err)
			h.respond(c, st, rec, tooLarge)
			return
		}
	} else {
		files = form.File["files"]
		if len(files) == 0 {
			files = form.File["file"]
		}
	}
	if len(files) > maxVisualFiles {
		h.respond(c, st, rec, errs.New(errs.ErrCodeTooLarge, "send at most %d visual images at a time", maxVisualFiles))
		return
	}
	if len(files) == 0 {
		h.respond(c, st, rec, st.LoadVisuals(ctx, nil))
		return
	}

	inputs := make([]session.Input, 0, len(files))
	for _, fh := range files {
		data, err := h.readUpload(fh)
		if err != nil {
			h.logger.Warn("visual upload rejected", "name", fh.Filename, "err", err)
			h.respond(c, st, rec, err)
			return
		}
		inputs = append(inputs, session.BytesInput(fh.Filename, data))
	}
	h.respond(c, st, rec, st.LoadVisuals(ctx, inputs))
}

func (h *Handler) selectSize(c *gin.Context) {
	st, rec := h.session(c)
	h.respond(c, st, rec, st.SelectSize(c.Request.Context(), c.Param("id")))
}

func (h *Handler) preview(c *gin.Context) {
	st, rec := h.lookup(c)
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.respond(c, st, rec, errs.New(errs.ErrCodeMissingInput, "banner index must be a number"))
		return
	}
	b, err := st.Preview(c.Request.Context(), index)
	if err != nil {
		h.respond(c, st, rec, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, b.MimeType, b.Data)
}

func (h *Handler) download(c *gin.Context) {
	st, rec := h.lookup(c)
	art, err := st.Export(c.Request.Context())
	if err != nil {
		h.respond(c, st, rec, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, art.ContentType, art.Data)
}

func (h *Handler) reset(c *gin.Context) {
	st, rec := h.session(c)
	st.Reset(c.Request.Context())
	h.respond(c, st, rec, nil)
}
