package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zip"

	"github.com/youruser/bannerapp/internal/session"
	"github.com/youruser/bannerapp/internal/validate"
)

type client struct {
	t      *testing.T
	router *gin.Engine
	store  *session.Store
	cookie *http.Cookie
}

func newClient(t *testing.T, maxUpload int64) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := log.New(io.Discard)
	store := session.NewStore(session.Options{Validator: validate.New(validate.ModeAspect), Logger: logger}, 0)
	return &client{t: t, router: NewRouter(NewHandler(store, maxUpload, logger), logger), store: store}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == cookieName {
			c.cookie = ck
		}
	}
	return w
}

func pngBytes(t *testing.T, w, h int, col color.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.New(w, h, col)); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type upload struct {
	name string
	data []byte
}

func (c *client) upload(path, field string, files ...upload) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		fw, err := mw.CreateFormFile(field, f.name)
		if err != nil {
			c.t.Fatal(err)
		}
		fw.Write(f.data)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) stateResponse {
	t.Helper()
	var resp stateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestHealthAndSizes(t *testing.T) {
	c := newClient(t, 1<<20)

	w := c.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}

	w = c.do(httptest.NewRequest(http.MethodGet, "/api/sizes", nil))
	var body struct {
		Sizes []struct {
			SizeID string `json:"size_id"`
		} `json:"sizes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Sizes) != 3 || body.Sizes[0].SizeID != "315x186" {
		t.Fatalf("sizes = %+v", body.Sizes)
	}
}

func TestFullFlow(t *testing.T) {
	c := newClient(t, 1<<20)

	w := c.upload("/api/template", "file", upload{"bg.png", pngBytes(t, 1029, 258, color.NRGBA{R: 255, A: 255})})
	if w.Code != http.StatusOK {
		t.Fatalf("template upload = %d %s", w.Code, w.Body.String())
	}
	if resp := decodeState(t, w); resp.State.Template == nil || resp.State.Template.Width != 1029 {
		t.Fatalf("state after template = %+v", resp.State)
	}

	w = c.do(httptest.NewRequest(http.MethodPut, "/api/size/315x186", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("select size = %d %s", w.Code, w.Body.String())
	}

	w = c.upload("/api/visuals", "files",
		upload{"one.png", pngBytes(t, 315, 186, color.NRGBA{B: 255, A: 255})},
		upload{"two.png", pngBytes(t, 630, 372, color.NRGBA{G: 255, A: 255})},
	)
	resp := decodeState(t, w)
	if w.Code != http.StatusOK || len(resp.State.Visuals) != 2 || !resp.State.Ready {
		t.Fatalf("visual upload = %d %+v", w.Code, resp)
	}
	if resp.State.Visuals[0].Name != "one.png" || resp.State.Visuals[1].Name != "two.png" {
		t.Fatalf("visual order = %+v", resp.State.Visuals)
	}

	w = c.do(httptest.NewRequest(http.MethodGet, "/api/preview/2", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("preview = %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := color.NRGBAModel.Convert(img.At(205, 129)).(color.NRGBA); got.G != 255 || got.R != 0 {
		t.Errorf("preview 2 centre = %v, want green", got)
	}

	w = c.do(httptest.NewRequest(http.MethodGet, "/api/download", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("download = %d %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "banners.zip") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	data := w.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "banner_315x186_1.png" || zr.File[1].Name != "banner_315x186_2.png" {
		names := []string{}
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		t.Fatalf("archive entries = %v", names)
	}

	w = c.do(httptest.NewRequest(http.MethodPost, "/api/reset", nil))
	if resp := decodeState(t, w); w.Code != http.StatusOK || resp.State.Template != nil || resp.State.Size != nil {
		t.Fatalf("reset = %d %+v", w.Code, resp.State)
	}

	w = c.do(httptest.NewRequest(http.MethodGet, "/api/download", nil))
	resp = decodeState(t, w)
	if w.Code != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != "MISSING_INPUT" {
		t.Fatalf("download after reset = %d %+v", w.Code, resp)
	}
	if len(resp.Notices) == 0 {
		t.Error("no notice for missing input")
	}
}

func TestSingleDownloadName(t *testing.T) {
	c := newClient(t, 1<<20)
	c.upload("/api/template", "file", upload{"bg.png", pngBytes(t, 100, 50, color.NRGBA{A: 255})})
	c.do(httptest.NewRequest(http.MethodPut, "/api/size/1200x497", nil))
	c.upload("/api/visuals", "files", upload{"wide.png", pngBytes(t, 1200, 497, color.NRGBA{R: 9, A: 255})})

	w := c.do(httptest.NewRequest(http.MethodGet, "/api/download", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("download = %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "banner_1200x497.jpg") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	cfg, format, err := image.DecodeConfig(w.Body)
	if err != nil || format != "jpeg" || cfg.Width != 1200 || cfg.Height != 600 {
		t.Fatalf("output = %v %s %+v", err, format, cfg)
	}
}

func TestErrorStatuses(t *testing.T) {
	c := newClient(t, 64<<10)

	w := c.do(httptest.NewRequest(http.MethodPut, "/api/size/10x10", nil))
	if resp := decodeState(t, w); w.Code != http.StatusNotFound || resp.Error.Code != "UNKNOWN_SIZE" {
		t.Errorf("unknown size = %d %+v", w.Code, resp.Error)
	}

	c.do(httptest.NewRequest(http.MethodPut, "/api/size/232x232", nil))
	w = c.upload("/api/visuals", "files", upload{"wide.png", pngBytes(t, 315, 186, color.NRGBA{A: 255})})
	resp := decodeState(t, w)
	if w.Code != http.StatusUnprocessableEntity || resp.Error.Code != "SIZE_MISMATCH" {
		t.Errorf("mismatch = %d %+v", w.Code, resp.Error)
	}
	if !strings.Contains(resp.Error.Message, "315x186") || !strings.Contains(resp.Error.Message, "232x232") {
		t.Errorf("mismatch message %q lacks dimensions", resp.Error.Message)
	}
	if len(resp.State.Visuals) != 0 {
		t.Errorf("rejected visual kept: %+v", resp.State.Visuals)
	}

	w = c.upload("/api/template", "file", upload{"notes.txt", []byte("hello")})
	if resp := decodeState(t, w); w.Code != http.StatusBadRequest || resp.Error.Code != "DECODE_FAILED" {
		t.Errorf("bad template = %d %+v", w.Code, resp.Error)
	}

	w = c.upload("/api/template", "file", upload{"huge.png", bytes.Repeat([]byte{1}, 65<<10)})
	if resp := decodeState(t, w); w.Code != http.StatusRequestEntityTooLarge || resp.Error.Code != "TOO_LARGE" ||
		!strings.Contains(resp.Error.Message, "64 KB upload limit") {
		t.Errorf("oversized = %d %s", w.Code, w.Body.String())
	}

	w = c.upload("/api/visuals", "other")
	if resp := decodeState(t, w); w.Code != http.StatusBadRequest || resp.Error.Code != "MISSING_INPUT" {
		t.Errorf("no files = %d %+v", w.Code, resp.Error)
	}

	w = c.do(httptest.NewRequest(http.MethodGet, "/api/preview/abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad index = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/template", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if w = c.do(req); w.Code != http.StatusBadRequest {
		t.Errorf("json without url = %d", w.Code)
	}
}

func TestTemplateFromURL(t *testing.T) {
	img := pngBytes(t, 1029, 258, color.NRGBA{G: 128, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	defer srv.Close()

	c := newClient(t, 1<<20)
	req := httptest.NewRequest(http.MethodPost, "/api/template", strings.NewReader(`{"url":"`+srv.URL+`/bg.png"}`))
	req.Header.Set("Content-Type", "application/json")
	w := c.do(req)
	resp := decodeState(t, w)
	if w.Code != http.StatusOK || resp.State.Template == nil || resp.State.Template.Height != 258 {
		t.Fatalf("url template = %d %+v", w.Code, resp)
	}
}

func TestSessionsAreSeparate(t *testing.T) {
	a := newClient(t, 1<<20)
	a.upload("/api/template", "file", upload{"bg.png", pngBytes(t, 10, 10, color.NRGBA{A: 255})})

	b := &client{t: t, router: a.router, store: a.store}
	w := b.do(httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if resp := decodeState(t, w); resp.State.Template != nil {
		t.Fatal("second browser sees the first browser's template")
	}
}

func TestReadOnlyRoutesDoNotCreateSessions(t *testing.T) {
	c := newClient(t, 1<<20)
	for _, path := range []string{"/api/state", "/api/preview/1", "/api/download"} {
		w := c.do(httptest.NewRequest(http.MethodGet, path, nil))
		if len(w.Result().Cookies()) != 0 {
			t.Errorf("%s set a session cookie", path)
		}
	}
	if c.store.Len() != 0 {
		t.Fatalf("store holds %d sessions after read-only requests", c.store.Len())
	}

	c.do(httptest.NewRequest(http.MethodPut, "/api/size/315x186", nil))
	if c.store.Len() != 1 || c.cookie == nil {
		t.Fatal("selecting a size did not start a session")
	}
	w := c.do(httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if resp := decodeState(t, w); resp.State.Size == nil || resp.State.Size.SizeID != "315x186" {
		t.Errorf("state with cookie = %+v", resp.State)
	}
}

func TestRequestBodyLimits(t *testing.T) {
	c := newClient(t, 64<<10)

	w := c.upload("/api/template", "file", upload{"huge.png", bytes.Repeat([]byte{1}, 2<<20)})
	if resp := decodeState(t, w); w.Code != http.StatusRequestEntityTooLarge || resp.Error.Code != "TOO_LARGE" {
		t.Errorf("oversized body = %d %+v", w.Code, resp.Error)
	}

	files := make([]upload, maxVisualFiles+1)
	for i := range files {
		files[i] = upload{fmt.Sprintf("v%d.png", i), pngBytes(t, 4, 4, color.NRGBA{A: 255})}
	}
	w = c.upload("/api/visuals", "files", files...)
	if resp := decodeState(t, w); w.Code != http.StatusRequestEntityTooLarge || resp.Error.Code != "TOO_LARGE" {
		t.Errorf("too many visuals = %d %+v", w.Code, resp.Error)
	}
	if resp := decodeState(t, w); len(resp.State.Visuals) != 0 {
		t.Errorf("visuals stored from rejected request: %+v", resp.State.Visuals)
	}
}

func TestTemplateURLOverLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := bytes.Repeat([]byte{0}, 64<<10)
		for i := 0; i < 64; i++ {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := newClient(t, 1<<20)
	req := httptest.NewRequest(http.MethodPost, "/api/template", strings.NewReader(`{"url":"`+srv.URL+`/big.png"}`))
	req.Header.Set("Content-Type", "application/json")
	w := c.do(req)
	resp := decodeState(t, w)
	if w.Code != http.StatusRequestEntityTooLarge || resp.Error.Code != "TOO_LARGE" {
		t.Fatalf("url over limit = %d %+v", w.Code, resp.Error)
	}
	if resp.State.Template != nil {
		t.Error("template stored from an oversized download")
	}
}
