package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/blueprint-parser/internal/blueprint"
	"github.com/ironsheep/blueprint-parser/internal/config"
	"github.com/ironsheep/blueprint-parser/internal/imaging"
	"github.com/ironsheep/blueprint-parser/internal/queue"
	"github.com/ironsheep/blueprint-parser/internal/storage"
)

// halfBlackPNG is a 4x4 PNG whose left two columns are black and right two
// white, so its average brightness is exactly 0.5.
func halfBlackPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if x < 2 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

// startQueue returns a queue with a running consumer that stops at cleanup.
func startQueue(t *testing.T, exec queue.Executor) *queue.Queue {
	t.Helper()
	q := queue.New(exec, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		queue.NewRunner(q, time.Millisecond, zerolog.Nop()).Run(ctx) //nolint:errcheck
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return q
}

func newTestServer(t *testing.T, cfg *config.Config, withStore bool) *Server {
	t.Helper()
	var st *storage.Store
	if withStore {
		var err error
		st, err = storage.New(filepath.Join(t.TempDir(), "uploads"), 0, storage.DefaultCachePixels)
		if err != nil {
			t.Fatalf("storage.New failed: %v", err)
		}
	}
	return New(startQueue(t, queue.ExecutorFunc(blueprint.Parse)), st, cfg, zerolog.Nop())
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

// maskPixels decodes a PNG response and reports, per pixel, whether it is
// black (foreground).
func maskPixels(t *testing.T, body []byte) [][]bool {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("response is not a PNG: %v", err)
	}
	b := img.Bounds()
	rows := make([][]bool, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		rows[y] = make([]bool, b.Dx())
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			rows[y][x] = g.Y < 128
		}
	}
	return rows
}

func assertHalfBlackMask(t *testing.T, body []byte) {
	t.Helper()
	px := maskPixels(t, body)
	if len(px) != 4 || len(px[0]) != 4 {
		t.Fatalf("mask size: got %dx%d, want 4x4", len(px[0]), len(px))
	}
	for y := range px {
		for x := range px[y] {
			if want := x < 2; px[y][x] != want {
				t.Errorf("pixel (%d,%d): foreground %v, want %v", x, y, px[y][x], want)
			}
		}
	}
}

func multipartBody(t *testing.T, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if data != nil {
		fw, err := mw.CreateFormFile("file", "plan.png")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(data) //nolint:errcheck
	}
	for k, v := range fields {
		mw.WriteField(k, v) //nolint:errcheck
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, nil, false)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "Server is running" {
		t.Errorf("body: got %q", got)
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, nil, false)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodGet, "/nothing/here"},
		{http.MethodGet, "/parseBlueprint"},
		{http.MethodPost, "/status/extra"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(s, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != http.StatusNotFound {
				t.Errorf("status: got %d, want 404", rec.Code)
			}
			if got := rec.Body.String(); got != "404 - Not Found" {
				t.Errorf("body: got %q", got)
			}
		})
	}
}

func TestParseBlueprint_RawBody(t *testing.T) {
	s := newTestServer(t, nil, false)
	req := httptest.NewRequest(http.MethodPost,
		"/parseBlueprint?erodeIterations=0&dilateIterations=0&format=png",
		bytes.NewReader(halfBlackPNG(t)))
	req.Header.Set("Content-Type", "image/png")

	rec := do(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type: got %q", ct)
	}
	if got := rec.Header().Get("X-Average-Color"); got != "#808080" {
		t.Errorf("X-Average-Color: got %q, want #808080", got)
	}
	if rec.Header().Get("X-Job-ID") == "" {
		t.Error("missing X-Job-ID")
	}
	assertHalfBlackMask(t, rec.Body.Bytes())
}

func TestParseBlueprint_DefaultFormatIsJPEG(t *testing.T) {
	s := newTestServer(t, nil, false)
	req := httptest.NewRequest(http.MethodPost, "/parseBlueprint", bytes.NewReader(halfBlackPNG(t)))

	rec := do(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type: got %q, want image/jpeg", ct)
	}
	if _, _, err := image.DecodeConfig(rec.Body); err != nil {
		t.Errorf("response does not decode: %v", err)
	}
}

func TestParseBlueprint_MultipartWithStorage(t *testing.T) {
	s := newTestServer(t, nil, true)
	upload := halfBlackPNG(t)
	body, ct := multipartBody(t, upload, map[string]string{
		"erodeIterations":  "0",
		"dilateIterations": "0",
		"format":           "png",
	})
	req := httptest.NewRequest(http.MethodPost, "/parseBlueprint", body)
	req.Header.Set("Content-Type", ct)

	rec := do(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	assertHalfBlackMask(t, rec.Body.Bytes())
	id := rec.Header().Get("X-Job-ID")

	t.Run("upload", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/blueprints/"+id, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d", rec.Code)
		}
		if !bytes.Equal(rec.Body.Bytes(), upload) {
			t.Error("stored upload differs from what was sent")
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("Content-Type: got %q, want sniffed image/png", ct)
		}
	})

	t.Run("color text", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodGet, "/blueprints/"+id+"/color", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d", rec.Code)
		}
		if got := rec.Body.String(); got != "0.5,0.5,0.5,1" {
			t.Errorf("body: got %q", got)
		}
	})

	t.Run("color json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/blueprints/"+id+"/color", nil)
		req.Header.Set("Accept", "application/json")
		rec := do(s, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d", rec.Code)
		}
		var got ColorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != id || got.Hex != "#808080" || got.Brightness != 0.5 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("reparse", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost,
			"/blueprints/"+id+"/parse?erodeIterations=0&dilateIterations=0&format=png", nil)
		rec := do(s, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
		}
		assertHalfBlackMask(t, rec.Body.Bytes())
		if rec.Header().Get("X-Job-ID") == id {
			t.Error("reparse reused the original job ID")
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(s, httptest.NewRequest(http.MethodDelete, "/blueprints/"+id, nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status: got %d", rec.Code)
		}
		rec = do(s, httptest.NewRequest(http.MethodGet, "/blueprints/"+id, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("after delete: got %d, want 404", rec.Code)
		}
	})
}

func TestParseBlueprint_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		body  []byte
		want  int
	}{
		{"threshold not a number", "threshold=abc", nil, http.StatusBadRequest},
		{"threshold NaN", "threshold=NaN", nil, http.StatusBadRequest},
		{"erode not an integer", "erodeIterations=1.5", nil, http.StatusBadRequest},
		{"negative erode", "erodeIterations=-1", nil, http.StatusBadRequest},
		{"negative dilate", "dilateIterations=-3", nil, http.StatusBadRequest},
		{"unknown format", "format=gif", nil, http.StatusBadRequest},
		{"not an image", "", []byte("definitely not a picture"), http.StatusUnsupportedMediaType},
		{"empty body", "", []byte{}, http.StatusBadRequest},
	}

	s := newTestServer(t, nil, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == nil {
				body = halfBlackPNG(t)
			}
			req := httptest.NewRequest(http.MethodPost, "/parseBlueprint?"+tt.query, bytes.NewReader(body))
			rec := do(s, req)
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type: got %q", ct)
			}
		})
	}
}

func TestParseBlueprint_MultipartMissingFile(t *testing.T) {
	s := newTestServer(t, nil, false)
	body, ct := multipartBody(t, nil, map[string]string{"threshold": "0"})
	req := httptest.NewRequest(http.MethodPost, "/parseBlueprint", body)
	req.Header.Set("Content-Type", ct)

	if rec := do(s, req); rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestParseBlueprint_MalformedMultipart(t *testing.T) {
	s := newTestServer(t, nil, false)
	req := httptest.NewRequest(http.MethodPost, "/parseBlueprint", strings.NewReader("--xyz\r\ngarbage"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")

	rec := do(s, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400 (body %s)", rec.Code, rec.Body)
	}
}

func TestParseBlueprint_MultipartTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxUploadBytes = 64
	s := newTestServer(t, cfg, false)

	body, ct := multipartBody(t, bytes.Repeat([]byte{0xff}, 4096), nil)
	req := httptest.NewRequest(http.MethodPost, "/parseBlueprint", body)
	req.Header.Set("Content-Type", ct)

	if rec := do(s, req); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status: got %d, want 413", rec.Code)
	}
}

func TestParseBlueprint_TooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxUploadBytes = 16
	s := newTestServer(t, cfg, false)

	req := httptest.NewRequest(http.MethodPost, "/parseBlueprint", bytes.NewReader(halfBlackPNG(t)))
	if rec := do(s, req); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status: got %d, want 413", rec.Code)
	}
}

func TestParseBlueprint_ProcessingFailure(t *testing.T) {
	exec := queue.ExecutorFunc(func(blueprint.Request) (blueprint.Output, error) {
		return blueprint.Output{}, errors.New("scanner on fire")
	})
	s := New(startQueue(t, exec), nil, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/parseBlueprint", bytes.NewReader(halfBlackPNG(t)))
	rec := do(s, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "scanner on fire") {
		t.Errorf("body does not carry the cause: %s", rec.Body)
	}
}

func TestParseBlueprint_QueueClosed(t *testing.T) {
	q := queue.New(queue.ExecutorFunc(blueprint.Parse), zerolog.Nop())
	q.Close()
	s := New(q, nil, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/parseBlueprint", bytes.NewReader(halfBlackPNG(t)))
	if rec := do(s, req); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rec.Code)
	}
}

func TestSetConfig_ChangesDefaults(t *testing.T) {
	s := newTestServer(t, nil, false)

	cfg := config.Default()
	cfg.Pipeline.ErodeIterations = 0
	cfg.Pipeline.DilateIterations = 0
	cfg.Output.Format = "png"
	s.SetConfig(cfg)
	s.SetConfig(nil)

	if s.Config() != cfg {
		t.Fatal("SetConfig(nil) replaced the configuration")
	}

	req := httptest.NewRequest(http.MethodPost, "/parseBlueprint", bytes.NewReader(halfBlackPNG(t)))
	rec := do(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body)
	}
	assertHalfBlackMask(t, rec.Body.Bytes())
}

func TestBlueprints_StorageDisabled(t *testing.T) {
	s := newTestServer(t, nil, false)
	id := storage.NewID()

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/blueprints/"+id, nil),
		httptest.NewRequest(http.MethodGet, "/blueprints/"+id+"/color", nil),
		httptest.NewRequest(http.MethodPost, "/blueprints/"+id+"/parse", nil),
		httptest.NewRequest(http.MethodDelete, "/blueprints/"+id, nil),
	} {
		if rec := do(s, req); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: got %d, want 404", req.Method, req.URL.Path, rec.Code)
		}
	}
}

func TestBlueprints_UnknownAndInvalidID(t *testing.T) {
	s := newTestServer(t, nil, true)

	for _, path := range []string{
		"/blueprints/" + storage.NewID(),
		"/blueprints/" + storage.NewID() + "/color",
		"/blueprints/not-a-uuid",
	} {
		if rec := do(s, httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: got %d, want 404", path, rec.Code)
		}
	}
}

func TestStats(t *testing.T) {
	s := newTestServer(t, nil, false)
	do(s, httptest.NewRequest(http.MethodPost, "/parseBlueprint", bytes.NewReader(halfBlackPNG(t))))
	do(s, httptest.NewRequest(http.MethodPost, "/parseBlueprint?erodeIterations=-1", bytes.NewReader(halfBlackPNG(t))))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/stats", nil))
	var got queue.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Completed != 1 || got.Rejected != 1 || got.Started != 1 {
		t.Errorf("got %+v, want 1 completed, 1 rejected, 1 started", got)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{&blueprint.InvalidParameterError{Field: "threshold", Reason: "x"}, http.StatusBadRequest},
		{&blueprint.ProcessingFailure{Cause: &blueprint.InvalidParameterError{Field: "kernel"}}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", imaging.ErrDecode), http.StatusUnsupportedMediaType},
		{queue.ErrClosed, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: x", storage.ErrNotFound), http.StatusNotFound},
		{storage.ErrInvalidID, http.StatusNotFound},
		{&blueprint.ProcessingFailure{Cause: errors.New("boom")}, http.StatusInternalServerError},
		{imaging.ErrEncode, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, nil, false)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "Server is running" {
		t.Errorf("body: got %q", body)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
