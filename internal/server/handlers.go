package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/ironsheep/blueprint-parser/internal/blueprint"
	"github.com/ironsheep/blueprint-parser/internal/imaging"
	"github.com/ironsheep/blueprint-parser/internal/queue"
	"github.com/ironsheep/blueprint-parser/internal/raster"
	"github.com/ironsheep/blueprint-parser/internal/storage"
)

// multipartMemory is how much of a multipart body is held in memory before
// the rest spills to temporary files.
const multipartMemory = 8 << 20

// ColorResponse is the JSON form of GET /blueprints/{id}/color.
type ColorResponse struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	imaging.ColorSummary
}

// parseBlueprint handles POST /parseBlueprint.
func (s *Server) parseBlueprint(w http.ResponseWriter, r *http.Request) {
	cfg := s.Config()
	r.Body = http.MaxBytesReader(w, r.Body, cfg.Server.MaxUploadBytes)

	data, err := readUpload(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	p, err := readParams(r, cfg)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	grid, err := imaging.Decode(bytes.NewReader(data), cfg.Pipeline.MaxDimension)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.runJob(w, r, grid, p, data)
}

// reparse handles POST /blueprints/{id}/parse.
func (s *Server) reparse(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		notFound(w, r)
		return
	}
	cfg := s.Config()
	r.Body = http.MaxBytesReader(w, r.Body, cfg.Server.MaxUploadBytes)

	p, err := readParams(r, cfg)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	grid, err := s.store.LoadImage(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.runJob(w, r, grid, p, nil)
}

// runJob submits one request, waits for it and writes the encoded mask.
// A non-nil upload is persisted under the job's ID when storage is enabled.
func (s *Server) runJob(w http.ResponseWriter, r *http.Request, grid *raster.PixelGrid, p params, upload []byte) {
	job := s.queue.Submit(blueprint.Request{
		Grid:             grid,
		Threshold:        p.threshold,
		ErodeIterations:  p.erode,
		DilateIterations: p.dilate,
		Kernel:           p.kernel,
	})

	res, err := job.Await(r.Context())
	if err != nil {
		// The client is gone; the job still runs on the consumer.
		s.log.Debug().Str("job_id", job.ID()).Err(err).Msg("request abandoned")
		return
	}

	out, err := res.Output()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := imaging.EncodeMask(&buf, out.Mask, p.format, p.quality); err != nil {
		s.fail(w, r, err)
		return
	}

	if s.store != nil && upload != nil {
		if err := s.store.SaveUpload(job.ID(), upload); err != nil {
			s.log.Warn().Str("job_id", job.ID()).Err(err).Msg("failed to store upload")
		} else if err := s.store.SaveColor(job.ID(), out.AverageColor); err != nil {
			s.log.Warn().Str("job_id", job.ID()).Err(err).Msg("failed to store color")
		}
	}

	h := w.Header()
	h.Set("Content-Type", p.format.ContentType())
	h.Set("X-Job-ID", job.ID())
	h.Set("X-Average-Color", imaging.ColorHex(out.AverageColor))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// status handles GET /status.
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "Server is running") //nolint:errcheck
}

// stats handles GET /stats.
func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, s.queue.Stats())
}

// getUpload handles GET /blueprints/{id}.
func (s *Server) getUpload(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		notFound(w, r)
		return
	}
	f, err := s.store.OpenUpload(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// An empty name makes ServeContent sniff the type from the bytes, since
	// uploads keep their original encoding whatever the file extension.
	http.ServeContent(w, r, "", info.ModTime(), f)
}

// getColor handles GET /blueprints/{id}/color. The body is the stored
// "r,g,b,a" line unless the client asks for JSON.
func (s *Server) getColor(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		notFound(w, r)
		return
	}
	id := r.PathValue("id")
	c, err := s.store.LoadColor(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if wantsJSON(r) {
		jsonResp(w, http.StatusOK, ColorResponse{
			ID:           id,
			Value:        c.String(),
			ColorSummary: imaging.Summarize(c),
		})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, c.String()) //nolint:errcheck
}

// deleteUpload handles DELETE /blueprints/{id}.
func (s *Server) deleteUpload(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		notFound(w, r)
		return
	}
	if err := s.store.Delete(r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	io.WriteString(w, "404 - Not Found") //nolint:errcheck
}

// readUpload returns the image bytes from the multipart field "file", or the
// raw body for any other content type.
func readUpload(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var data []byte
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, &blueprint.InvalidParameterError{Field: "file", Reason: "malformed multipart body: " + err.Error()}
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, &blueprint.InvalidParameterError{Field: "file", Reason: "missing from form"}
		}
		defer f.Close()
		if data, err = io.ReadAll(f); err != nil {
			return nil, err
		}
	} else {
		var err error
		if data, err = io.ReadAll(r.Body); err != nil {
			return nil, err
		}
	}

	if len(data) == 0 {
		return nil, &blueprint.InvalidParameterError{Field: "file", Reason: "empty upload"}
	}
	return data, nil
}

// fail writes the error response for err.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	ev := s.log.Debug()
	if code >= http.StatusInternalServerError {
		ev = s.log.Error()
	}
	ev.Str("path", r.URL.Path).Int("status", code).Err(err).Msg("request failed")
	jsonErr(w, code, err.Error())
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, blueprint.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, imaging.ErrDecode):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, queue.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidID):
		return http.StatusNotFound
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, map[string]string{"error": msg})
}

