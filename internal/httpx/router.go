package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/AngelCh415/campaign-analyzer/internal/aggregate"
	"github.com/AngelCh415/campaign-analyzer/internal/config"
	"github.com/AngelCh415/campaign-analyzer/internal/ingest"
	"github.com/AngelCh415/campaign-analyzer/internal/metrics"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
	"github.com/AngelCh415/campaign-analyzer/internal/store"
	"github.com/AngelCh415/campaign-analyzer/internal/telemetry"
	"github.com/AngelCh415/campaign-analyzer/internal/utils"
)

// Deps are the components the API serves.
type Deps struct {
	Log      *slog.Logger
	Cfg      config.Config
	Pipeline *ingest.Pipeline
	Store    *store.MemoryStore
	Service  *metrics.Service
	Tel      *telemetry.Metrics
}

type handler struct{ Deps }

func NewRouter(d Deps) http.Handler {
	h := handler{d}
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(d.Log))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.Cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", utils.RequestIDHeader},
		ExposedHeaders: []string{utils.RequestIDHeader},
		MaxAge:         300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "ok") })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "ready") })
	mux.Method(http.MethodGet, "/metrics", d.Tel.Handler())

	mux.Post("/uploads", h.upload)
	mux.Get("/uploads", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, d.Store.Uploads()) })
	mux.Delete("/uploads/{id}", h.removeUpload)
	mux.Delete("/records", h.reset)

	mux.Post("/ingest/run", h.ingestRun)
	mux.Post("/ingest/url", h.ingestURL)
	mux.Post("/export/run", h.export)

	mux.Get("/records", query(d.Service.Records))
	mux.Get("/summary", query(d.Service.Summary))
	mux.Get("/audiences/comparison", query(d.Service.AudienceComparison))
	mux.Get("/floodlight", query(d.Service.Floodlight))
	mux.Get("/dimensions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"dimensions": aggregate.Dimensions()})
	})
	mux.Get("/tables/{dimension}", func(w http.ResponseWriter, r *http.Request) {
		page, err := d.Service.Table(r.Context(), chi.URLParam(r, "dimension"), r.URL.Query())
		respond(w, page, err)
	})
	mux.Get("/series/{interval}", func(w http.ResponseWriter, r *http.Request) {
		s, err := d.Service.Series(r.Context(), chi.URLParam(r, "interval"), r.URL.Query())
		respond(w, s, err)
	})
	mux.Get("/segments/{audienceType}", func(w http.ResponseWriter, r *http.Request) {
		rows, err := d.Service.Segments(r.Context(), chi.URLParam(r, "audienceType"), r.URL.Query())
		respond(w, rows, err)
	})

	return mux
}

// upload ingests every part of the multipart field "files".
func (h handler) upload(w http.ResponseWriter, r *http.Request) {
	limit := h.Cfg.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("bad multipart body: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, `no files in field "files"`)
		return
	}
	files := make([]ingest.File, len(parts))
	for i, fh := range parts {
		fh := fh
		files[i] = ingest.File{Name: fh.Filename, Open: func() (io.ReadCloser, error) { return fh.Open() }}
	}
	results := h.Pipeline.IngestFiles(r.Context(), files)
	writeJSON(w, ingestStatus(results), map[string]any{"uploads": results, "records": h.Store.Len()})
}

func (h handler) removeUpload(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.RemoveUpload(chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrUnknownUpload) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.Tel.SetRecords(h.Store.Len())
	writeJSON(w, http.StatusOK, map[string]any{"removed": n, "records": h.Store.Len()})
}

func (h handler) reset(w http.ResponseWriter, r *http.Request) {
	h.Store.Reset()
	h.Tel.SetRecords(0)
	w.WriteHeader(http.StatusNoContent)
}

func (h handler) ingestRun(w http.ResponseWriter, r *http.Request) {
	results, err := h.Pipeline.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploads": results, "records": h.Store.Len()})
}

func (h handler) ingestURL(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("url")
	if u == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}
	res := h.Pipeline.IngestURL(r.Context(), u)
	writeJSON(w, ingestStatus([]ingest.UploadResult{res}), res)
}

// export sends the daily rows for ?from=&to= (YYYY-MM-DD) to the sink. to
// defaults to from.
func (h handler) export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := time.Parse(models.DateLayout, q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from required (YYYY-MM-DD)")
		return
	}
	to := from
	if s := q.Get("to"); s != "" {
		if to, err = time.Parse(models.DateLayout, s); err != nil {
			writeError(w, http.StatusBadRequest, "bad to date")
			return
		}
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to before from")
		return
	}
	n, err := h.Pipeline.Export(r.Context(), from, to)
	switch {
	case errors.Is(err, ingest.ErrSinkNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"exported": n})
	}
}

// ingestStatus is 200 when any file contributed and 422 when none did.
func ingestStatus(results []ingest.UploadResult) int {
	for _, res := range results {
		if res.Err == nil {
			return http.StatusOK
		}
	}
	return http.StatusUnprocessableEntity
}

func query[T any](fn func(ctx context.Context, v url.Values) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := fn(r.Context(), r.URL.Query())
		respond(w, v, err)
	}
}

func respond(w http.ResponseWriter, v any, err error) {
	switch {
	case errors.Is(err, metrics.ErrUnknownDimension), errors.Is(err, metrics.ErrUnknownAudienceType):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	_ = enc.Encode(v)
}
