package ingest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/campaign-analyzer/internal/aggregate"
	"github.com/AngelCh415/campaign-analyzer/internal/config"
	"github.com/AngelCh415/campaign-analyzer/internal/models"
	"github.com/AngelCh415/campaign-analyzer/internal/store"
	"github.com/AngelCh415/campaign-analyzer/internal/telemetry"
	"github.com/AngelCh415/campaign-analyzer/internal/utils"
)

var (
	ErrNotCSV            = errors.New("not a csv file")
	ErrEmptySource       = errors.New("no header row")
	ErrSinkNotConfigured = errors.New("sink not configured")
	ErrNoObjectSource    = errors.New("object storage not configured")
	ErrTooLarge          = errors.New("source exceeds upload limit")
)

// File is one named source handed to IngestFiles. Open is called once, from
// the worker that processes the file.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// UploadResult reports what one file contributed. Err is set when the file
// contributed nothing.
type UploadResult struct {
	models.UploadInfo
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

func failed(name string, err error) UploadResult {
	return UploadResult{UploadInfo: models.UploadInfo{Filename: name}, Err: err, Error: err.Error()}
}

type Pipeline struct {
	c   HTTPClient
	st  *store.MemoryStore
	src ObjectSource
	log *slog.Logger
	tel *telemetry.Metrics
	cfg config.Config
}

// NewPipeline wires ingestion to st. src may be nil when no bucket is
// configured; tel may be nil.
func NewPipeline(c HTTPClient, st *store.MemoryStore, src ObjectSource, log *slog.Logger, tel *telemetry.Metrics, cfg config.Config) *Pipeline {
	return &Pipeline{c: c, st: st, src: src, log: log, tel: tel, cfg: cfg}
}

// IngestFile parses, classifies and normalizes one CSV export and appends
// its records to the store under a new upload ID.
func (p *Pipeline) IngestFile(ctx context.Context, name string, r io.Reader) UploadResult {
	start := time.Now()
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		p.tel.ObserveFile("", "rejected", 0, 0, 0)
		return failed(name, fmt.Errorf("%s: %w", name, ErrNotCSV))
	}
	if err := ctx.Err(); err != nil {
		return failed(name, err)
	}
	b, err := readLimited(r, p.cfg.MaxUploadBytes())
	if errors.Is(err, ErrTooLarge) {
		p.tel.ObserveFile("", "rejected", 0, 0, time.Since(start).Seconds())
		return failed(name, fmt.Errorf("%s: %w", name, err))
	}
	if err != nil {
		p.tel.ObserveFile("", "error", 0, 0, time.Since(start).Seconds())
		return failed(name, fmt.Errorf("read %s: %w", name, err))
	}

	headers, rows := Parse(string(b), p.cfg.Ingest.FooterMarkers)
	if len(headers) == 0 {
		p.tel.ObserveFile("", "empty", 0, 0, time.Since(start).Seconds())
		return failed(name, fmt.Errorf("%s: %w", name, ErrEmptySource))
	}
	platform := Detect(headers, name)
	recs, dropped := Normalize(rows, platform, name)

	info := p.st.RegisterUpload(models.UploadInfo{
		Filename:    name,
		Platform:    platform,
		RowsParsed:  len(rows),
		RowsKept:    len(recs),
		RowsDropped: dropped,
	}, recs)

	p.log.Info("file ingested",
		slog.String("file", name),
		slog.String("upload_id", info.ID),
		slog.String("platform", string(platform)),
		slog.Int("rows_in", len(rows)),
		slog.Int("rows_kept", len(recs)),
		slog.Int("rows_dropped", dropped))
	p.tel.ObserveFile(string(platform), "ok", len(rows), dropped, time.Since(start).Seconds())
	p.tel.SetRecords(p.st.Len())
	return UploadResult{UploadInfo: info}
}

// IngestFiles ingests files concurrently, at most Ingest.Workers at a time.
// A failing file never affects the others. Results follow input order.
func (p *Pipeline) IngestFiles(ctx context.Context, files []File) []UploadResult {
	out := make([]UploadResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.cfg.Ingest.Workers, 1))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			rc, err := f.Open()
			if err != nil {
				p.log.Warn("open failed", slog.String("file", f.Name), slog.String("err", err.Error()))
				out[i] = failed(f.Name, fmt.Errorf("open %s: %w", f.Name, err))
				return nil
			}
			defer rc.Close()
			out[i] = p.IngestFile(gctx, f.Name, rc)
			if out[i].Err != nil {
				p.log.Warn("ingest failed", slog.String("file", f.Name), slog.String("err", out[i].Error))
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// IngestURL downloads a CSV export over HTTP, retrying transient failures,
// and ingests it under the last path segment of the URL.
func (p *Pipeline) IngestURL(ctx context.Context, rawURL string) UploadResult {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return failed(rawURL, fmt.Errorf("bad url %q", rawURL))
	}
	bo := utils.NewBackoff(p.cfg.Ingest.RetryBase, p.cfg.Ingest.Retries)
	body, ctype, err := fetchWithRetry(ctx, p.c, bo, rawURL, p.cfg.MaxUploadBytes())
	if err != nil {
		p.log.Warn("fetch failed", slog.String("url", rawURL), slog.String("err", err.Error()))
		if errors.Is(err, ErrTooLarge) {
			p.tel.ObserveFile("", "rejected", 0, 0, 0)
		}
		return failed(rawURL, fmt.Errorf("fetch %s: %w", rawURL, err))
	}
	name := path.Base(u.Path)
	if filepath.Ext(name) == "" {
		if mt, _, _ := mime.ParseMediaType(ctype); mt == "text/csv" {
			name += ".csv"
		}
	}
	return p.IngestFile(ctx, name, bytes.NewReader(body))
}

// IngestS3 ingests every .csv object under prefix.
func (p *Pipeline) IngestS3(ctx context.Context, prefix string) ([]UploadResult, error) {
	if p.src == nil {
		return nil, ErrNoObjectSource
	}
	keys, err := p.src.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	files := make([]File, len(keys))
	for i, k := range keys {
		k := k
		files[i] = File{Name: k, Open: func() (io.ReadCloser, error) { return p.src.Open(ctx, k) }}
	}
	return p.IngestFiles(ctx, files), nil
}

// Run ingests every configured remote source: each URL, then the S3 prefix
// when a bucket is configured.
func (p *Pipeline) Run(ctx context.Context) ([]UploadResult, error) {
	var out []UploadResult
	for _, u := range p.cfg.Ingest.SourceURLs {
		out = append(out, p.IngestURL(ctx, u))
	}
	if p.src != nil {
		res, err := p.IngestS3(ctx, p.cfg.S3.Prefix)
		if err != nil {
			return out, err
		}
		out = append(out, res...)
	}
	p.log.Info("ingest run complete", slog.Int("sources", len(out)), slog.Int("records", p.st.Len()))
	return out, nil
}

// Export posts the daily rows for [from, to] to the configured sink as a
// JSON array, signed with HMAC-SHA256 of the body in X-Signature.
func (p *Pipeline) Export(ctx context.Context, from, to time.Time) (int, error) {
	if p.cfg.SinkURL == "" || p.cfg.SinkSecret == "" {
		return 0, ErrSinkNotConfigured
	}
	recs := p.st.Query(dayUTC(from), dayUTC(to), nil)
	rows := aggregate.Table(recs, aggregate.ByDate)
	if len(rows) == 0 {
		return 0, nil
	}
	aggregate.SortedByKey(rows)
	b, err := json.Marshal(rows)
	if err != nil {
		return 0, err
	}
	mac := hmac.New(sha256.New, []byte(p.cfg.SinkSecret))
	mac.Write(b)
	sig := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.SinkURL, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", sig)
	resp, err := p.c.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("export sink: %w", errStatus{resp.StatusCode})
	}
	p.tel.Exported(len(rows))
	return len(rows), nil
}

// readLimited reads all of r, failing with ErrTooLarge rather than
// truncating when r holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, ErrTooLarge
	}
	return b, nil
}

func dayUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
