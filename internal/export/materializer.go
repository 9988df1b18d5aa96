// Package export turns finished report jobs into downloadable files.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"storepulse/config"
	"storepulse/internal/model"
	"storepulse/internal/store"
)

// ErrNotFound is returned for report ids that were never issued.
var ErrNotFound = store.ErrNotFound

// Result is the state of a report as seen by a poller. Data and Location are
// set only for Complete reports.
type Result struct {
	Status      model.ReportStatus
	Location    string
	ContentType string
	Data        []byte
}

// Materializer renders Complete reports once and serves the same bytes on
// every later poll.
type Materializer struct {
	store    store.Store
	renderer Renderer
	dir      string
	cache    *cache.Cache
	logger   *zap.Logger

	mu sync.Mutex
}

// NewMaterializer creates the export directory and a materializer writing to it.
func NewMaterializer(st store.Store, cfg config.ExportConfig, logger *zap.Logger) (*Materializer, error) {
	renderer, err := NewRenderer(cfg.Format, cfg.Precision)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Materializer{
		store:    st,
		renderer: renderer,
		dir:      cfg.Dir,
		cache:    cache.New(ttl, 2*ttl),
		logger:   logger,
	}, nil
}

// Get returns the current state of a report, rendering it on the first poll
// after completion.
func (m *Materializer) Get(ctx context.Context, reportID string) (Result, error) {
	if cached, ok := m.cache.Get(reportID); ok {
		return cached.(Result), nil
	}

	job, err := m.store.GetJob(ctx, reportID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, ErrNotFound
		}
		return Result{}, err
	}
	if job.Status != model.ReportComplete {
		return Result{Status: job.Status}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.cache.Get(reportID); ok {
		return cached.(Result), nil
	}

	res, err := m.materialize(ctx, reportID)
	if err != nil {
		return Result{}, err
	}
	m.cache.SetDefault(reportID, res)
	return res, nil
}

// Path is where the export of a report is written.
func (m *Materializer) Path(reportID string) string {
	return filepath.Join(m.dir, fmt.Sprintf("report_%s.%s", reportID, m.renderer.Ext()))
}

func (m *Materializer) materialize(ctx context.Context, reportID string) (Result, error) {
	path := m.Path(reportID)
	res := Result{
		Status:      model.ReportComplete,
		Location:    path,
		ContentType: m.renderer.ContentType(),
	}

	// A file from an earlier process wins over a fresh render.
	if data, err := os.ReadFile(path); err == nil {
		res.Data = data
		return res, nil
	}

	entries, err := m.store.Entries(ctx, reportID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load report entries: %w", err)
	}
	data, err := m.renderer.Render(entries)
	if err != nil {
		return Result{}, fmt.Errorf("failed to render report %s: %w", reportID, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return Result{}, fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return Result{}, fmt.Errorf("failed to write export: %w", err)
	}

	m.logger.Info("report exported",
		zap.String("report_id", reportID),
		zap.String("location", path),
		zap.Int("rows", len(entries)))
	res.Data = data
	return res, nil
}
