package osint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ErrSourceDisabled is reported as the fallback reason for sources without
// credentials.
var ErrSourceDisabled = errors.New("source disabled")

// SourceFetchError describes a failed live fetch. It is recovered by reading
// the snapshot and never escapes the pipeline.
type SourceFetchError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func (e *SourceFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: GET %s returned status %d", e.Source, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: GET %s: %v", e.Source, e.URL, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }

// Fetcher loads raw feed payloads, live or from the snapshot directory.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	snapshotDir  string
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewFetcher creates a fetcher whose live calls are bounded by cfg.Timeout.
func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 64 << 20
	}
	return &Fetcher{
		client:       &http.Client{Timeout: timeout},
		userAgent:    cfg.UserAgent,
		snapshotDir:  cfg.SnapshotDir,
		maxBodyBytes: maxBody,
		logger:       logger,
	}
}

// Live fetches and parses the live feed of src.
func (f *Fetcher) Live(ctx context.Context, src Source) ([]Finding, error) {
	fail := func(status int, err error) error {
		return &SourceFetchError{Source: src.Key(), URL: src.URL(), StatusCode: status, Err: err}
	}

	req, err := src.NewRequest(ctx, f.userAgent)
	if err != nil {
		return nil, fail(0, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	findings, err := src.Parse(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fail(0, err)
	}
	return findings, nil
}

// Snapshot parses the local snapshot file of src.
func (f *Fetcher) Snapshot(src Source) ([]Finding, error) {
	if src.SnapshotFile() == "" {
		return nil, fmt.Errorf("%s: no snapshot configured", src.Key())
	}
	path := filepath.Join(f.snapshotDir, src.SnapshotFile())
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: opening snapshot: %w", src.Key(), err)
	}
	defer file.Close()

	findings, err := src.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: reading snapshot %s: %w", src.Key(), path, err)
	}
	return findings, nil
}

// Load returns the findings of src for this cycle: the live feed when the
// source is enabled and reachable, otherwise the snapshot. The fallback
// reason is empty when the live feed was used.
func (f *Fetcher) Load(ctx context.Context, src Source) (findings []Finding, fallbackReason string, err error) {
	if src.Enabled() {
		findings, err := f.Live(ctx, src)
		if err == nil {
			return findings, "", nil
		}
		fallbackReason = err.Error()
		f.logger.Warn("Live feed fetch failed, using snapshot",
			zap.String("source", src.Key()),
			zap.String("url", src.URL()),
			zap.Error(err),
		)
	} else {
		fallbackReason = ErrSourceDisabled.Error()
	}

	findings, err = f.Snapshot(src)
	if err != nil {
		f.logger.Warn("Snapshot unavailable", zap.String("source", src.Key()), zap.Error(err))
		return nil, fallbackReason, err
	}
	f.logger.Info("Using snapshot data",
		zap.String("source", src.Key()),
		zap.String("reason", fallbackReason),
		zap.Int("findings", len(findings)),
	)
	return findings, fallbackReason, nil
}
