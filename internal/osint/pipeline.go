package osint

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lvonguyen/cyberguard/internal/model"
	"github.com/lvonguyen/cyberguard/internal/observability"
	"github.com/lvonguyen/cyberguard/internal/scoring"
)

// DomainRecorder persists the domain side of a finding.
type DomainRecorder interface {
	// RecordObservation appends the indicators to the named domain, creating
	// it with category when absent. It reports whether a record was created.
	RecordObservation(ctx context.Context, name string, category model.DomainCategory, inds []model.Indicator) (bool, error)
}

// AlertCreator persists the alert side of a finding.
type AlertCreator interface {
	// CreateIfAbsent stores a unless an alert with the same domain and title
	// was created within window. It reports whether a was stored.
	CreateIfAbsent(ctx context.Context, a *model.Alert, window time.Duration) (bool, error)
}

// FindingFailure records a finding that could not be persisted.
type FindingFailure struct {
	Domain string `json:"domain"`
	Error  string `json:"error"`
}

// SourceResult summarizes one source within a cycle.
type SourceResult struct {
	Fetched        int              `json:"fetched"`
	AlertsCreated  int              `json:"alertsCreated"`
	DomainsAdded   int              `json:"domainsAdded"`
	UsedFallback   bool             `json:"usedFallback"`
	FallbackReason string           `json:"fallbackReason,omitempty"`
	Failures       []FindingFailure `json:"failures,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// CycleResult summarizes one run across every source.
type CycleResult struct {
	TotalFetched  int                      `json:"totalFetched"`
	AlertsCreated int                      `json:"alertsCreated"`
	DomainsAdded  int                      `json:"domainsAdded"`
	PerSource     map[string]*SourceResult `json:"perSource"`
	StartedAt     time.Time                `json:"startedAt"`
	FinishedAt    time.Time                `json:"finishedAt"`
}

// Pipeline runs ingestion cycles.
type Pipeline struct {
	sources []Source
	fetcher *Fetcher
	domains DomainRecorder
	alerts  AlertCreator
	window  time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
	tracer  trace.Tracer
	logger  *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithMetrics records cycle metrics on m.
func WithMetrics(m *observability.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTracer records cycle spans on t.
func WithTracer(t trace.Tracer) PipelineOption {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(c clockwork.Clock) PipelineOption {
	return func(p *Pipeline) { p.clock = c }
}

// NewPipeline creates a pipeline over sources.
func NewPipeline(cfg Config, sources []Source, domains DomainRecorder, alerts AlertCreator, logger *zap.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	window := cfg.DuplicateWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	p := &Pipeline{
		sources: sources,
		fetcher: NewFetcher(cfg, logger),
		domains: domains,
		alerts:  alerts,
		window:  window,
		clock:   clockwork.NewRealClock(),
		tracer:  otel.Tracer("cyberguard/osint"),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Sources returns the configured feeds in processing order.
func (p *Pipeline) Sources() []Source {
	return p.sources
}

// RunCycle fetches every source and persists its findings. Failures are
// reported in the result and never abort the cycle.
func (p *Pipeline) RunCycle(ctx context.Context) CycleResult {
	ctx, span := p.tracer.Start(ctx, "osint.RunCycle")
	defer span.End()

	result := CycleResult{
		PerSource: make(map[string]*SourceResult, len(p.sources)),
		StartedAt: p.clock.Now(),
	}

	for _, src := range p.sources {
		sr := p.runSource(ctx, src)
		result.PerSource[src.Key()] = sr
		result.TotalFetched += sr.Fetched
		result.AlertsCreated += sr.AlertsCreated
		result.DomainsAdded += sr.DomainsAdded
	}

	result.FinishedAt = p.clock.Now()
	span.SetAttributes(
		attribute.Int("osint.fetched", result.TotalFetched),
		attribute.Int("osint.alerts_created", result.AlertsCreated),
		attribute.Int("osint.domains_added", result.DomainsAdded),
	)

	if p.metrics != nil {
		p.metrics.CyclesTotal.Inc()
		p.metrics.CycleDuration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	}

	p.logger.Info("OSINT cycle completed",
		zap.Int("fetched", result.TotalFetched),
		zap.Int("alerts_created", result.AlertsCreated),
		zap.Int("domains_added", result.DomainsAdded),
		zap.Duration("duration", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result
}

func (p *Pipeline) runSource(ctx context.Context, src Source) (sr *SourceResult) {
	sr = &SourceResult{}
	ctx, span := p.tracer.Start(ctx, "osint.source",
		trace.WithAttributes(attribute.String("osint.source", src.Key())))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			sr.Error = fmt.Sprintf("panic: %v", r)
			span.SetStatus(codes.Error, sr.Error)
			p.logger.Error("OSINT source panicked",
				zap.String("source", src.Key()),
				zap.Any("panic", r),
			)
		}
	}()

	findings, reason, err := p.fetcher.Load(ctx, src)
	if reason != "" {
		sr.UsedFallback = true
		sr.FallbackReason = reason
		if p.metrics != nil {
			p.metrics.Fallbacks.WithLabelValues(src.Key()).Inc()
		}
	}
	if err != nil {
		sr.Error = err.Error()
		span.SetStatus(codes.Error, sr.Error)
		return sr
	}

	for _, f := range findings {
		sr.Fetched++
		if p.metrics != nil {
			p.metrics.Findings.WithLabelValues(src.Key()).Inc()
		}
		created, alerted, err := p.persist(ctx, src, f)
		if err != nil {
			sr.Failures = append(sr.Failures, FindingFailure{Domain: f.Domain, Error: err.Error()})
			if p.metrics != nil {
				p.metrics.FindingFailures.WithLabelValues(src.Key()).Inc()
			}
			p.logger.Error("Failed to persist OSINT finding",
				zap.String("source", src.Key()),
				zap.String("domain", f.Domain),
				zap.Error(err),
			)
			continue
		}
		if created {
			sr.DomainsAdded++
			if p.metrics != nil {
				p.metrics.DomainsAdded.WithLabelValues(src.Key()).Inc()
			}
		}
		if alerted {
			sr.AlertsCreated++
			if p.metrics != nil {
				p.metrics.AlertsCreated.WithLabelValues(src.Key()).Inc()
			}
		}
	}

	span.SetAttributes(attribute.Int("osint.fetched", sr.Fetched))
	return sr
}

// persist applies one finding. The domain is recorded before the alert so
// a deduplicated alert still refreshes the domain's indicators.
func (p *Pipeline) persist(ctx context.Context, src Source, f Finding) (created, alerted bool, err error) {
	name := scoring.Normalize(f.Domain)
	if err := model.ValidateDomain(name); err != nil {
		return false, false, err
	}

	created, err = p.domains.RecordObservation(ctx, name, f.Category, []model.Indicator{f.Indicator})
	if err != nil {
		return false, false, err
	}

	if f.Alert == nil {
		return created, false, nil
	}
	a := &model.Alert{
		Title:       f.Alert.Title,
		Description: f.Alert.Description,
		Severity:    f.Alert.Severity,
		Category:    f.Alert.Category,
		Source:      model.AlertSourceOSINT,
		Domain:      name,
		Tags:        append([]string(nil), f.Alert.Tags...),
	}
	alerted, err = p.alerts.CreateIfAbsent(ctx, a, p.window)
	if err != nil {
		return created, false, fmt.Errorf("creating alert for %s from %s: %w", name, src.Key(), err)
	}
	return created, alerted, nil
}
