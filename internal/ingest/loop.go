package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/valshi/whalewatch/internal/api"
	"github.com/valshi/whalewatch/internal/metrics"
	"github.com/valshi/whalewatch/internal/model"
)

// Fetcher retrieves raw trades from the upstream exchange.
type Fetcher interface {
	FetchTradesSince(ctx context.Context, minTSMillis int64, limit int) ([]api.RawTrade, error)
}

// Normalizer maps raw records to canonical trades.
type Normalizer interface {
	Normalize(raw api.RawTrade) (model.Trade, error)
}

// TradeStore is the slice of the store the loop writes.
type TradeStore interface {
	InsertTrade(ctx context.Context, tr model.Trade, tags []string) (bool, error)
	Watermark(ctx context.Context) (int64, error)
	SetWatermark(ctx context.Context, tsMillis int64) error
}

// Detector tags anomalous trades before they are stored.
type Detector interface {
	Evaluate(ctx context.Context, tr model.Trade) []string
}

// Dispatcher fans alerts out to subscribers and reports deliveries. The
// subscriber snapshot is taken once per cycle and reused for every trade
// in it.
type Dispatcher interface {
	Snapshot(ctx context.Context) []model.Subscriber
	Dispatch(ctx context.Context, subs []model.Subscriber, tr model.Trade, tags []string) int
}

// Config holds loop configuration.
type Config struct {
	Interval   time.Duration // Poll interval (default: 10s)
	FetchLimit int           // Max trades per fetch (default: 1000)
	Lookback   time.Duration // Initial watermark lookback on first run (default: 10m)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:   10 * time.Second,
		FetchLimit: 1000,
		Lookback:   10 * time.Minute,
	}
}

// Status is a snapshot of loop health for the health endpoint.
type Status struct {
	Cycles        int64  `json:"cycles"`
	WatermarkMs   int64  `json:"watermark_ms"`
	LastCycle     string `json:"last_cycle,omitempty"`
	LastSuccess   string `json:"last_success,omitempty"`
	LastError     string `json:"last_error,omitempty"`
	LastErrorTime string `json:"last_error_time,omitempty"`
}

// Loop is the ingestion loop.
type Loop struct {
	cfg        Config
	fetcher    Fetcher
	normalizer Normalizer
	store      TradeStore
	detector   Detector
	dispatcher Dispatcher
	mets       *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time

	mu          sync.Mutex
	watermark   int64
	cycles      int64
	lastCycle   time.Time
	lastSuccess time.Time
	lastError   string
	lastErrorAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithClock injects the clock used for the initial watermark.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

// New creates a Loop.
func New(cfg Config, fetcher Fetcher, normalizer Normalizer, store TradeStore, detector Detector, dispatcher Dispatcher, mets *metrics.Metrics, opts ...Option) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = DefaultConfig().FetchLimit
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultConfig().Lookback
	}
	l := &Loop{
		cfg:        cfg,
		fetcher:    fetcher,
		normalizer: normalizer,
		store:      store,
		detector:   detector,
		dispatcher: dispatcher,
		mets:       mets,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start initializes the watermark and begins polling.
func (l *Loop) Start(ctx context.Context) error {
	wm, err := l.store.Watermark(ctx)
	if err != nil {
		return err
	}
	if wm == 0 {
		wm = l.now().Add(-l.cfg.Lookback).UnixMilli()
		if err := l.store.SetWatermark(ctx, wm); err != nil {
			return err
		}
	}
	l.mu.Lock()
	l.watermark = wm
	l.mu.Unlock()
	l.mets.WatermarkMs.Set(float64(wm))

	l.ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)
	go l.run()

	l.logger.Info("ingestion loop started",
		"interval", l.cfg.Interval,
		"fetch_limit", l.cfg.FetchLimit,
		"watermark_ms", wm,
	)
	return nil
}

// Stop gracefully shuts down the loop.
func (l *Loop) Stop(ctx context.Context) error {
	if l.cancel != nil {
		l.cancel()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.logger.Info("ingestion loop stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a health snapshot.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := Status{
		Cycles:      l.cycles,
		WatermarkMs: l.watermark,
		LastError:   l.lastError,
	}
	if !l.lastCycle.IsZero() {
		st.LastCycle = l.lastCycle.UTC().Format(time.RFC3339)
	}
	if !l.lastSuccess.IsZero() {
		st.LastSuccess = l.lastSuccess.UTC().Format(time.RFC3339)
	}
	if !l.lastErrorAt.IsZero() {
		st.LastErrorTime = l.lastErrorAt.UTC().Format(time.RFC3339)
	}
	return st
}

func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	l.runCycle()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.runCycle()
		}
	}
}

// runCycle executes one fetch-process-advance cycle. No failure inside a
// cycle stops the loop; a failed fetch or a failed insert leaves the
// watermark where it was and the next tick retries, with dedup absorbing
// any rows that did commit.
func (l *Loop) runCycle() {
	start := l.now()
	l.mets.PollCycles.Inc()

	l.mu.Lock()
	watermark := l.watermark
	l.mu.Unlock()

	raws, err := l.fetcher.FetchTradesSince(l.ctx, watermark, l.cfg.FetchLimit)
	if err != nil {
		l.mets.FetchFailures.Inc()
		l.recordCycle(start, err)
		l.logger.Warn("trade fetch failed", "watermark_ms", watermark, "error", err)
		return
	}

	var subs []model.Subscriber
	if len(raws) > 0 {
		subs = l.dispatcher.Snapshot(l.ctx)
	}

	var stored, dupes, malformed, alerts, insertErrs int
	maxSeen := watermark

	for _, raw := range raws {
		tr, err := l.normalizer.Normalize(raw)
		if err != nil {
			malformed++
			l.mets.TradesMalformed.Inc()
			l.logger.Debug("skipping malformed trade", "error", err)
			continue
		}

		// The upstream filter is best-effort; drop anything at or before
		// the watermark regardless of capability mode.
		if tr.TSMillis <= watermark {
			continue
		}

		// Zero-notional trades advance the watermark but are neither
		// stored nor alerted.
		if tr.NotionalUSD <= 0 {
			if tr.TSMillis > maxSeen {
				maxSeen = tr.TSMillis
			}
			continue
		}

		tags := l.detector.Evaluate(l.ctx, tr)

		inserted, err := l.store.InsertTrade(l.ctx, tr, tags)
		if err != nil {
			insertErrs++
			l.logger.Warn("trade insert failed", "trade_id", tr.ID, "error", err)
			continue
		}
		// The watermark may only move past a trade once the row is
		// committed (or already present); a failed insert holds the
		// cycle's advance so the next fetch retries the trade.
		if tr.TSMillis > maxSeen {
			maxSeen = tr.TSMillis
		}
		if !inserted {
			dupes++
			l.mets.TradesDuplicate.Inc()
			continue
		}
		stored++
		l.mets.TradesIngested.Inc()

		delivered := l.dispatcher.Dispatch(l.ctx, subs, tr, tags)
		alerts += delivered
		l.mets.AlertsSent.Add(float64(delivered))
	}

	if insertErrs > 0 {
		l.logger.Warn("watermark held, cycle had insert failures",
			"insert_errors", insertErrs,
			"watermark_ms", watermark,
		)
		maxSeen = watermark
	} else if maxSeen > watermark {
		if err := l.store.SetWatermark(l.ctx, maxSeen); err != nil {
			// Keep the in-memory advance so this process does not
			// re-alert; a restart re-processes and dedup absorbs it.
			l.logger.Warn("watermark persist failed", "watermark_ms", maxSeen, "error", err)
		}
		l.mu.Lock()
		l.watermark = maxSeen
		l.mu.Unlock()
		l.mets.WatermarkMs.Set(float64(maxSeen))
	}

	l.recordCycle(start, nil)
	l.logger.Info("poll cycle complete",
		"fetched", len(raws),
		"stored", stored,
		"duplicates", dupes,
		"malformed", malformed,
		"alerts", alerts,
		"watermark_ms", maxSeen,
		"duration", time.Since(start),
	)
}

func (l *Loop) recordCycle(start time.Time, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cycles++
	l.lastCycle = start
	if err != nil {
		l.lastError = err.Error()
		l.lastErrorAt = start
		return
	}
	l.lastSuccess = start
}
