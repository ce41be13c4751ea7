package detect

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/valshi/whalewatch/internal/model"
)

const (
	// A trade arriving this long after the instrument's previous one
	// breaks a silence.
	gapThresholdMillis = 2 * 60 * 60 * 1000

	// Window and row cap for the median size baseline.
	medianWindow  = 24 * time.Hour
	medianCapRows = 5000

	// A size this many times the median baseline is unusual.
	sizeMultiple = 5

	// Accumulation looks for this many high-value trades inside the window,
	// the current trade included.
	accumWindowMillis = 10 * 60 * 1000
	accumMinTrades    = 3
)

// History is the slice of the store the detectors read and update.
type History interface {
	InstrumentLastTradeTS(ctx context.Context, ticker string) (int64, error)
	UpsertInstrumentLastTradeTS(ctx context.Context, ticker string, tsMillis int64) error
	RecentSizes(ctx context.Context, ticker string, sinceMs int64, limit int) ([]int, error)
	RecentHighValueCount(ctx context.Context, ticker string, sinceMs int64, minNotional float64) (int, error)
}

// Detector tags anomalous trades.
type Detector struct {
	history      History
	thresholdUSD float64
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

// WithClock injects the clock used for the median baseline window.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

// New creates a Detector. thresholdUSD is the notional floor for the
// accumulation detector.
func New(history History, thresholdUSD float64, opts ...Option) *Detector {
	d := &Detector{
		history:      history,
		thresholdUSD: thresholdUSD,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Evaluate runs all detectors against one trade and returns the tags that
// fired. A failing history lookup skips that detector for this trade
// rather than failing the trade; detection is best-effort by contract.
// Evaluate must be called before the trade is stored.
func (d *Detector) Evaluate(ctx context.Context, tr model.Trade) []string {
	var tags []string

	if fired, err := d.silentBreaker(ctx, tr); err != nil {
		d.logger.Warn("silent-breaker check failed", "ticker", tr.Ticker, "error", err)
	} else if fired {
		tags = append(tags, model.TagSilentBreaker)
	}

	if err := d.history.UpsertInstrumentLastTradeTS(ctx, tr.Ticker, tr.TSMillis); err != nil {
		d.logger.Warn("instrument state update failed", "ticker", tr.Ticker, "error", err)
	}

	if fired, err := d.unusualSize(ctx, tr); err != nil {
		d.logger.Warn("unusual-size check failed", "ticker", tr.Ticker, "error", err)
	} else if fired {
		tags = append(tags, model.TagUnusualSize)
	}

	if fired, err := d.accumulation(ctx, tr); err != nil {
		d.logger.Warn("accumulation check failed", "ticker", tr.Ticker, "error", err)
	} else if fired {
		tags = append(tags, model.TagAccumulation)
	}

	return tags
}

// silentBreaker fires when the instrument has traded before and the gap to
// this trade is at least the silence threshold.
func (d *Detector) silentBreaker(ctx context.Context, tr model.Trade) (bool, error) {
	last, err := d.history.InstrumentLastTradeTS(ctx, tr.Ticker)
	if err != nil {
		return false, err
	}
	return last > 0 && tr.TSMillis-last >= gapThresholdMillis, nil
}

// unusualSize fires when the trade's size is at least sizeMultiple times
// the instrument's 24h median size. A zero or absent baseline never fires.
func (d *Detector) unusualSize(ctx context.Context, tr model.Trade) (bool, error) {
	since := d.now().Add(-medianWindow).UnixMilli()
	sizes, err := d.history.RecentSizes(ctx, tr.Ticker, since, medianCapRows)
	if err != nil {
		return false, err
	}
	med := median(sizes)
	return med > 0 && float64(tr.Size) >= sizeMultiple*med, nil
}

// accumulation fires when the window ending at this trade holds at least
// accumMinTrades trades at or above the threshold, counting the current
// trade itself when it qualifies.
func (d *Detector) accumulation(ctx context.Context, tr model.Trade) (bool, error) {
	since := tr.TSMillis - accumWindowMillis
	count, err := d.history.RecentHighValueCount(ctx, tr.Ticker, since, d.thresholdUSD)
	if err != nil {
		return false, err
	}
	if tr.NotionalUSD >= d.thresholdUSD {
		count++
	}
	return count >= accumMinTrades, nil
}

// median returns the median of sizes, averaging the two middle values for
// even counts. Empty input yields 0.
func median(sizes []int) float64 {
	if len(sizes) == 0 {
		return 0
	}
	sorted := make([]int, len(sizes))
	copy(sorted, sizes)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}
