// Package dispatch fans detected whale trades out to subscribers.
//
// For each trade the dispatcher snapshots the subscriber set, filters it
// by per-user threshold and topic, and delivers to the matching users in
// parallel. Delivery is best-effort: a blocked or unreachable user is
// logged and skipped, never retried and never allowed to stall the
// ingestion loop.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valshi/whalewatch/internal/model"
)

const marketLinkBase = "https://kalshi.com/?search="

// Notifier delivers one alert message.
type Notifier interface {
	Send(userID int64, text, linkURL string) error
}

// SubscriberSource lists current subscriber preferences.
type SubscriberSource interface {
	Subscribers(ctx context.Context) ([]model.Subscriber, error)
}

// TitleResolver maps a ticker to a display title.
type TitleResolver interface {
	Resolve(ctx context.Context, ticker string) string
}

// Dispatcher routes alerts for anomalous trades to matching subscribers.
type Dispatcher struct {
	subs     SubscriberSource
	notifier Notifier
	titles   TitleResolver
	logger   *slog.Logger
}

// New creates a Dispatcher.
func New(subs SubscriberSource, notifier Notifier, titles TitleResolver, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{subs: subs, notifier: notifier, titles: titles, logger: logger}
}

// Snapshot captures the current subscriber set for one poll cycle. A
// subscriber who changes preferences mid-cycle is honored on the next
// cycle. A failed read yields an empty snapshot, logged.
func (d *Dispatcher) Snapshot(ctx context.Context) []model.Subscriber {
	subs, err := d.subs.Subscribers(ctx)
	if err != nil {
		d.logger.Warn("subscriber snapshot failed, cycle alerts dropped", "error", err)
		return nil
	}
	return subs
}

// Dispatch delivers an alert for one trade to every snapshot subscriber
// whose preferences match it, and returns the number of successful
// deliveries. Delivery failures are logged, not returned.
func (d *Dispatcher) Dispatch(ctx context.Context, subs []model.Subscriber, tr model.Trade, tags []string) int {
	var recipients []model.Subscriber
	for _, sub := range subs {
		if !sub.AlertsOn {
			continue
		}
		if tr.NotionalUSD < sub.ThresholdUSD {
			continue
		}
		if !model.TopicMatch(sub.Topic, tr.Ticker) {
			continue
		}
		recipients = append(recipients, sub)
	}
	if len(recipients) == 0 {
		return 0
	}

	marketTitle := d.titles.Resolve(ctx, tr.Ticker)
	link := marketLinkBase + url.QueryEscape(tr.Ticker)

	var delivered atomic.Int64
	var wg sync.WaitGroup
	for _, sub := range recipients {
		wg.Add(1)
		go func(sub model.Subscriber) {
			defer wg.Done()
			text := FormatAlert(tr, tags, marketTitle, sub.Timezone)
			if err := d.notifier.Send(sub.UserID, text, link); err != nil {
				d.logger.Warn("alert delivery failed", "user_id", sub.UserID, "trade_id", tr.ID, "error", err)
				return
			}
			delivered.Add(1)
		}(sub)
	}
	wg.Wait()
	return int(delivered.Load())
}

// FormatAlert renders one alert message. Timestamps render in the
// subscriber's timezone, falling back to UTC when the zone is unknown.
func FormatAlert(tr model.Trade, tags []string, marketTitle, tz string) string {
	label := "Whale"
	if len(tags) > 0 {
		label = strings.Join(tags, " + ")
	}

	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	when := time.UnixMilli(tr.TSMillis).In(loc).Format("02 Jan 2006 15:04 MST")

	var b strings.Builder
	b.WriteString("🐋 " + label + "\n")
	b.WriteString(marketTitle + "\n")
	b.WriteString(tr.Ticker + " | " + tr.Side + " | " + FormatUSD(tr.NotionalUSD) + "\n")
	b.WriteString(formatContracts(tr) + "\n")
	b.WriteString(when)
	return b.String()
}

func formatContracts(tr model.Trade) string {
	return fmt.Sprintf("%d contracts @ %d¢ (Yes %d%%)", tr.Size, tr.PriceCents, tr.PriceCents)
}

// FormatUSD renders a dollar amount rounded to whole dollars with
// thousands separators, e.g. $12,500.
func FormatUSD(v float64) string {
	n := int64(v + 0.5)
	if v < 0 {
		n = int64(v - 0.5)
	}
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := "$" + strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
