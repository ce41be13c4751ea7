package bot

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/valshi/whalewatch/internal/api"
	"github.com/valshi/whalewatch/internal/model"
	"github.com/valshi/whalewatch/internal/store"
)

// Prefs is the slice of the store the bot reads and writes.
type Prefs interface {
	GetSubscriber(ctx context.Context, userID int64, defaultThresholdUSD float64) (model.Subscriber, error)
	SetAlertsOn(ctx context.Context, userID int64, on bool, defaultThresholdUSD float64) error
	SetThreshold(ctx context.Context, userID int64, thresholdUSD, defaultThresholdUSD float64) error
	SetTopic(ctx context.Context, userID int64, topic string, defaultThresholdUSD float64) error
	SetTimezone(ctx context.Context, userID int64, tz string, defaultThresholdUSD float64) error
	RecentWhales(ctx context.Context, minNotional float64, limit int) ([]store.TradeRecord, error)
	TopBySince(ctx context.Context, sinceMs int64, limit int) ([]store.TopEntry, error)
}

// TitleResolver maps a ticker to a display title.
type TitleResolver interface {
	Resolve(ctx context.Context, ticker string) string
}

// Upstream is the slice of the exchange client the health command uses.
type Upstream interface {
	Ping(ctx context.Context) error
	Status() api.Status
}

// sender is the slice of the Telegram client the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Config holds bot configuration.
type Config struct {
	DefaultThresholdUSD float64
	MinThresholdUSD     float64
	PollInterval        time.Duration
}

// Bot serves the Telegram command surface.
type Bot struct {
	tg       *tgbotapi.BotAPI
	send     sender
	prefs    Prefs
	titles   TitleResolver
	upstream Upstream
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Bot over a connected Telegram client.
func New(tg *tgbotapi.BotAPI, prefs Prefs, titles TitleResolver, upstream Upstream, cfg Config, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		tg:       tg,
		send:     tg,
		prefs:    prefs,
		titles:   titles,
		upstream: upstream,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Run consumes Telegram updates until ctx is cancelled. Handler errors
// are logged, never fatal.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info("telegram bot started", "username", b.tg.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.tg.StopReceivingUpdates()
			b.logger.Info("telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}
