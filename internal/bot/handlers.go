package bot

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/valshi/whalewatch/internal/dispatch"
	"github.com/valshi/whalewatch/internal/model"
)

const (
	btnAlertsOn  = "▶️ Alerts ON"
	btnAlertsOff = "⏹ Alerts OFF"
	btnRecent    = "🧾 Recent"
	btnTop       = "🏆 Top 24h"
	btnThreshold = "💵 Set Threshold"
	btnTopic     = "🧭 Set Topic"
	btnTimezone  = "🌍 Set Timezone"
	btnMenu      = "📦 Menu/Help"

	listLimit   = 10
	linkButtons = 8
)

var mainKeyboard = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnAlertsOn),
		tgbotapi.NewKeyboardButton(btnAlertsOff),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnRecent),
		tgbotapi.NewKeyboardButton(btnTop),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnThreshold),
		tgbotapi.NewKeyboardButton(btnTopic),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnTimezone),
		tgbotapi.NewKeyboardButton(btnMenu),
	),
)

const helpText = "<b>Whalewatch — Whale Alerts for Kalshi</b>\n" +
	"Tracks large trades that may signal high conviction.\n\n" +
	"<b>Buttons:</b>\n" +
	"• <b>" + btnAlertsOn + "</b> / <b>" + btnAlertsOff + "</b>\n" +
	"• <b>" + btnRecent + "</b> — last whale trades (≥ your threshold)\n" +
	"• <b>" + btnTop + "</b> — biggest trades last 24h\n" +
	"• <b>" + btnThreshold + "</b> — send a number (e.g., 8000)\n" +
	"• <b>" + btnTopic + "</b> — macro / crypto / sports / all\n" +
	"• <b>" + btnTimezone + "</b> — send Region/City (e.g., America/New_York)\n" +
	"• <b>" + btnMenu + "</b> — show this menu"

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if msg.IsCommand() {
		args := strings.TrimSpace(msg.CommandArguments())
		switch msg.Command() {
		case "start", "help":
			b.reply(chatID, helpText, nil)
		case "on":
			b.setAlerts(ctx, chatID, userID, true)
		case "off":
			b.setAlerts(ctx, chatID, userID, false)
		case "thresh":
			if args == "" {
				b.reply(chatID, "Usage: <code>/thresh 8000</code>", nil)
				return
			}
			b.setThreshold(ctx, chatID, userID, args)
		case "topic":
			if args == "" {
				b.reply(chatID, "Usage: <code>/topic macro|crypto|sports|all</code>", nil)
				return
			}
			b.setTopic(ctx, chatID, userID, args)
		case "tz":
			b.handleTZCommand(ctx, chatID, userID, args)
		case "recent":
			b.showRecent(ctx, chatID, userID)
		case "top":
			b.showTop(ctx, chatID, userID)
		case "health":
			b.showHealth(ctx, chatID)
		default:
			b.reply(chatID, helpText, nil)
		}
		return
	}

	switch text {
	case btnAlertsOn:
		b.setAlerts(ctx, chatID, userID, true)
	case btnAlertsOff:
		b.setAlerts(ctx, chatID, userID, false)
	case btnRecent:
		b.showRecent(ctx, chatID, userID)
	case btnTop:
		b.showTop(ctx, chatID, userID)
	case btnThreshold:
		b.reply(chatID, "Send a number like <code>8000</code> for the minimum $ size you want alerts for.", nil)
	case btnTopic:
		b.reply(chatID, "Reply with one of: <code>macro</code>, <code>crypto</code>, <code>sports</code>, <code>all</code>.", nil)
	case btnTimezone:
		b.reply(chatID, "Send an IANA timezone like <code>Europe/London</code>, <code>America/New_York</code>, <code>Asia/Dubai</code>.", nil)
	case btnMenu:
		b.reply(chatID, helpText, nil)
	default:
		b.handleFreeText(ctx, chatID, userID, text)
	}
}

// handleFreeText interprets bare replies to the threshold, topic and
// timezone prompts.
func (b *Bot) handleFreeText(ctx context.Context, chatID, userID int64, text string) {
	if text == "" {
		return
	}
	if isDigits(text) {
		b.setThreshold(ctx, chatID, userID, text)
		return
	}
	if model.ValidTopic(strings.ToLower(text)) {
		b.setTopic(ctx, chatID, userID, strings.ToLower(text))
		return
	}
	if looksLikeTimezone(text) {
		b.setTimezone(ctx, chatID, userID, text)
	}
}

func (b *Bot) setAlerts(ctx context.Context, chatID, userID int64, on bool) {
	if err := b.prefs.SetAlertsOn(ctx, userID, on, b.cfg.DefaultThresholdUSD); err != nil {
		b.replyError(chatID, "update alerts", err)
		return
	}
	if on {
		b.reply(chatID, "✅ Alerts <b>ON</b>.", nil)
	} else {
		b.reply(chatID, "🛑 Alerts <b>OFF</b>.", nil)
	}
}

func (b *Bot) setThreshold(ctx context.Context, chatID, userID int64, arg string) {
	val, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		b.reply(chatID, "Send a plain number like <code>8000</code>.", nil)
		return
	}
	if val < b.cfg.MinThresholdUSD {
		b.reply(chatID, fmt.Sprintf("Min threshold is <b>%s</b> to avoid spam.", dispatch.FormatUSD(b.cfg.MinThresholdUSD)), nil)
		return
	}
	if err := b.prefs.SetThreshold(ctx, userID, val, b.cfg.DefaultThresholdUSD); err != nil {
		b.replyError(chatID, "update threshold", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ Threshold set to <b>%s</b>.", dispatch.FormatUSD(val)), nil)
}

func (b *Bot) setTopic(ctx context.Context, chatID, userID int64, arg string) {
	topic := strings.ToLower(strings.TrimSpace(arg))
	if !model.ValidTopic(topic) {
		b.reply(chatID, "Pick one of: <code>macro</code>, <code>crypto</code>, <code>sports</code>, <code>all</code>", nil)
		return
	}
	if err := b.prefs.SetTopic(ctx, userID, topic, b.cfg.DefaultThresholdUSD); err != nil {
		b.replyError(chatID, "update topic", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ Topic filter: <b>%s</b>", html.EscapeString(topic)), nil)
}

func (b *Bot) handleTZCommand(ctx context.Context, chatID, userID int64, args string) {
	if args == "" {
		sub, err := b.prefs.GetSubscriber(ctx, userID, b.cfg.DefaultThresholdUSD)
		if err != nil {
			b.replyError(chatID, "read preferences", err)
			return
		}
		b.reply(chatID, fmt.Sprintf("Your timezone: <b>%s</b>\nSet with: <code>/tz set Europe/Paris</code>", html.EscapeString(sub.Timezone)), nil)
		return
	}
	parts := strings.Fields(args)
	if len(parts) == 2 && strings.EqualFold(parts[0], "set") {
		b.setTimezone(ctx, chatID, userID, parts[1])
		return
	}
	b.reply(chatID, "Usage: <code>/tz</code> or <code>/tz set Region/City</code>", nil)
}

func (b *Bot) setTimezone(ctx context.Context, chatID, userID int64, tz string) {
	if _, err := time.LoadLocation(tz); err != nil {
		b.reply(chatID, "Invalid timezone. Use IANA names like <code>Europe/London</code> or <code>America/New_York</code>.", nil)
		return
	}
	if err := b.prefs.SetTimezone(ctx, userID, tz, b.cfg.DefaultThresholdUSD); err != nil {
		b.replyError(chatID, "update timezone", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ Timezone set to <b>%s</b>.", html.EscapeString(tz)), nil)
}

func (b *Bot) showRecent(ctx context.Context, chatID, userID int64) {
	sub, err := b.prefs.GetSubscriber(ctx, userID, b.cfg.DefaultThresholdUSD)
	if err != nil {
		b.replyError(chatID, "read preferences", err)
		return
	}
	recs, err := b.prefs.RecentWhales(ctx, sub.ThresholdUSD, listLimit)
	if err != nil {
		b.replyError(chatID, "query recent trades", err)
		return
	}
	if len(recs) == 0 {
		b.reply(chatID, "No whale trades (≥ your threshold) yet.", nil)
		return
	}

	lines := []string{fmt.Sprintf("<b>Recent whale trades (≥ %s)</b>", dispatch.FormatUSD(sub.ThresholdUSD))}
	var tickers []string
	for i, rec := range recs {
		marketTitle := strings.TrimSpace(b.titles.Resolve(ctx, rec.Ticker))
		if marketTitle == "" {
			marketTitle = rec.Ticker
		}
		line := fmt.Sprintf("%d. <b>%s</b>  (<code>%s</code>)\n   💰 %s • %d @ %d¢ • %s",
			i+1, html.EscapeString(marketTitle), html.EscapeString(rec.Ticker),
			dispatch.FormatUSD(rec.NotionalUSD), rec.Size, rec.PriceCents,
			localTime(rec.TSMillis, sub.Timezone))
		if len(rec.Tags) > 0 {
			line += fmt.Sprintf(" <i>%s</i>", html.EscapeString(strings.Join(rec.Tags, " + ")))
		}
		lines = append(lines, line)
		tickers = append(tickers, rec.Ticker)
	}
	b.reply(chatID, strings.Join(lines, "\n"), listKeyboard(tickers))
}

func (b *Bot) showTop(ctx context.Context, chatID, userID int64) {
	sub, err := b.prefs.GetSubscriber(ctx, userID, b.cfg.DefaultThresholdUSD)
	if err != nil {
		b.replyError(chatID, "read preferences", err)
		return
	}
	since := b.now().Add(-24 * time.Hour).UnixMilli()
	entries, err := b.prefs.TopBySince(ctx, since, listLimit)
	if err != nil {
		b.replyError(chatID, "query top trades", err)
		return
	}
	if len(entries) == 0 {
		b.reply(chatID, "No whale trades in the last 24h.", nil)
		return
	}

	lines := []string{"🏆 <b>Top trades (24h)</b>"}
	var tickers []string
	for i, e := range entries {
		marketTitle := strings.TrimSpace(b.titles.Resolve(ctx, e.Ticker))
		if marketTitle == "" {
			marketTitle = e.Ticker
		}
		lines = append(lines, fmt.Sprintf("%d. <b>%s</b>  (<code>%s</code>)\n   💰 %s • %s",
			i+1, html.EscapeString(marketTitle), html.EscapeString(e.Ticker),
			dispatch.FormatUSD(e.NotionalUSD), localTime(e.TSMillis, sub.Timezone)))
		tickers = append(tickers, e.Ticker)
	}
	b.reply(chatID, strings.Join(lines, "\n"), listKeyboard(tickers))
}

func (b *Bot) showHealth(ctx context.Context, chatID int64) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := b.upstream.Status()
	upstream := fmt.Sprintf("✅ host=%s min_ts=%s", html.EscapeString(status.PinnedHost), status.MinTSCapability)
	if err := b.upstream.Ping(pingCtx); err != nil {
		upstream = fmt.Sprintf("❌ %s host=%s min_ts=%s", html.EscapeString(err.Error()), html.EscapeString(status.PinnedHost), status.MinTSCapability)
	}

	b.reply(chatID, fmt.Sprintf(
		"Health:\n• Telegram: ✅\n• Kalshi API: %s\n• Poll interval: %s\n• Default thresh: %s",
		upstream, b.cfg.PollInterval, dispatch.FormatUSD(b.cfg.DefaultThresholdUSD)), nil)
}

func (b *Bot) reply(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = *markup
	} else {
		msg.ReplyMarkup = mainKeyboard
	}
	if _, err := b.send.Send(msg); err != nil {
		b.logger.Warn("telegram reply failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) replyError(chatID int64, what string, err error) {
	b.logger.Warn("bot command failed", "op", what, "error", err)
	b.reply(chatID, "Something went wrong, try again in a moment.", nil)
}

// listKeyboard builds one link button per listed ticker, capped.
func listKeyboard(tickers []string) *tgbotapi.InlineKeyboardMarkup {
	if len(tickers) == 0 {
		return nil
	}
	if len(tickers) > linkButtons {
		tickers = tickers[:linkButtons]
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, tk := range tickers {
		link := "https://kalshi.com/?search=" + url.QueryEscape(tk)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔗 Open "+strings.ToUpper(tk), link),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func localTime(tsMillis int64, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc = time.UTC
	}
	return time.UnixMilli(tsMillis).In(loc).Format("02 Jan 15:04 MST")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// looksLikeTimezone matches bare Region/City replies to the timezone
// prompt without swallowing other chat text.
func looksLikeTimezone(s string) bool {
	if strings.Count(s, "/") != 1 || strings.ContainsAny(s, " \t") {
		return false
	}
	r := rune(s[0])
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}
