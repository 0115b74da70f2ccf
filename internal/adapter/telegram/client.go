// Package telegram sends seismic notifications through the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/couchcryptid/seismic-watch-service/internal/domain"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
	maxRetryDelay     = 10 * time.Second
)

// sender is the subset of *tgbotapi.BotAPI the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client posts MarkdownV2 messages to a single chat.
type Client struct {
	bot        sender
	chatID     int64
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewClient authenticates the bot and parses the target chat id.
func NewClient(botToken, chatID string, logger *slog.Logger) (*Client, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	logger.Info("telegram bot authorized", "bot", bot.Self.UserName)
	return newClient(bot, id, logger), nil
}

func newClient(bot sender, chatID int64, logger *slog.Logger) *Client {
	return &Client{
		bot:        bot,
		chatID:     chatID,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		logger:     logger,
	}
}

// NotifyEvent announces a strong station event.
func (c *Client) NotifyEvent(ctx context.Context, n domain.EventNotice) error {
	return c.send(ctx, formatEvent(n))
}

// NotifyEstimate announces an epicenter estimate.
func (c *Client) NotifyEstimate(ctx context.Context, est domain.EpicenterEstimate) error {
	return c.send(ctx, formatEstimate(est))
}

// NotifyError reports the first failure of a streak of failed cycles.
func (c *Client) NotifyError(ctx context.Context, cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Monitoring error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.send(ctx, text)
}

// NotifyRecovery reports the first success after a streak of failures.
func (c *Client) NotifyRecovery(ctx context.Context, failures int) error {
	text := fmt.Sprintf("✅ *Monitoring recovered* after %d consecutive failure\\(s\\)", failures)
	return c.send(ctx, text)
}

// send delivers text with exponential backoff between attempts.
func (c *Client) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	delay := c.retryDelay
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		c.logger.Warn("telegram send failed", "attempt", attempt, "error", err)
		if attempt == c.maxRetries {
			break
		}
		if !retry.SleepWithContext(ctx, delay) {
			return errors.Join(ctx.Err(), lastErr)
		}
		delay = retry.NextBackoff(delay, maxRetryDelay)
	}
	return fmt.Errorf("telegram send failed after %d attempts: %w", c.maxRetries, lastErr)
}

func formatEvent(n domain.EventNotice) string {
	var b strings.Builder
	name := n.Station
	if n.StationName != "" {
		name = fmt.Sprintf("%s (%s)", n.Station, n.StationName)
	}
	fmt.Fprintf(&b, "📍 *%s: seismic event detected*\n", escapeMarkdownV2(name))
	fmt.Fprintf(&b, "🕒 %s\n", escapeMarkdownV2(n.Timestamp.UTC().Format("2006-01-02 15:04:05 MST")))
	fmt.Fprintf(&b, "📊 Peak: `%s`, RMS: `%s`\n", escapeMarkdownV2(fmt.Sprintf("%.1f", n.Peak)), escapeMarkdownV2(fmt.Sprintf("%.4f", n.RMS)))
	fmt.Fprintf(&b, "⏱️ Duration: `%s` s\n", escapeMarkdownV2(fmt.Sprintf("%.2f", n.Duration.Seconds())))
	fmt.Fprintf(&b, "🌍 Lat: `%s`, Lon: `%s`", escapeMarkdownV2(fmt.Sprintf("%.5f", n.Latitude)), escapeMarkdownV2(fmt.Sprintf("%.5f", n.Longitude)))
	return b.String()
}

func formatEstimate(est domain.EpicenterEstimate) string {
	var b strings.Builder
	b.WriteString("🎯 *Epicenter estimate*\n")
	fmt.Fprintf(&b, "🕒 %s\n", escapeMarkdownV2(est.Timestamp.UTC().Format("2006-01-02 15:04:05.000 MST")))
	fmt.Fprintf(&b, "🌍 Lat: `%s`, Lon: `%s` ± `%s`\n",
		escapeMarkdownV2(fmt.Sprintf("%.4f", est.Latitude)),
		escapeMarkdownV2(fmt.Sprintf("%.4f", est.Longitude)),
		escapeMarkdownV2(fmt.Sprintf("%.4f", est.Uncertainty)),
	)
	if est.PlaceName != "" {
		fmt.Fprintf(&b, "🏘 %s\n", escapeMarkdownV2(est.PlaceName))
	}
	if est.WeakEventConfirmed {
		b.WriteString("ℹ️ Includes weak detections\n")
	}

	stations := append([]string(nil), est.Stations...)
	sort.SliceStable(stations, func(i, j int) bool {
		return est.TimeDifferences[stations[i]] < est.TimeDifferences[stations[j]]
	})
	for _, id := range stations {
		fmt.Fprintf(&b, "  • %s \\+%s s\n", escapeMarkdownV2(id), escapeMarkdownV2(fmt.Sprintf("%.2f", est.TimeDifferences[id])))
	}
	return strings.TrimRight(b.String(), "\n")
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
