// Package telegram sends quick-market expiry notifications and answers bot commands.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/quickodds/internal/format"
	"github.com/rewired-gh/quickodds/internal/logger"
	"github.com/rewired-gh/quickodds/internal/models"
	"github.com/rewired-gh/quickodds/internal/session"
)

// Board is the read side of the market desk used by bot commands.
type Board interface {
	Markets(ctx context.Context) ([]session.Listing, error)
	Snapshot() (models.Snapshot, bool)
}

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands polls for updates in a goroutine and answers /ping,
// /odds and /markets. It returns immediately; polling stops when ctx is cancelled.
func (c *Client) ListenForCommands(ctx context.Context, board Board) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(ctx, update.Message, board)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(ctx context.Context, msg *tgbotapi.Message, board Board) {
	text, ok := commandReply(ctx, msg.Command(), board)
	if !ok {
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = "MarkdownV2"
	if _, err := c.bot.Send(reply); err != nil {
		logger.Warn("Failed to answer /%s: %v", msg.Command(), err)
	}
}

// commandReply renders the answer to a bot command. ok is false for unknown commands.
func commandReply(ctx context.Context, command string, board Board) (string, bool) {
	switch command {
	case "ping":
		return "Pong", true
	case "odds":
		snap, open := board.Snapshot()
		if !open {
			return escapeMarkdownV2(session.ErrNoSession.Error()), true
		}
		return formatSnapshot(snap), true
	case "markets":
		listings, err := board.Markets(ctx)
		if err != nil {
			return escapeMarkdownV2("Markets unavailable: " + err.Error()), true
		}
		return formatMarkets(listings), true
	}
	return "", false
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendExpiry announces that a quick market's countdown reached zero.
func (c *Client) SendExpiry(e models.Expiry) error {
	return c.sendMarkdownV2(formatExpiry(e))
}

func formatExpiry(e models.Expiry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏁 *%s*\n", escapeMarkdownV2(e.Market.Title))
	fmt.Fprintf(&b, "📅 Closed: %s\n", escapeMarkdownV2(e.ClosedAt.UTC().Format("2006-01-02 15:04:05")))

	dir := e.Direction()
	if dir == "" {
		b.WriteString(escapeMarkdownV2("No price was observed before expiry."))
		return b.String()
	}

	emoji := "➖"
	switch dir {
	case "UP":
		emoji = "📈"
	case "DOWN":
		emoji = "📉"
	}
	fmt.Fprintf(&b, "%s Result: *%s* %s\n", emoji, dir,
		escapeMarkdownV2("("+format.Delta(e.Delta, true)+")"))
	fmt.Fprintf(&b, "   %s → %s\n",
		escapeMarkdownV2(format.Price(e.StartPrice)), escapeMarkdownV2(format.Price(e.FinalPrice)))
	fmt.Fprintf(&b, "   Final odds: UP %s / DOWN %s",
		escapeMarkdownV2(format.Multiplier(e.Odds.OddUp)), escapeMarkdownV2(format.Multiplier(e.Odds.OddDown)))
	return b.String()
}

func formatSnapshot(s models.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 *%s*\n", escapeMarkdownV2(s.Title))
	fmt.Fprintf(&b, "⏱ %s left\n", escapeMarkdownV2(format.Countdown(s.SecondsLeft)))
	fmt.Fprintf(&b, "💵 %s", escapeMarkdownV2(format.Price(s.CurrentPrice)))
	if s.Ready {
		fmt.Fprintf(&b, " %s", escapeMarkdownV2("("+format.Delta(s.Delta, true)+")"))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "UP %s %s / DOWN %s %s",
		escapeMarkdownV2(format.Implied(s.Odds.PUp, s.Ready)), escapeMarkdownV2(format.Multiplier(s.Odds.OddUp)),
		escapeMarkdownV2(format.Implied(s.Odds.PDown, s.Ready)), escapeMarkdownV2(format.Multiplier(s.Odds.OddDown)))
	return b.String()
}

func formatMarkets(listings []session.Listing) string {
	var b strings.Builder
	b.WriteString("📊 *Quick markets*\n\n")
	for i, l := range listings {
		price := format.Placeholder
		if l.Cached {
			price = format.Price(l.LastPrice)
		}
		fmt.Fprintf(&b, "%d\\. %s `%s`\n   %s\n", i+1,
			escapeMarkdownV2(l.Title), escapeMarkdownV2(l.MarketID), escapeMarkdownV2(price))
	}
	return b.String()
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
