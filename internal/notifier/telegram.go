package notifier

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"HammerScanner/internal/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// Notifier delivers a rendered message. Delivery is best-effort; callers log failures.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// TelegramConfig is everything the Telegram notifier needs. Nothing is read from the environment here.
type TelegramConfig struct {
	BotToken   string
	ChatID     string
	Proxy      string
	APIBase    string // format string with two %s verbs, defaults to tgbot.APIEndpoint
	MaxRetries int
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	bot        *tgbot.BotAPI
	chatID     int64
	channel    string // "@name" when the chat is addressed by username
	maxRetries int
}

// NewTelegramNotifier authenticates the bot and returns a notifier with optional proxy support.
// ChatID is either a numeric id or a public "@username".
func NewTelegramNotifier(cfg TelegramConfig) (*TelegramNotifier, error) {
	t := &TelegramNotifier{maxRetries: cfg.MaxRetries}
	if strings.HasPrefix(cfg.ChatID, "@") && len(cfg.ChatID) > 1 {
		t.channel = cfg.ChatID
	} else {
		chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parse chat id %q", cfg.ChatID)
		}
		t.chatID = chatID
	}
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	endpoint := cfg.APIBase
	if endpoint == "" {
		endpoint = tgbot.APIEndpoint
	}
	bot, err := tgbot.NewBotAPIWithClient(cfg.BotToken, endpoint, &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	})
	if err != nil {
		return nil, errors.Wrap(err, "telegram auth")
	}
	t.bot = bot
	return t, nil
}

// owns reports whether a chat is the configured one.
func (t *TelegramNotifier) owns(chat *tgbot.Chat) bool {
	if chat == nil {
		return false
	}
	if t.channel != "" {
		return chat.UserName != "" && strings.EqualFold("@"+chat.UserName, t.channel)
	}
	return chat.ID == t.chatID
}

// Send sends a Markdown message to the configured chat, retrying with exponential backoff.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	var lastErr error
	for i := 0; i <= t.maxRetries; i++ {
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * time.Second
			logger.Warnf("telegram send failed (attempt %d/%d): %v, retrying in %v", i, t.maxRetries+1, lastErr, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if lastErr = t.send(text); lastErr == nil {
			return nil
		}
	}
	if t.maxRetries == 0 {
		return lastErr
	}
	return errors.Wrapf(lastErr, "all %d attempts failed", t.maxRetries+1)
}

func (t *TelegramNotifier) send(text string) error {
	msg := tgbot.NewMessage(t.chatID, text)
	if t.channel != "" {
		msg = tgbot.NewMessageToChannel(t.channel, text)
	}
	msg.ParseMode = tgbot.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		return errors.Wrap(err, "telegram send")
	}
	return nil
}

// StdoutNotifier logs messages instead of delivering them. Used when no bot credentials are configured.
type StdoutNotifier struct{}

func NewStdoutNotifier() *StdoutNotifier { return &StdoutNotifier{} }

func (s *StdoutNotifier) Send(_ context.Context, text string) error {
	logger.Infof("notification (stdout):\n%s", text)
	return nil
}
