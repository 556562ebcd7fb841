package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"visa-rescheduler/internal/config"
	"visa-rescheduler/internal/ports"
	"visa-rescheduler/pkg/apperr"
	"visa-rescheduler/pkg/logg"
)

const (
	notifierName = "Notifier"
	// Telegram rejects texts with more characters.
	maxMessageLength = 4096
)

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

// New returns a Telegram notifier when a token and chat are configured and a
// log-only notifier otherwise.
func New(params Params) ports.Notifier {
	logger := params.Logger.With(zap.String(logg.Layer, notifierName))
	nc := params.Config.NotifierConfig

	if nc.TelegramToken == "" || nc.TelegramChatID == "" {
		logger.Info("Telegram not configured, notifications are logged only")

		return &LogNotifier{logger: logger}
	}

	return &Telegram{
		apiURL: strings.TrimRight(nc.TelegramAPIURL, "/"),
		token:  nc.TelegramToken,
		chatID: nc.TelegramChatID,
		client: &http.Client{Timeout: nc.Timeout},
		logger: logger,
	}
}

// LogNotifier only writes messages to the log.
type LogNotifier struct {
	logger *zap.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, message string) error {
	n.logger.Info("Notification", zap.String("message", message))

	return nil
}

// Telegram sends plain-text messages through the Bot API. One client is
// reused for every message.
type Telegram struct {
	apiURL string
	token  string
	chatID string
	client *http.Client
	logger *zap.Logger
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (t *Telegram) Notify(ctx context.Context, message string) error {
	const op = "Notify"
	logger := t.logger.With(zap.String(logg.Operation, op))

	logger.Info("Notification", zap.String("message", message))

	message = truncate(message, maxMessageLength)

	payload, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: message})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StageNotification,
		})
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "request_build_failed",
			apperr.MetaStage:  apperr.StageNotification,
		})
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "send_failed",
			apperr.MetaStage:  apperr.StageNotification,
		})
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var decoded sendMessageResponse
	_ = json.Unmarshal(body, &decoded)

	if resp.StatusCode != http.StatusOK || !decoded.OK {
		return apperr.Wrap(op, apperr.CodeUnavailable, fmt.Errorf("telegram status %d: %s", resp.StatusCode, decoded.Description), map[string]any{
			apperr.MetaReason: "telegram_rejected",
			apperr.MetaStage:  apperr.StageNotification,
			apperr.MetaStatus: resp.StatusCode,
		})
	}

	return nil
}

// BestEffort wraps a notifier so delivery failures are logged and never
// returned to the caller.
type BestEffort struct {
	next   ports.Notifier
	logger *zap.Logger
}

func NewBestEffort(next ports.Notifier, logger *zap.Logger) *BestEffort {
	return &BestEffort{next: next, logger: logger.With(zap.String(logg.Layer, notifierName))}
}

func (b *BestEffort) Notify(ctx context.Context, message string) error {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Notifier panicked", zap.Any("panic", r))
		}
	}()

	if err := b.next.Notify(ctx, message); err != nil {
		b.logger.Warn("Failed to deliver notification", zap.Error(err))
	}

	return nil
}

// truncate keeps at most limit characters of s.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	return string([]rune(s)[:limit])
}
