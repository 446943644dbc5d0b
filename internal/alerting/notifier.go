package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Transition kinds.
const (
	KindIngress           = "ingress"
	KindStationRetrograde = "station_retrograde"
	KindStationDirect     = "station_direct"
)

// Notification 封装一次星体换座或停滞的上下文。
type Notification struct {
	Instant    time.Time
	Body       string
	BodyGlyph  string
	Kind       string
	FromSign   string
	ToSign     string
	SignGlyph  string
	Deg        float64
	Channels   []string
	Additional string
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken  string
	chatID    string
	baseURL   string
	userAgent string
	client    *http.Client
	logger    zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL, userAgent string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken:  botToken,
		chatID:    chatID,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Time("instant", note.Instant).
		Str("body", note.Body).
		Str("kind", note.Kind).
		Msg("告警已发送 (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[Sky Alert] %s %s\n", note.BodyGlyph, note.Body))
	switch note.Kind {
	case KindIngress:
		builder.WriteString(fmt.Sprintf("Ingress: %s -> %s %s\n", note.FromSign, note.SignGlyph, note.ToSign))
	case KindStationRetrograde:
		builder.WriteString(fmt.Sprintf("Stationed retrograde in %s %s\n", note.SignGlyph, note.ToSign))
	case KindStationDirect:
		builder.WriteString(fmt.Sprintf("Stationed direct in %s %s\n", note.SignGlyph, note.ToSign))
	default:
		builder.WriteString(fmt.Sprintf("Event: %s\n", note.Kind))
	}
	builder.WriteString(fmt.Sprintf("Position: %.2f° %s\n", note.Deg, note.ToSign))
	builder.WriteString(fmt.Sprintf("At: %s UTC\n", note.Instant.UTC().Format(time.RFC3339)))
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.Additional != "" {
		builder.WriteString(note.Additional)
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
