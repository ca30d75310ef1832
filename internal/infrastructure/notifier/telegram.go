package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcoelho/binance-spot-bot/internal/domain"
)

const defaultAttempts = 5

// TelegramNotifier delivers trade notifications via the Bot API. Transport
// errors are retried up to five times; a non-2xx response is not retried
// (the request reached Telegram, resending would duplicate the message).
type TelegramNotifier struct {
	apiURL   string
	chatID   string
	client   *http.Client
	log      *zap.Logger
	attempts int
}

func NewTelegramNotifier(botToken, chatID string, log *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		apiURL:   fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", botToken),
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
		attempts: defaultAttempts,
	}
}

func (t *TelegramNotifier) Notify(ctx context.Context, n domain.TradeNotification) error {
	icon := "\U0001F7E2" // green circle
	if strings.Contains(n.Action, "SELL") {
		icon = "\U0001F534" // red circle
	}
	message := fmt.Sprintf(
		"*%s*\n%s *Symbol:* %s\n*Quantity:* %s\n*Price:* %s USDT\n*Total:* %s USDT",
		n.Action, icon, n.Symbol,
		n.Quantity.String(), n.Price.String(), n.TotalValue.String())

	return t.send(ctx, message)
}

func (t *TelegramNotifier) send(ctx context.Context, message string) error {
	payload := url.Values{
		"chat_id":    {t.chatID},
		"text":       {message},
		"parse_mode": {"Markdown"},
	}

	var lastErr error
	for i := 0; i < t.attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL,
			strings.NewReader(payload.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := t.client.Do(req)
		if err != nil {
			lastErr = err
			t.log.Warn("telegram send failed",
				zap.Int("attempt", i+1),
				zap.Int("attempts", t.attempts),
				zap.Error(err))
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("telegram responded %d", resp.StatusCode)
		}
		return nil
	}
	return fmt.Errorf("telegram send failed after %d attempts: %w", t.attempts, lastErr)
}

// Noop drops every notification, for deployments without a Telegram bot.
type Noop struct{}

func (Noop) Notify(_ context.Context, _ domain.TradeNotification) error { return nil }

// StaticSentiment satisfies domain.SentimentProvider with a fixed score.
// Real scoring is an external collaborator; this keeps the orchestrator
// wired when none is configured.
type StaticSentiment struct {
	Value domain.Sentiment
}

func (s StaticSentiment) Score(_ context.Context, _ string) (domain.Sentiment, error) {
	if s.Value == "" {
		return domain.SentimentNeutral, nil
	}
	return s.Value, nil
}
