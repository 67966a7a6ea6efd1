package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Attachment colors understood by Slack.
const (
	colorGood    = "good"
	colorWarning = "warning"
	colorDanger  = "danger"
)

type attachment struct {
	Color  string `json:"color"`
	Text   string `json:"text"`
	Footer string `json:"footer"`
	TS     int64  `json:"ts"`
}

type payload struct {
	Attachments []attachment `json:"attachments"`
}

// Slack posts trading events to a Slack incoming webhook.
type Slack struct {
	client     *resty.Client
	webhookURL string
	base       string
	quote      string
	log        zerolog.Logger
}

// NewSlack builds a webhook notifier. base and quote are the traded assets,
// used only for message formatting.
func NewSlack(webhookURL, base, quote string, log zerolog.Logger) *Slack {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &Slack{
		client:     client,
		webhookURL: webhookURL,
		base:       base,
		quote:      quote,
		log:        log.With().Str("component", "slack").Logger(),
	}
}

// Verify posts a throwaway message and reports delivery failures. Used by the
// provisioning flow to fail fast on an unreachable or rejected webhook.
func (s *Slack) Verify(ctx context.Context) error {
	return s.post(ctx, "✅ Trading Bot webhook verified", colorGood)
}

func (s *Slack) post(ctx context.Context, text, color string) error {
	body := payload{Attachments: []attachment{{
		Color:  color,
		Text:   text,
		Footer: "Trading Bot",
		TS:     time.Now().Unix(),
	}}}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(s.webhookURL)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("slack returned status %d", resp.StatusCode())
	}
	return nil
}

// send is the fire-and-forget variant used by trading events.
func (s *Slack) send(text, color string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.post(ctx, text, color); err != nil {
		s.log.Error().Err(err).Msg("slack notification failed")
	}
}

func (s *Slack) Startup(symbol string) {
	s.send(fmt.Sprintf("🚀 *Trading Bot started*\nPair: %s\nSafety monitor: enabled", symbol), colorGood)
}

func (s *Slack) Shutdown() {
	s.send("⏹️ *Trading Bot stopped*", colorWarning)
}

func (s *Slack) Heartbeat(price, momentum, quoteBalance, baseBalance float64) {
	s.send(fmt.Sprintf(
		"💓 *Bot alive*\nPrice: %.2f %s\nMomentum: %+.2f%%\n%s balance: %.2f\n%s balance: %.6f",
		price, s.quote, momentum*100, s.quote, quoteBalance, s.base, baseBalance,
	), colorGood)
}

func (s *Slack) Buy(amount, price float64) {
	s.send(fmt.Sprintf(
		"🟢 *Buy order filled*\nAmount: %.6f %s\nPrice: %.2f %s\nTotal: %.2f %s",
		amount, s.base, price, s.quote, amount*price, s.quote,
	), colorGood)
}

func (s *Slack) Sell(amount, price, profitPct float64) {
	emoji, color := "🟢", colorGood
	if profitPct <= 0 {
		emoji, color = "🔴", colorDanger
	}
	s.send(fmt.Sprintf(
		"%s *Sell order filled*\nAmount: %.6f %s\nPrice: %.2f %s\nTotal: %.2f %s\nPnL: %+.2f%%",
		emoji, amount, s.base, price, s.quote, amount*price, s.quote, profitPct,
	), color)
}

func (s *Slack) StopLoss(amount, price, lossPct float64) {
	s.send(fmt.Sprintf(
		"⚠️ *Stop loss triggered*\nAmount: %.6f %s\nPrice: %.2f %s\nLoss: %.2f%%",
		amount, s.base, price, s.quote, lossPct,
	), colorDanger)
}

func (s *Slack) VolatilityAlert(changePct float64, window string) {
	s.send(fmt.Sprintf(
		"⚡ *Sharp price move detected*\nChange: %+.2f%%\nWindow: %s\nMarket is unstable",
		changePct, window,
	), colorWarning)
}

func (s *Slack) EmergencyStop(reason string) {
	s.send(fmt.Sprintf("🛑 *Emergency stop*\nReason: %s\nTrading halted", reason), colorDanger)
}

func (s *Slack) DailyLossLimit(lossPct float64) {
	s.send(fmt.Sprintf(
		"🛑 *Daily loss limit reached*\nLoss today: %.2f%%\nTrading paused until next UTC day",
		lossPct,
	), colorDanger)
}

func (s *Slack) Error(message string) {
	s.send(fmt.Sprintf("❌ *Error*\n%s", message), colorDanger)
}

var _ Notifier = (*Slack)(nil)
