// Package notify delivers trading events to an operator channel.
// The implemented channel is a Slack incoming webhook, matching the
// slack_webhook_url credential injected at provisioning time.
package notify

// Notifier receives the events the trading loop and the safety monitor emit.
// Implementations must never block trading: delivery failures are logged and
// swallowed.
type Notifier interface {
	Startup(symbol string)
	Shutdown()
	Heartbeat(price, momentum, quoteBalance, baseBalance float64)
	Buy(amount, price float64)
	Sell(amount, price, profitPct float64)
	StopLoss(amount, price, lossPct float64)
	VolatilityAlert(changePct float64, window string)
	EmergencyStop(reason string)
	DailyLossLimit(lossPct float64)
	Error(message string)
}

// Noop is used when no webhook is configured.
type Noop struct{}

func (Noop) Startup(string)                          {}
func (Noop) Shutdown()                               {}
func (Noop) Heartbeat(_, _, _, _ float64)            {}
func (Noop) Buy(_, _ float64)                        {}
func (Noop) Sell(_, _, _ float64)                    {}
func (Noop) StopLoss(_, _, _ float64)                {}
func (Noop) VolatilityAlert(_ float64, _ string)     {}
func (Noop) EmergencyStop(string)                    {}
func (Noop) DailyLossLimit(float64)                  {}
func (Noop) Error(string)                            {}

var _ Notifier = Noop{}
