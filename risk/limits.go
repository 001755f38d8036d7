package risk

// Limits is the immutable account-level risk configuration for a
// session. Stop and trailing percentages live in the position package's
// config; Limits covers everything the governor itself enforces.
type Limits struct {
	MaxTradesPerDay      int     `json:"max_trades_per_day" yaml:"max_trades_per_day"`
	MaxDailyLoss         float64 `json:"max_daily_loss" yaml:"max_daily_loss"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses" yaml:"max_consecutive_losses"`
	MaxCapitalDeployed   float64 `json:"max_capital_deployed" yaml:"max_capital_deployed"`

	// RiskPerTradePct is the fraction of capital risked between entry
	// and stop on a single trade.
	RiskPerTradePct float64 `json:"risk_per_trade_pct" yaml:"risk_per_trade_pct"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxTradesPerDay:      5,
		MaxDailyLoss:         5000,
		MaxConsecutiveLosses: 2,
		MaxCapitalDeployed:   50000,
		RiskPerTradePct:      0.02,
	}
}

// Violation codes reported in authorization decisions.
const (
	CodeKillSwitch        = "KILL_SWITCH"
	CodeBreakerTripped    = "BREAKER_TRIPPED"
	CodeMaxTrades         = "MAX_TRADES"
	CodeDailyLossLimit    = "DAILY_LOSS_LIMIT"
	CodeConsecutiveLosses = "CONSECUTIVE_LOSSES"
	CodeCapitalDeployed   = "CAPITAL_DEPLOYED"
	CodeStateUnavailable  = "STATE_UNAVAILABLE"
)

// Decision is the result of an entry authorization check.
type Decision struct {
	Allowed bool
	Code    string
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(code, reason string) Decision {
	return Decision{Allowed: false, Code: code, Reason: reason}
}
