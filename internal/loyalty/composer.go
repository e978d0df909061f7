package loyalty

import (
	"fmt"
	"strings"
)

// Adjustment is the wire payload of one atomic bonus adjustment. A spend
// is expressed as a negative BonusesDelta on the wire even though the
// operator-facing draft uses a positive spend amount; Compose performs
// that sign flip and nothing else may.
type Adjustment struct {
	Services     []ServiceItem `json:"services,omitempty"`
	BonusesDelta *int          `json:"bonuses_delta,omitempty"`
	Reason       string        `json:"reason,omitempty"`
}

// AdjustmentResult is the server's authoritative outcome of an
// adjustment. Displayed state must be overwritten with these values, never
// with the client's own preview arithmetic.
type AdjustmentResult struct {
	BonusesAwarded int `json:"bonuses_awarded"`
	BonusesSpent   int `json:"bonuses_spent"`
	CurrentBonuses int `json:"current_bonuses"`
}

// Compose validates the current draft and assembles the payload to
// submit. It is pure: no I/O, no hidden state.
//
// The spend amount is checked against the balance captured at the most
// recent resolve. Staleness is accepted here; if the race actually occurs
// the server rejects the submission and the account is force-refreshed.
func Compose(account *Account, ledger *Ledger, spendAmount int, reason string) (*Adjustment, error) {
	if account == nil {
		return nil, ErrNoAccount
	}
	if spendAmount < 0 {
		return nil, fmt.Errorf("spend amount %d: %w", spendAmount, ErrInvalidAmount)
	}

	var services []ServiceItem
	if ledger != nil {
		services = ledger.Items()
	}

	if len(services) == 0 && spendAmount == 0 {
		return nil, ErrEmptyAdjustment
	}

	adj := &Adjustment{}
	var summary []string

	if len(services) > 0 {
		total := ledger.Total()
		// Unreachable given per-line validation, re-checked as a safety
		// net against stale state.
		if total <= 0 {
			return nil, fmt.Errorf("services total %d: %w", total, ErrInvalidAmount)
		}
		percent := account.EffectiveCashbackPercent()
		adj.Services = services
		summary = append(summary, fmt.Sprintf("Awarded %d bonuses (%d%% of ₽%d)", ledger.PreviewAward(percent), percent, total))
	}

	if spendAmount > 0 {
		if spendAmount > account.Bonuses {
			return nil, fmt.Errorf("spend %d exceeds balance %d: %w", spendAmount, account.Bonuses, ErrInsufficientBalance)
		}
		delta := -spendAmount
		adj.BonusesDelta = &delta
		summary = append(summary, fmt.Sprintf("Списано %d бонусов (скидка)", spendAmount))
	}

	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		adj.Reason = trimmed
	} else {
		adj.Reason = strings.Join(summary, " | ")
	}

	return adj, nil
}
