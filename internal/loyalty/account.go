package loyalty

import (
	"strings"
	"time"
)

// DefaultCashbackPercent is the cashback rate of the entry loyalty tier,
// used whenever the backend did not report a rate for the account.
const DefaultCashbackPercent = 3

// Account is a loyalty account as returned by the spa admin API. It is
// owned by the server: the console only ever reads it and refreshes it
// after every successful adjustment.
type Account struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Surname         string    `json:"surname,omitempty"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	IsActive        bool      `json:"is_active"`
	IsVerified      bool      `json:"is_verified"`
	LoyaltyLevel    *int64    `json:"loyalty_level,omitempty"`
	Bonuses         int       `json:"loyalty_bonuses"`
	SpentBonuses    int       `json:"spent_bonuses"`
	UniqueCode      string    `json:"unique_code"`
	AutoApplyPoints bool      `json:"auto_apply_loyalty_points"`
	CreatedAt       time.Time `json:"created_at"`
	CashbackPercent *int      `json:"cashback_percent,omitempty"`
}

// EffectiveCashbackPercent returns the cashback rate to use for award
// previews. The backend omits the rate for accounts that never had a tier
// computed; those fall back to the entry tier's 3%, same as the server.
func (a *Account) EffectiveCashbackPercent() int {
	if a.CashbackPercent == nil || *a.CashbackPercent <= 0 {
		return DefaultCashbackPercent
	}
	return *a.CashbackPercent
}

// DisplayName returns the account holder's full name.
func (a *Account) DisplayName() string {
	if a.Surname == "" {
		return a.Name
	}
	return a.Name + " " + a.Surname
}

// CanonicalCode normalizes a user-entered short code: surrounding
// whitespace is dropped and the code is uppercased, matching how the
// backend stores codes.
func CanonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
