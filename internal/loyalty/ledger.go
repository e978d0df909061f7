package loyalty

import (
	"fmt"
	"math"
	"strings"
)

// ServiceItem is one purchased service inside an adjustment, priced in
// whole rubles.
type ServiceItem struct {
	Name     string `json:"name"`
	PriceRub int    `json:"price_rub"`
}

// Ledger accumulates the service line items of one in-progress adjustment
// draft. It is client-local and ephemeral: it is discarded on submit, on
// cancel, and whenever a different account is resolved.
type Ledger struct {
	items []ServiceItem
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Add validates and appends one line item. The name must be non-empty
// after trimming. Fractional ruble prices are rounded to the nearest whole
// ruble before acceptance; anything that is not positive after rounding is
// rejected.
func (l *Ledger) Add(name string, priceRub float64) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyServiceName
	}
	price := int(math.Round(priceRub))
	if price <= 0 {
		return fmt.Errorf("service %q: %w", name, ErrInvalidAmount)
	}
	l.items = append(l.items, ServiceItem{Name: name, PriceRub: price})
	return nil
}

// Remove deletes the line item at index i, preserving order.
func (l *Ledger) Remove(i int) error {
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("no service line at index %d", i)
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return nil
}

// Len returns the number of line items.
func (l *Ledger) Len() int {
	return len(l.items)
}

// Items returns a copy of the line items in insertion order.
func (l *Ledger) Items() []ServiceItem {
	if len(l.items) == 0 {
		return nil
	}
	out := make([]ServiceItem, len(l.items))
	copy(out, l.items)
	return out
}

// Total returns the sum of all line item prices in rubles.
func (l *Ledger) Total() int {
	total := 0
	for _, item := range l.items {
		total += item.PriceRub
	}
	return total
}

// PreviewAward computes the bonus award preview for the current line
// items: floor(total * percent / 100). Floor, not round, so the preview
// never promises more than a floor-based server computation would grant.
// The preview is advisory only; the server's result is authoritative.
func (l *Ledger) PreviewAward(cashbackPercent int) int {
	if cashbackPercent <= 0 {
		return 0
	}
	return l.Total() * cashbackPercent / 100
}
