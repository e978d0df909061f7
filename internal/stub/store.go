// Package stub is an in-memory double of the spa backend's admin loyalty
// API. It backs cmd/loyalty-stub for local development and the client
// integration tests; it is never part of the production data path.
package stub

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/priroda-spa/loyalty-console/internal/loyalty"
)

// Level is a loyalty tier as stored by the stub.
type Level struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MinBonuses      int    `json:"min_bonuses"`
	CashbackPercent int    `json:"cashback_percent"`
	ColorStart      string `json:"color_start"`
	ColorEnd        string `json:"color_end"`
	Icon            string `json:"icon"`
	OrderIndex      int    `json:"order_index"`
}

// Settings are the stub's loyalty program settings.
type Settings struct {
	LoyaltyEnabled  bool `json:"loyalty_enabled"`
	PointsPer100Rub int  `json:"points_per_100_rub"`
}

// Store holds all stub state. Unlike the console itself the stub serves
// concurrent requests, so access goes through a mutex.
type Store struct {
	mu          sync.Mutex
	accounts    map[int64]*loyalty.Account
	byCode      map[string]int64
	levels      map[int64]*Level
	settings    Settings
	nextUserID  int64
	nextLevelID int64
}

// NewStore returns an empty store with default settings.
func NewStore() *Store {
	return &Store{
		accounts: make(map[int64]*loyalty.Account),
		byCode:   make(map[string]int64),
		levels:   make(map[int64]*Level),
		settings: Settings{LoyaltyEnabled: true, PointsPer100Rub: 3},
	}
}

// Seed populates the store with the default tier ladder and a few
// accounts, mirroring the staging dataset.
func (s *Store) Seed() {
	s.AddLevel(&Level{Name: "Бронза", MinBonuses: 0, CashbackPercent: 3, ColorStart: "#cd7f32", ColorEnd: "#a05a2c", Icon: "eco", OrderIndex: 0})
	s.AddLevel(&Level{Name: "Серебро", MinBonuses: 500, CashbackPercent: 5, ColorStart: "#c0c0c0", ColorEnd: "#8c8c8c", Icon: "star", OrderIndex: 1})
	s.AddLevel(&Level{Name: "Золото", MinBonuses: 1500, CashbackPercent: 7, ColorStart: "#ffd700", ColorEnd: "#b8860b", Icon: "crown", OrderIndex: 2})
	s.AddLevel(&Level{Name: "Платина", MinBonuses: 3000, CashbackPercent: 10, ColorStart: "#e5e4e2", ColorEnd: "#a9a8a6", Icon: "diamond", OrderIndex: 3})

	s.AddAccount(&loyalty.Account{
		Name: "Анна", Surname: "Петрова", Email: "anna@example.com",
		IsActive: true, IsVerified: true,
		Bonuses: 120, UniqueCode: "ABC12345",
		CreatedAt: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	})
	s.AddAccount(&loyalty.Account{
		Name: "Игорь", Surname: "Смирнов", Email: "igor@example.com",
		IsActive: true, IsVerified: true,
		Bonuses: 2400, SpentBonuses: 350, UniqueCode: "XYZ98765",
		CreatedAt: time.Date(2024, 11, 2, 15, 30, 0, 0, time.UTC),
	})
	s.AddAccount(&loyalty.Account{
		Name: "Мария", Surname: "Иванова", Email: "maria@example.com",
		IsActive: true, IsVerified: false,
		Bonuses: 0, UniqueCode: "QWE55511",
		CreatedAt: time.Date(2026, 1, 20, 9, 45, 0, 0, time.UTC),
	})
}

// AddAccount registers an account, assigning an ID and recomputing its
// tier from the current ladder.
func (s *Store) AddAccount(a *loyalty.Account) *loyalty.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	a.ID = s.nextUserID
	a.UniqueCode = loyalty.CanonicalCode(a.UniqueCode)
	s.applyTierLocked(a)
	s.accounts[a.ID] = a
	s.byCode[a.UniqueCode] = a.ID
	return a
}

// AddLevel registers a loyalty tier.
func (s *Store) AddLevel(l *Level) *Level {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLevelID++
	l.ID = s.nextLevelID
	s.levels[l.ID] = l
	for _, a := range s.accounts {
		s.applyTierLocked(a)
	}
	return l
}

// AccountByCode returns a snapshot of the account with the given
// canonical code, or nil.
func (s *Store) AccountByCode(code string) *loyalty.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[loyalty.CanonicalCode(code)]
	if !ok {
		return nil
	}
	return snapshot(s.accounts[id])
}

// AccountByID returns a snapshot of the account with the given ID, or nil.
func (s *Store) AccountByID(id int64) *loyalty.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil
	}
	return snapshot(a)
}

// AdjustOutcome is what Adjust reports back to the handler.
type AdjustOutcome struct {
	Awarded        int
	Spent          int
	CurrentBonuses int
	// Overdraw is set when a negative delta exceeded the balance; the
	// handler turns it into a 400 without mutating anything.
	Overdraw bool
	Balance  int
	NotFound bool
}

// Adjust atomically applies one adjustment: award for services at the
// account's current tier rate, then the signed delta. Spending increases
// the lifetime spent counter and the tier is recomputed afterwards, since
// crossing a threshold changes the cashback rate.
func (s *Store) Adjust(userID int64, services []loyalty.ServiceItem, delta *int) AdjustOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[userID]
	if !ok {
		return AdjustOutcome{NotFound: true}
	}

	d := 0
	if delta != nil {
		d = *delta
	}
	if d < 0 && -d > a.Bonuses {
		return AdjustOutcome{Overdraw: true, Balance: a.Bonuses}
	}

	awarded := 0
	if len(services) > 0 {
		total := 0
		for _, svc := range services {
			total += svc.PriceRub
		}
		awarded = total * a.EffectiveCashbackPercent() / 100
	}

	spent := 0
	if d < 0 {
		spent = -d
	}

	a.Bonuses += awarded + d
	if a.Bonuses < 0 {
		a.Bonuses = 0
	}
	a.SpentBonuses += spent
	s.applyTierLocked(a)

	return AdjustOutcome{Awarded: awarded, Spent: spent, CurrentBonuses: a.Bonuses}
}

// ListAccounts returns snapshots of accounts matching the search string,
// ordered by ID.
func (s *Store) ListAccounts(search string, limit, offset int) ([]loyalty.Account, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search = strings.ToLower(strings.TrimSpace(search))
	matched := make([]loyalty.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if search != "" {
			haystack := strings.ToLower(a.Name + " " + a.Surname + " " + a.Email + " " + a.UniqueCode)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		matched = append(matched, *snapshot(a))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	if offset >= total {
		return []loyalty.Account{}, total
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total
}

// Levels returns all tiers ordered by order index, then threshold.
func (s *Store) Levels() []Level {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Level, 0, len(s.levels))
	for _, l := range s.levels {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].MinBonuses < out[j].MinBonuses
	})
	return out
}

// UpdateLevel mutates a tier in place via fn; returns false when the tier
// does not exist.
func (s *Store) UpdateLevel(id int64, fn func(*Level)) (*Level, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.levels[id]
	if !ok {
		return nil, false
	}
	fn(l)
	for _, a := range s.accounts {
		s.applyTierLocked(a)
	}
	out := *l
	return &out, true
}

// DeleteLevel removes a tier; returns false when it does not exist.
func (s *Store) DeleteLevel(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.levels[id]; !ok {
		return false
	}
	delete(s.levels, id)
	for _, a := range s.accounts {
		s.applyTierLocked(a)
	}
	return true
}

// GetSettings returns the loyalty program settings.
func (s *Store) GetSettings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetPointsPer100Rub updates the accrual rate setting.
func (s *Store) SetPointsPer100Rub(points int) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.PointsPer100Rub = points
	return s.settings
}

// applyTierLocked assigns the highest tier whose threshold the account's
// balance reaches, and the tier's cashback rate with it.
func (s *Store) applyTierLocked(a *loyalty.Account) {
	var best *Level
	for _, l := range s.levels {
		if l.MinBonuses > a.Bonuses {
			continue
		}
		if best == nil || l.MinBonuses > best.MinBonuses {
			best = l
		}
	}
	if best == nil {
		a.LoyaltyLevel = nil
		a.CashbackPercent = nil
		return
	}
	levelID := best.ID
	percent := best.CashbackPercent
	a.LoyaltyLevel = &levelID
	a.CashbackPercent = &percent
}

func snapshot(a *loyalty.Account) *loyalty.Account {
	out := *a
	if a.LoyaltyLevel != nil {
		v := *a.LoyaltyLevel
		out.LoyaltyLevel = &v
	}
	if a.CashbackPercent != nil {
		v := *a.CashbackPercent
		out.CashbackPercent = &v
	}
	return &out
}
