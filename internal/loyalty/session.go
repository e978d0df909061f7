package loyalty

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/priroda-spa/loyalty-console/internal/logger"
)

//go:generate mockgen -source=session.go -destination=../mocks/mock_api.go -package=mocks

// API is the backend surface the session needs: resolve an account by its
// short code and apply one atomic adjustment.
type API interface {
	ResolveByCode(ctx context.Context, code string) (*Account, error)
	ApplyAdjustment(ctx context.Context, userID int64, adj *Adjustment) (*AdjustmentResult, error)
}

// DraftState is the lifecycle state of the current adjustment draft.
type DraftState int

const (
	StateIdle DraftState = iota
	StateBuilding
	StateValidating
	StateSubmitting
	StateApplied
	StateRejected
)

func (s DraftState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateApplied:
		return "applied"
	case StateRejected:
		return "rejected"
	}
	return fmt.Sprintf("DraftState(%d)", int(s))
}

// Phase is the operator-visible step of the workflow.
type Phase int

const (
	PhaseSearchingByCode Phase = iota
	PhaseReviewingAccount
	PhaseComposingAdjustment
	PhaseShowingResult
)

func (p Phase) String() string {
	switch p {
	case PhaseSearchingByCode:
		return "searching-by-code"
	case PhaseReviewingAccount:
		return "reviewing-account"
	case PhaseComposingAdjustment:
		return "composing-adjustment"
	case PhaseShowingResult:
		return "showing-result"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Session orchestrates one operator's adjustment workflow against a single
// account: resolve, build a draft, compose, submit, refresh. It holds the
// only mutable state of the protocol and owns every rule that keeps the
// displayed balance consistent with the server.
//
// A Session is driven from a single event loop and is not safe for
// concurrent use. The submitting flag guards against re-entrant submits
// from that loop: a second submit while one is outstanding could
// double-apply a spend.
type Session struct {
	api API

	account *Account
	ledger  *Ledger
	spend   int
	reason  string

	state      DraftState
	phase      Phase
	submitting bool
	// needsResolve is set after the server reports an insufficient
	// balance: the cached balance is known stale and every draft
	// operation is blocked until the account is resolved again.
	needsResolve bool
	lastResult   *AdjustmentResult
}

// NewSession returns a session in the SearchingByCode phase with no
// account and no draft.
func NewSession(api API) *Session {
	return &Session{
		api:    api,
		ledger: NewLedger(),
		state:  StateIdle,
		phase:  PhaseSearchingByCode,
	}
}

// Account returns the currently resolved account, or nil.
func (s *Session) Account() *Account { return s.account }

// State returns the draft lifecycle state.
func (s *Session) State() DraftState { return s.state }

// Phase returns the operator-visible phase.
func (s *Session) Phase() Phase { return s.phase }

// Services returns a copy of the draft's service line items.
func (s *Session) Services() []ServiceItem { return s.ledger.Items() }

// SpendAmount returns the draft's spend amount, zero when absent.
func (s *Session) SpendAmount() int { return s.spend }

// LastResult returns the most recent server adjustment result, or nil.
func (s *Session) LastResult() *AdjustmentResult { return s.lastResult }

// NeedsResolve reports whether a re-resolve is mandatory before any
// further draft work.
func (s *Session) NeedsResolve() bool { return s.needsResolve }

// Resolve canonicalizes code, looks the account up, and on success makes
// it the session's current account. Any in-progress draft tied to the
// previous account is silently discarded: a draft built against account A
// must never be applied to account B. On failure nothing changes; the
// caller re-invokes manually, there is no retry.
func (s *Session) Resolve(ctx context.Context, code string) (*Account, error) {
	if s.submitting {
		return nil, ErrSubmitInFlight
	}
	canonical := CanonicalCode(code)
	if canonical == "" {
		return nil, errors.Wrap(ErrNotFound, "empty code")
	}

	account, err := s.api.ResolveByCode(ctx, canonical)
	if err != nil {
		return nil, err
	}

	if s.account != nil && s.ledger.Len() > 0 {
		logger.Info("discarding draft on account switch",
			zap.String("previous_code", s.account.UniqueCode),
			zap.String("new_code", account.UniqueCode),
			zap.Int("dropped_lines", s.ledger.Len()))
	}

	s.account = account
	s.discardDraft()
	s.state = StateBuilding
	s.phase = PhaseReviewingAccount
	s.needsResolve = false
	return account, nil
}

// AddService appends one service line item to the draft.
func (s *Session) AddService(name string, priceRub float64) error {
	if err := s.draftMutable(); err != nil {
		return err
	}
	if err := s.ledger.Add(name, priceRub); err != nil {
		return err
	}
	s.state = StateBuilding
	s.phase = PhaseComposingAdjustment
	return nil
}

// RemoveService deletes the draft's line item at index i.
func (s *Session) RemoveService(i int) error {
	if err := s.draftMutable(); err != nil {
		return err
	}
	return s.ledger.Remove(i)
}

// SetSpend records the amount of bonuses to spend. Zero clears it. The
// sufficiency check happens at composition time against the balance
// captured at resolve.
func (s *Session) SetSpend(amount int) error {
	if err := s.draftMutable(); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("spend amount %d: %w", amount, ErrInvalidAmount)
	}
	s.spend = amount
	s.state = StateBuilding
	if amount > 0 {
		s.phase = PhaseComposingAdjustment
	}
	return nil
}

// SetReason records an operator-supplied reason, overriding the default
// summary the composer would build.
func (s *Session) SetReason(reason string) error {
	if err := s.draftMutable(); err != nil {
		return err
	}
	s.reason = reason
	return nil
}

// PreviewAward returns the advisory bonus award for the current line
// items at the account's cashback rate.
func (s *Session) PreviewAward() int {
	if s.account == nil {
		return 0
	}
	return s.ledger.PreviewAward(s.account.EffectiveCashbackPercent())
}

// Submit composes the draft, sends it as one atomic request, and on
// success re-resolves the account so the displayed balance and tier come
// from the server, not from local arithmetic.
//
// Local validation failures never reach the network. A server-side
// failure preserves the draft for correction and resubmission, except an
// insufficient-balance rejection, which blocks everything until the
// account is re-resolved. Submission is never retried automatically.
func (s *Session) Submit(ctx context.Context) (*AdjustmentResult, error) {
	if s.submitting {
		return nil, ErrSubmitInFlight
	}
	if s.needsResolve {
		return nil, ErrResolveRequired
	}
	if s.account == nil {
		return nil, ErrNoAccount
	}

	s.state = StateValidating
	adj, err := Compose(s.account, s.ledger, s.spend, s.reason)
	if err != nil {
		s.state = StateBuilding
		return nil, err
	}

	s.state = StateSubmitting
	s.submitting = true
	result, err := s.api.ApplyAdjustment(ctx, s.account.ID, adj)
	s.submitting = false

	if err != nil {
		s.state = StateRejected
		if errors.Is(err, ErrInsufficientBalance) {
			// Race lost: the balance changed between resolve and apply.
			// The cached account is stale, so resubmitting against it is
			// not permitted.
			s.needsResolve = true
			s.state = StateIdle
			logger.Warn("adjustment rejected, account stale",
				zap.Int64("user_id", s.account.ID),
				zap.Error(err))
			return nil, err
		}
		// Draft preserved so the operator can correct and resubmit.
		s.state = StateBuilding
		return nil, err
	}

	s.lastResult = result
	s.state = StateApplied

	refreshed, refreshErr := s.api.ResolveByCode(ctx, CanonicalCode(s.account.UniqueCode))
	if refreshErr != nil {
		// The adjustment is applied server-side; only the refresh failed.
		// Block further work until a manual resolve succeeds.
		s.needsResolve = true
		s.state = StateIdle
		s.discardDraft()
		return result, errors.Wrap(refreshErr, "adjustment applied but account refresh failed")
	}

	s.account = refreshed
	s.discardDraft()
	s.state = StateIdle
	s.phase = PhaseShowingResult
	return result, nil
}

// NewSearch returns the session to the SearchingByCode phase, discarding
// any composing state.
func (s *Session) NewSearch() error {
	if s.submitting {
		return ErrSubmitInFlight
	}
	s.discardDraft()
	s.state = StateIdle
	s.phase = PhaseSearchingByCode
	return nil
}

func (s *Session) draftMutable() error {
	if s.submitting {
		return ErrSubmitInFlight
	}
	if s.needsResolve {
		return ErrResolveRequired
	}
	if s.account == nil {
		return ErrNoAccount
	}
	return nil
}

func (s *Session) discardDraft() {
	s.ledger = NewLedger()
	s.spend = 0
	s.reason = ""
}
