package loyalty

import "errors"

var (
	// ErrNotFound is returned when no account matches the given code.
	ErrNotFound = errors.New("loyalty account not found")

	// ErrEmptyAdjustment is returned when a draft has neither service
	// line items nor a spend amount. Composition fails locally; no
	// request is sent.
	ErrEmptyAdjustment = errors.New("adjustment has no services and no spend amount")

	// ErrInvalidAmount is returned for non-positive service totals or
	// spend amounts.
	ErrInvalidAmount = errors.New("amount must be a positive whole ruble value")

	// ErrEmptyServiceName is returned when a service line item name is
	// empty after trimming.
	ErrEmptyServiceName = errors.New("service name must not be empty")

	// ErrInsufficientBalance is returned when a spend exceeds the
	// account's bonus balance, either locally against the balance
	// captured at resolve time or by the server when the race was lost.
	ErrInsufficientBalance = errors.New("insufficient bonus balance")

	// ErrValidation is returned when the server rejects the payload as
	// malformed.
	ErrValidation = errors.New("adjustment rejected by server validation")

	// ErrSubmitInFlight is returned when a submit is attempted while a
	// previous one has not resolved yet. A second request could
	// double-apply a spend.
	ErrSubmitInFlight = errors.New("an adjustment submission is already in flight")

	// ErrResolveRequired is returned after the server reported an
	// insufficient balance: the cached account is known stale and must
	// be re-resolved before anything else happens.
	ErrResolveRequired = errors.New("account must be re-resolved before continuing")

	// ErrNoAccount is returned when a draft operation is attempted
	// before any account has been resolved.
	ErrNoAccount = errors.New("no account resolved")
)
