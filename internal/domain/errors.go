package domain

import "errors"

// Error taxonomy for a single symbol's trading step. The recovery policy is
// always the same: log, skip the symbol, continue the cycle.
var (
	// ErrRulesUnavailable means the exchange did not report the quantity-step
	// filter for a symbol. A missing notional filter alone is not fatal; the
	// resolver substitutes a default instead.
	ErrRulesUnavailable = errors.New("instrument trading rules unavailable")

	// ErrInsufficientValue means no legal quantity exists on the step grid
	// for the requested order.
	ErrInsufficientValue = errors.New("order value below exchange minimum")

	// ErrInsufficientBalance means the free balance cannot cover even the
	// minimum-notional order.
	ErrInsufficientBalance = errors.New("insufficient balance for minimum order")

	// ErrOrderRejected is an explicit rejection by the exchange, as opposed
	// to a transport failure.
	ErrOrderRejected = errors.New("order rejected by exchange")

	// ErrNoOpenPosition is returned by sell paths when the ledger holds no
	// open lots for the symbol.
	ErrNoOpenPosition = errors.New("no open position")
)
