package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these standard errors
// so the cycle can classify failures without knowing the transport.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Pipeline Errors
	ErrInsufficientHistory = errors.New("not enough closed bars for indicator calculation")
	ErrNoClosedBar         = errors.New("no new closed bar available")
	ErrCapacityViolation   = errors.New("bar inserted out of timestamp order")

	// Network / Reliability Errors
	ErrNetwork              = errors.New("network request failed")
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrCircuitOpen          = errors.New("circuit breaker is open")

	// Trading Errors
	ErrStateDivergence   = errors.New("exchange reports a position unknown to local state")
	ErrExecutionFailure  = errors.New("order execution failed")
	ErrInsufficientFunds = errors.New("insufficient funds for operation")
	ErrOrderNotFound     = errors.New("order not found on the exchange")
	ErrTradingHalted     = errors.New("trading halted, operator intervention required")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
)

// IsRetryable reports whether an error class is worth retrying with
// backoff. Everything else is surfaced to the cycle immediately.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrExchangeUnavailable)
}
