package contracts

import "errors"

// ⭐ SSOT: 에러 분류는 여기서만
var (
	// ErrInsufficientData means the price history is too short for RSI/ATR.
	// The scanner skips the instrument and continues.
	ErrInsufficientData = errors.New("insufficient price history")

	// ErrProviderUnavailable means a data provider could not be reached.
	// Price provider: the scan reports no data. Fundamentals provider: sentinel snapshot.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrMalformedState means a persisted selection could not be decoded.
	// Treated as "no active selection".
	ErrMalformedState = errors.New("malformed persisted state")

	// ErrInvalidInput is a precondition violation (non-positive price, malformed series)
	ErrInvalidInput = errors.New("invalid input")

	// ErrPortfolioLocked is returned by the commit guard while a selection is held
	ErrPortfolioLocked = errors.New("portfolio is locked")

	// ErrNoCandidates means a scan ran but nothing qualified for a commit
	ErrNoCandidates = errors.New("no qualifying candidates")
)
