package portfolio

import (
	"time"

	"github.com/wonny/bistpro/internal/contracts"
)

// HoldingPeriodDays is how long a committed selection stays locked
const HoldingPeriodDays = 30

// Evaluate derives the lock state of sel at now.
// ⭐ SSOT: 잠금 상태 판단은 여기서만
//
// Dates are compared as calendar days. A missing selection or start date is
// OPEN. A start date after now counts as zero days elapsed.
func Evaluate(sel *contracts.PortfolioSelection, now time.Time) contracts.LockState {
	if sel == nil || sel.StartDate.IsZero() {
		return contracts.LockState{}
	}

	elapsed := DaysBetween(sel.StartDate, now)
	// 미래 시작일은 0일 경과로 본다. 의도적으로 남은 일수를 30으로 고정 (30 초과 보고 안 함)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= HoldingPeriodDays {
		return contracts.LockState{}
	}

	return contracts.LockState{
		Locked:        true,
		DaysRemaining: HoldingPeriodDays - elapsed,
	}
}

// DaysBetween counts calendar days from the date of from to the date of to,
// each taken in its own location
func DaysBetween(from, to time.Time) int {
	return int(CalendarDate(to).Sub(CalendarDate(from)).Hours() / 24)
}

// CalendarDate maps t to midnight UTC of its calendar date
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
