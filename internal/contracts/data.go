package contracts

import (
	"fmt"
	"time"
)

// Bar is one daily OHLC record
type Bar struct {
	Date  time.Time `json:"date"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// PriceSeries is the daily history of one instrument, ascending by date
// ⭐ SSOT: Price Provider → IndicatorEngine 전달 형식
type PriceSeries struct {
	Code string `json:"code"`
	Bars []Bar  `json:"bars"`
}

// Len returns the number of bars
func (s PriceSeries) Len() int {
	return len(s.Bars)
}

// Closes extracts the close column
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar
func (s PriceSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Validate checks ordering and bar sanity.
// Dates must be strictly ascending (no duplicates), closes positive, high >= low.
func (s PriceSeries) Validate() error {
	for i, b := range s.Bars {
		if b.Close <= 0 {
			return fmt.Errorf("%w: bar %d has non-positive close %.4f", ErrInvalidInput, i, b.Close)
		}
		if b.High < b.Low {
			return fmt.Errorf("%w: bar %d has high %.4f below low %.4f", ErrInvalidInput, i, b.High, b.Low)
		}
		if i > 0 && !b.Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("%w: bar %d date %s not after %s", ErrInvalidInput, i,
				b.Date.Format("2006-01-02"), s.Bars[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Lookback is a history window understood by the price provider
type Lookback string

const (
	LookbackMonth Lookback = "1mo"
	LookbackYear  Lookback = "1y"
)
