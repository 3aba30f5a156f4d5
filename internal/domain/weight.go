package domain

import (
	"fmt"
	"math"
	"strconv"
)

// WeightScale is the number of Weight units per whole vote.
const WeightScale = 100

// Weight is a vote weight in hundredths. Persisted weights, aggregates and
// broadcast values all use it so that sums stay exact.
type Weight int64

// WeightFromFloat rounds f to two decimals.
func WeightFromFloat(f float64) Weight {
	return Weight(math.Round(f * WeightScale))
}

func (w Weight) Float() float64 {
	return float64(w) / WeightScale
}

func (w Weight) String() string {
	return strconv.FormatFloat(w.Float(), 'f', 2, 64)
}

// MarshalJSON encodes the weight as a decimal number, e.g. 0.93.
func (w Weight) MarshalJSON() ([]byte, error) {
	return []byte(w.String()), nil
}

func (w *Weight) UnmarshalJSON(data []byte) error {
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid weight %q: %w", data, err)
	}
	*w = WeightFromFloat(f)
	return nil
}

// Multipliers are the individual factors applied to the base weight.
type Multipliers struct {
	AccountAge   float64 `json:"accountAge"`
	Reputation   float64 `json:"reputation"`
	Contribution float64 `json:"contribution"`
	Verification float64 `json:"verification"`
}

func (m Multipliers) Product() float64 {
	return m.AccountAge * m.Reputation * m.Contribution * m.Verification
}

// WeightBreakdown explains how a voter's weight was derived.
type WeightBreakdown struct {
	Base        float64     `json:"base"`
	Multipliers Multipliers `json:"multipliers"`
	Final       Weight      `json:"final"`
}
