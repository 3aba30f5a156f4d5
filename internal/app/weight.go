package app

import (
	"math"
	"time"

	"github.com/pscheid92/votepulse/internal/domain"
)

const day = 24 * time.Hour

type ageBand struct {
	minAge     time.Duration
	multiplier float64
}

// Ordered oldest first; lower bounds are inclusive.
var ageBands = []ageBand{
	{365 * day, 1.5},
	{90 * day, 1.25},
	{30 * day, 1.0},
	{7 * day, 0.5},
}

const (
	newAccountMultiplier = 0.25

	reputationDivisor = 1000.0
	minReputation     = 0.5
	maxReputation     = 2.0

	maxContribution = 1.5
	verifiedBonus   = 1.2
)

// CalculateWeight derives a voter's weight from their profile at time now.
func CalculateWeight(p domain.UserProfile, now time.Time) domain.WeightBreakdown {
	m := domain.Multipliers{
		AccountAge:   accountAgeMultiplier(now.Sub(p.CreatedAt)),
		Reputation:   reputationMultiplier(p.Points),
		Contribution: contributionMultiplier(p.IdeasSubmitted, p.VotesCast),
		Verification: verificationMultiplier(p.VerifiedProofs),
	}

	const base = 1.0
	return domain.WeightBreakdown{
		Base:        base,
		Multipliers: m,
		Final:       domain.WeightFromFloat(base * m.Product()),
	}
}

func accountAgeMultiplier(age time.Duration) float64 {
	for _, band := range ageBands {
		if age >= band.minAge {
			return band.multiplier
		}
	}
	return newAccountMultiplier
}

func reputationMultiplier(points int64) float64 {
	r := float64(points) / reputationDivisor
	return math.Min(math.Max(r, minReputation), maxReputation)
}

func contributionMultiplier(ideas, votes int) float64 {
	c := 1 + (float64(ideas)+float64(votes)/10)/100
	return math.Min(c, maxContribution)
}

func verificationMultiplier(proofs []string) float64 {
	if len(proofs) > 0 {
		return verifiedBonus
	}
	return 1.0
}
