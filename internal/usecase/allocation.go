package usecase

import (
	"bytes"
	"math"
	"sort"

	"cleaning-booking/internal/data/entity"
)

// Allocation weights.
const (
	weightSpecialization = 0.4
	weightRating         = 0.3
	weightLoad           = 0.2
	weightExperience     = 0.1

	experienceCap = 50.0
)

type RankedStaff struct {
	Candidate   *entity.StaffCandidate
	Score       float64
	Specialized bool
}

// Eligible reports whether the candidate can take the slot at all.
func Eligible(c *entity.StaffCandidate) bool {
	p := c.Profile
	return p.IsAvailable && !c.HasConflict && p.MaxDailyBookings > 0 && c.DayLoad < p.MaxDailyBookings
}

// RankStaff drops ineligible candidates and orders the rest by score,
// then by lower day load, then by lower id.
func RankStaff(candidates []*entity.StaffCandidate, category entity.ServiceCategory) []RankedStaff {
	ranked := make([]RankedStaff, 0, len(candidates))
	for _, c := range candidates {
		if !Eligible(c) {
			continue
		}
		specialized := c.Profile.HasSpecialization(category)
		ranked = append(ranked, RankedStaff{
			Candidate:   c,
			Score:       staffScore(c, specialized),
			Specialized: specialized,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Candidate.DayLoad != b.Candidate.DayLoad {
			return a.Candidate.DayLoad < b.Candidate.DayLoad
		}
		return bytes.Compare(a.Candidate.Profile.UserID[:], b.Candidate.Profile.UserID[:]) < 0
	})
	return ranked
}

func staffScore(c *entity.StaffCandidate, specialized bool) float64 {
	p := c.Profile

	match := 0.0
	if specialized {
		match = 1
	}
	rating, _ := p.Rating.Float64()
	load := 1 - float64(c.DayLoad)/float64(p.MaxDailyBookings)
	experience := math.Min(float64(p.CompletedJobs)/experienceCap, 1)

	score := weightSpecialization*match +
		weightRating*(rating/5) +
		weightLoad*load +
		weightExperience*experience

	// keep ties stable against float noise
	return math.Round(score*1e6) / 1e6
}
