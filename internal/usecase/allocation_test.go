package usecase

import (
	"testing"

	"cleaning-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id string, specs []string, rating string, load, maxDaily, jobs int) *entity.StaffCandidate {
	return &entity.StaffCandidate{
		Profile: &entity.StaffProfile{
			UserID:           uuid.MustParse(id),
			Specializations:  specs,
			IsAvailable:      true,
			MaxDailyBookings: maxDaily,
			Rating:           decimal.RequireFromString(rating),
			CompletedJobs:    jobs,
		},
		DayLoad: load,
	}
}

func TestRankStaff(t *testing.T) {
	expert := candidate("00000000-0000-0000-0000-00000000000a", []string{"deep_cleaning"}, "5", 0, 4, 50)
	generalist := candidate("00000000-0000-0000-0000-00000000000b", []string{"window"}, "5", 0, 4, 50)

	unavailable := candidate("00000000-0000-0000-0000-00000000000c", []string{"deep_cleaning"}, "5", 0, 4, 50)
	unavailable.Profile.IsAvailable = false
	busy := candidate("00000000-0000-0000-0000-00000000000d", []string{"deep_cleaning"}, "5", 0, 4, 50)
	busy.HasConflict = true
	full := candidate("00000000-0000-0000-0000-00000000000e", []string{"deep_cleaning"}, "5", 4, 4, 50)

	ranked := RankStaff([]*entity.StaffCandidate{generalist, unavailable, busy, full, expert}, entity.CategoryDeepCleaning)

	require.Len(t, ranked, 2)
	assert.Equal(t, expert, ranked[0].Candidate)
	assert.InDelta(t, 1.0, ranked[0].Score, 1e-9)
	assert.True(t, ranked[0].Specialized)
	assert.Equal(t, generalist, ranked[1].Candidate)
	assert.InDelta(t, 0.6, ranked[1].Score, 1e-9)
	assert.False(t, ranked[1].Specialized)
}

func TestRankStaff_TieBreaks(t *testing.T) {
	// both score 0.9: one trades load for experience
	loaded := candidate("00000000-0000-0000-0000-000000000001", []string{"carpet"}, "5", 2, 4, 50)
	fresh := candidate("00000000-0000-0000-0000-000000000002", []string{"carpet"}, "5", 0, 4, 0)

	ranked := RankStaff([]*entity.StaffCandidate{loaded, fresh}, entity.CategoryCarpet)
	require.Len(t, ranked, 2)
	assert.Equal(t, ranked[0].Score, ranked[1].Score)
	assert.Equal(t, fresh, ranked[0].Candidate, "lower day load wins a tie")

	twinB := candidate("00000000-0000-0000-0000-0000000000bb", nil, "4", 1, 4, 10)
	twinA := candidate("00000000-0000-0000-0000-0000000000aa", nil, "4", 1, 4, 10)

	ranked = RankStaff([]*entity.StaffCandidate{twinB, twinA}, entity.CategoryWindow)
	require.Len(t, ranked, 2)
	assert.Equal(t, twinA, ranked[0].Candidate, "lower id wins a full tie")
}

func TestRankStaff_NoEligible(t *testing.T) {
	off := candidate("00000000-0000-0000-0000-000000000003", nil, "3", 0, 0, 0)
	assert.Empty(t, RankStaff([]*entity.StaffCandidate{off}, entity.CategoryResidential))
	assert.Empty(t, RankStaff(nil, entity.CategoryResidential))
}
