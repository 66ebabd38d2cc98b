package session

import (
	"testing"

	"github.com/danielpatrickdp/ssi-autopilot/internal/regulation"
	"github.com/stretchr/testify/assert"
)

func TestSessionOwnsBudget(t *testing.T) {
	s := newSession(outcome(map[regulation.Quota]int{regulation.QuotaFollow: 2}, nil))

	assert.NotEmpty(t, s.ID)
	assert.True(t, s.Authorize(regulation.QuotaFollow))
	assert.True(t, s.Authorize(regulation.QuotaFollow))
	assert.False(t, s.Authorize(regulation.QuotaFollow))
	assert.Equal(t, 2, s.Budget().Used(regulation.QuotaFollow))

	other := newSession(outcome(map[regulation.Quota]int{regulation.QuotaFollow: 2}, nil))
	assert.NotEqual(t, s.ID, other.ID)
	assert.Equal(t, 0, other.Budget().Used(regulation.QuotaFollow))
}

func TestEngageUsesOutcomeProbability(t *testing.T) {
	s := newSession(outcome(nil, map[regulation.Action]float64{regulation.ActionGroupLike: 1}))
	for i := 0; i < 100; i++ {
		assert.True(t, s.Engage(regulation.ActionGroupLike))
		assert.False(t, s.Engage(regulation.ActionGroupComment))
	}
}

func TestMatchesAnyAndTopProfile(t *testing.T) {
	assert.True(t, MatchesAny("Senior DATA Scientist @ Foo", []string{"data scientist"}))
	assert.False(t, MatchesAny("Baker", []string{"data", ""}))
	assert.True(t, IsTopProfile(Target{Top: true}, nil))
	assert.True(t, IsTopProfile(Target{Headline: "Databricks champion"}, DefaultHighValueKeywords))
	assert.False(t, IsTopProfile(Target{Headline: "Florist"}, DefaultHighValueKeywords))
}
