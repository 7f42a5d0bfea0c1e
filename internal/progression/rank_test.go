package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestLevelFormulaProperty checks level == floor(xp/100)+1 for any non-negative total.
func TestLevelFormulaProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		xp := rapid.Int64Range(0, 10_000_000).Draw(t, "xp")

		expected := int(xp/100) + 1
		if got := Level(xp); got != expected {
			t.Fatalf("Level(%d): expected %d, got %d", xp, expected, got)
		}
	})
}

// TestRankMatchesHighestThresholdProperty checks the rank is the last tier with MinXP <= xp.
func TestRankMatchesHighestThresholdProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		xp := rapid.Int64Range(0, 20_000).Draw(t, "xp")

		expected := ""
		for _, r := range Ranks() {
			if r.MinXP <= xp {
				expected = r.Name
			}
		}

		if got := Rank(xp); got != expected {
			t.Fatalf("Rank(%d): expected %q, got %q", xp, expected, got)
		}
	})
}

// TestNextRankProgressBoundsProperty checks progress stays in [0,1] and the next threshold is above xp.
func TestNextRankProgressBoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		xp := rapid.Int64Range(0, 5_999).Draw(t, "xp")

		next, ok := NextRank(xp)
		if !ok {
			t.Fatalf("NextRank(%d) should exist below max rank", xp)
		}
		if next.MinXP <= xp {
			t.Fatalf("NextRank(%d) threshold %d is not above xp", xp, next.MinXP)
		}
		if next.Progress < 0 || next.Progress > 1 {
			t.Fatalf("NextRank(%d) progress %f out of bounds", xp, next.Progress)
		}
	})
}

func TestRankThresholds(t *testing.T) {
	tests := []struct {
		xp   int64
		want string
	}{
		{0, "Newcomer"},
		{99, "Newcomer"},
		{100, "Explorer"},
		{299, "Explorer"},
		{300, "Builder"},
		{600, "Contributor"},
		{1000, "Innovator"},
		{1500, "Leader"},
		{2500, "Expert"},
		{4000, "Master"},
		{5999, "Master"},
		{6000, "Solana Legend"},
		{1_000_000, "Solana Legend"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Rank(tt.xp), "xp=%d", tt.xp)
	}
}

func TestLevel(t *testing.T) {
	assert.Equal(t, 1, Level(0))
	assert.Equal(t, 1, Level(95))
	assert.Equal(t, 2, Level(105))
	assert.Equal(t, 61, Level(6000))
	assert.Equal(t, 1, Level(-50))
}

func TestNextRank(t *testing.T) {
	next, ok := NextRank(200)
	require.True(t, ok)
	assert.Equal(t, "Builder", next.Name)
	assert.Equal(t, int64(300), next.MinXP)
	assert.InDelta(t, 0.5, next.Progress, 1e-9)

	next, ok = NextRank(0)
	require.True(t, ok)
	assert.Equal(t, "Explorer", next.Name)
	assert.InDelta(t, 0.0, next.Progress, 1e-9)

	_, ok = NextRank(6000)
	assert.False(t, ok)
	_, ok = NextRank(9999)
	assert.False(t, ok)
}

func TestRanksReturnsCopy(t *testing.T) {
	table := Ranks()
	table[0].Name = "changed"
	assert.Equal(t, "Newcomer", Rank(0))
}
