// Package progression derives levels and ranks from total XP.
package progression

// XPPerLevel is the amount of XP needed for each level.
const XPPerLevel = 100

// RankTier is one named rank and the XP required to reach it.
type RankTier struct {
	Name  string
	MinXP int64
}

// ranks must stay sorted by MinXP ascending and start at 0.
var ranks = []RankTier{
	{Name: "Newcomer", MinXP: 0},
	{Name: "Explorer", MinXP: 100},
	{Name: "Builder", MinXP: 300},
	{Name: "Contributor", MinXP: 600},
	{Name: "Innovator", MinXP: 1000},
	{Name: "Leader", MinXP: 1500},
	{Name: "Expert", MinXP: 2500},
	{Name: "Master", MinXP: 4000},
	{Name: "Solana Legend", MinXP: 6000},
}

// NextRankInfo describes the next rank above a given XP total.
type NextRankInfo struct {
	Name     string
	MinXP    int64
	Progress float64 // 0..1 between the current and next threshold
}

// Level returns floor(xp/100)+1. Negative totals are treated as 0.
func Level(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/XPPerLevel) + 1
}

// Rank returns the name of the highest rank whose threshold is <= xp.
func Rank(xp int64) string {
	return ranks[rankIndex(xp)].Name
}

// NextRank returns the next rank above xp and the progress toward it.
// The second return value is false at the maximum rank.
func NextRank(xp int64) (NextRankInfo, bool) {
	i := rankIndex(xp)
	if i == len(ranks)-1 {
		return NextRankInfo{}, false
	}

	prev, next := ranks[i], ranks[i+1]
	progress := float64(xp-prev.MinXP) / float64(next.MinXP-prev.MinXP)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	return NextRankInfo{Name: next.Name, MinXP: next.MinXP, Progress: progress}, true
}

// Ranks returns a copy of the rank table.
func Ranks() []RankTier {
	out := make([]RankTier, len(ranks))
	copy(out, ranks)
	return out
}

func rankIndex(xp int64) int {
	idx := 0
	for i, r := range ranks {
		if r.MinXP <= xp {
			idx = i
		}
	}
	return idx
}
