package model

import (
	"fmt"
	"time"
)

// Rarity is the tier of a badge.
type Rarity int

// Badge rarities, from most to least common.
const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
)

var rarityNames = [...]string{"common", "uncommon", "rare", "epic", "legendary"}

// String returns the lowercase rarity name stored in the database.
func (r Rarity) String() string {
	if r < RarityCommon || r > RarityLegendary {
		return fmt.Sprintf("rarity(%d)", int(r))
	}
	return rarityNames[r]
}

// ParseRarity converts a stored rarity name back to a Rarity.
func ParseRarity(s string) (Rarity, error) {
	for i, name := range rarityNames {
		if name == s {
			return Rarity(i), nil
		}
	}
	return RarityCommon, fmt.Errorf("unknown rarity %q", s)
}

// MarshalText encodes the rarity by name.
func (r Rarity) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a rarity name.
func (r *Rarity) UnmarshalText(text []byte) error {
	parsed, err := ParseRarity(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// BadgeDefinition describes an unlockable badge. BadgeID is the stable key.
type BadgeDefinition struct {
	BadgeID     string `db:"badge_id" json:"badge_id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
	Icon        string `db:"icon" json:"icon,omitempty"`
	Rarity      Rarity `db:"rarity" json:"rarity"`
}

// UserBadge records that a user owns a badge. (UserID, BadgeID) is unique.
type UserBadge struct {
	UserID     int64           `db:"user_id"`
	Badge      BadgeDefinition `db:"-"`
	UnlockedAt time.Time       `db:"unlocked_at"`
}
