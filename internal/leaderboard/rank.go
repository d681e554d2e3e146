package leaderboard

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// StarGlyph is repeated once per star in an entry's star line.
const StarGlyph = ":star: "

// Medal icon URLs.
const (
	IconFirst         = "https://cdn-icons-png.flaticon.com/512/3975/3975625.png"
	IconSecond        = "https://cdn-icons-png.flaticon.com/512/3975/3975628.png"
	IconThird         = "https://cdn-icons-png.flaticon.com/512/3975/3975631.png"
	IconParticipation = "https://cdn-icons-png.flaticon.com/512/179/179251.png"
)

// dateLayout mirrors the numeric month/day/year short date used on the board.
const dateLayout = "1/2/2006"

// Medal decorates a ranked entry.
type Medal struct {
	ImageURL string
	AltText  string
}

// RankedEntry is a Member with its 0-based position and derived display fields.
type RankedEntry struct {
	Member
	Position     int
	StarGlyphs   string
	LastStarDate string
	// Medal is nil when the entry earns no decoration.
	Medal *Medal
}

// Rank stable-sorts members descending by local score, then stars, and
// derives display fields. Dates are formatted in loc. The input is not modified.
func Rank(members []Member, loc *time.Location) []RankedEntry {
	if loc == nil {
		loc = time.Local
	}
	sorted := make([]Member, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].LocalScore != sorted[j].LocalScore {
			return sorted[i].LocalScore > sorted[j].LocalScore
		}
		return sorted[i].Stars > sorted[j].Stars
	})

	entries := make([]RankedEntry, len(sorted))
	for i, m := range sorted {
		entries[i] = RankedEntry{
			Member:       m,
			Position:     i,
			StarGlyphs:   StarGlyphs(m.Stars),
			LastStarDate: FormatDate(m.LastStarAt, loc),
			Medal:        MedalFor(i, m.Stars),
		}
	}
	return entries
}

// StarGlyphs returns one StarGlyph per star, or "" for none.
func StarGlyphs(stars int) string {
	if stars <= 0 {
		return ""
	}
	return strings.Repeat(StarGlyph, stars)
}

// FormatDate renders t as a short date in loc, or "" for the zero time.
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(dateLayout)
}

// MedalFor returns the decoration for a 0-based position. Entries without a
// star never get one.
func MedalFor(position, stars int) *Medal {
	if stars < 1 {
		return nil
	}
	alt := fmt.Sprintf("%d position", position+1)
	switch position {
	case 0:
		return &Medal{ImageURL: IconFirst, AltText: alt}
	case 1:
		return &Medal{ImageURL: IconSecond, AltText: alt}
	case 2:
		return &Medal{ImageURL: IconThird, AltText: alt}
	default:
		return &Medal{ImageURL: IconParticipation, AltText: alt}
	}
}

// PodiumIcon returns the medal icon for a 1-based certificate rank.
func PodiumIcon(rank int) string {
	switch rank {
	case 1:
		return IconFirst
	case 2:
		return IconSecond
	case 3:
		return IconThird
	default:
		return IconParticipation
	}
}
