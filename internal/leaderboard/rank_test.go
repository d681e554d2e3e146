package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankSortsByScoreThenStars(t *testing.T) {
	t.Parallel()

	members := []Member{
		{Name: "A", LocalScore: 50, Stars: 3},
		{Name: "B", LocalScore: 80, Stars: 1},
	}
	entries := Rank(members, time.UTC)

	require.Len(t, entries, 2)
	assert.Equal(t, "B", entries[0].Name)
	assert.Equal(t, 0, entries[0].Position)
	require.NotNil(t, entries[0].Medal)
	assert.Equal(t, IconFirst, entries[0].Medal.ImageURL)
	assert.Equal(t, "1 position", entries[0].Medal.AltText)

	assert.Equal(t, "A", entries[1].Name)
	assert.Equal(t, 1, entries[1].Position)
	require.NotNil(t, entries[1].Medal)
	assert.Equal(t, IconSecond, entries[1].Medal.ImageURL)

	assert.Equal(t, "A", members[0].Name, "input must not be reordered")
}

func TestRankIsStableAmongEqualKeys(t *testing.T) {
	t.Parallel()

	members := []Member{
		{Name: "top", LocalScore: 100, Stars: 10},
		{Name: "tie-1", LocalScore: 40, Stars: 4},
		{Name: "tie-2", LocalScore: 40, Stars: 4},
		{Name: "tie-3", LocalScore: 40, Stars: 4},
		{Name: "more-stars", LocalScore: 40, Stars: 5},
	}
	got := names(Rank(members, time.UTC))
	assert.Equal(t, []string{"top", "more-stars", "tie-1", "tie-2", "tie-3"}, got)

	reversed := []Member{members[0], members[3], members[2], members[1], members[4]}
	got = names(Rank(reversed, time.UTC))
	assert.Equal(t, []string{"top", "more-stars", "tie-3", "tie-2", "tie-1"}, got)
}

func TestRankPositionsAreDense(t *testing.T) {
	t.Parallel()

	members := make([]Member, 25)
	for i := range members {
		members[i] = Member{ID: int64(i), LocalScore: (i * 7) % 11, Stars: i % 3}
	}
	entries := Rank(members, time.UTC)
	require.Len(t, entries, len(members))
	for i, e := range entries {
		assert.Equal(t, i, e.Position)
		if i > 0 {
			prev := entries[i-1]
			ordered := prev.LocalScore > e.LocalScore ||
				(prev.LocalScore == e.LocalScore && prev.Stars >= e.Stars)
			assert.True(t, ordered, "entries %d and %d out of order", i-1, i)
		}
	}
	assert.Empty(t, Rank(nil, time.UTC))
}

func TestMedalFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		position int
		stars    int
		want     string
	}{
		{"gold", 0, 1, IconFirst},
		{"silver", 1, 5, IconSecond},
		{"bronze", 2, 2, IconThird},
		{"gold without stars", 0, 0, ""},
		{"bronze without stars", 2, 0, ""},
		{"participation", 3, 1, IconParticipation},
		{"far participation", 40, 12, IconParticipation},
		{"no stars outside podium", 7, 0, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			medal := MedalFor(tc.position, tc.stars)
			if tc.want == "" {
				assert.Nil(t, medal)
				return
			}
			require.NotNil(t, medal)
			assert.Equal(t, tc.want, medal.ImageURL)
		})
	}
}

func TestDerivedFields(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", StarGlyphs(0))
	assert.Equal(t, "", StarGlyphs(-1))
	assert.Equal(t, ":star: :star: :star: ", StarGlyphs(3))

	assert.Equal(t, "", FormatDate(time.Time{}, time.UTC))
	ts := time.Unix(1670300000, 0) // 2022-12-06T04:13:20Z
	assert.Equal(t, "12/6/2022", FormatDate(ts, time.UTC))
	assert.Equal(t, "12/5/2022", FormatDate(ts, time.FixedZone("EST", -5*60*60)))
}

func TestPodiumIcon(t *testing.T) {
	t.Parallel()

	assert.Equal(t, IconFirst, PodiumIcon(1))
	assert.Equal(t, IconSecond, PodiumIcon(2))
	assert.Equal(t, IconThird, PodiumIcon(3))
	assert.Equal(t, IconParticipation, PodiumIcon(4))
}

func names(entries []RankedEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}
