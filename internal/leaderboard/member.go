// Package leaderboard fetches private leaderboard standings and ranks them
// for display.
package leaderboard

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Member is one participant as reported by the leaderboard service.
type Member struct {
	ID         int64
	Name       string
	Stars      int
	LocalScore int
	// LastStarAt is the zero time when the member has not earned a star.
	LastStarAt time.Time
}

// DisplayName returns the member's name, or a stable placeholder for
// anonymous participants.
func (m Member) DisplayName() string {
	if strings.TrimSpace(m.Name) != "" {
		return m.Name
	}
	return fmt.Sprintf("anonymous user #%d", m.ID)
}

// Board is the decoded leaderboard document.
type Board struct {
	Event   string
	OwnerID int64
	// Members are ordered by ascending member id.
	Members []Member
}

type boardDocument struct {
	Event   string                    `json:"event"`
	OwnerID int64                     `json:"owner_id"`
	Members map[string]memberDocument `json:"members"`
}

type memberDocument struct {
	ID         int64        `json:"id"`
	Name       *string      `json:"name"`
	Stars      int          `json:"stars"`
	LocalScore int          `json:"local_score"`
	LastStarTS epochSeconds `json:"last_star_ts"`
}

// epochSeconds decodes a unix timestamp that the service has emitted both as
// a number and as a quoted string over the years.
type epochSeconds int64

func (e *epochSeconds) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*e = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("parse last_star_ts %q: %w", raw, err)
	}
	*e = epochSeconds(v)
	return nil
}

// DecodeBoard parses the leaderboard JSON document. Members are keyed by id
// upstream, so they are returned in ascending id order to give the ranking a
// deterministic input order.
func DecodeBoard(data []byte) (Board, error) {
	var doc boardDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Board{}, fmt.Errorf("decode leaderboard: %w", err)
	}
	board := Board{
		Event:   doc.Event,
		OwnerID: doc.OwnerID,
		Members: make([]Member, 0, len(doc.Members)),
	}
	for key, md := range doc.Members {
		id := md.ID
		if id == 0 {
			if parsed, err := strconv.ParseInt(key, 10, 64); err == nil {
				id = parsed
			}
		}
		m := Member{
			ID:         id,
			Stars:      md.Stars,
			LocalScore: md.LocalScore,
		}
		if md.Name != nil {
			m.Name = *md.Name
		}
		if md.LastStarTS > 0 {
			m.LastStarAt = time.Unix(int64(md.LastStarTS), 0)
		}
		board.Members = append(board.Members, m)
	}
	sort.Slice(board.Members, func(i, j int) bool {
		return board.Members[i].ID < board.Members[j].ID
	})
	return board, nil
}
