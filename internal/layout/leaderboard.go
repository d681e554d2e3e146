package layout

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/JakeFAU/leaderboard-webhooks/internal/leaderboard"
)

// BoardIcon is shown next to the invitation line.
const BoardIcon = "https://adventofcode.com/favicon.png"

// LeaderboardOptions carries the board-level fields of the standings message.
type LeaderboardOptions struct {
	BoardURL     string
	Organization string
	BoardCode    string
}

// Leaderboard renders the standings message: an invitation context line, a
// divider, one section plus divider per entry in order, and a closing link.
// The result always holds 2*len(entries)+3 blocks.
func Leaderboard(entries []leaderboard.RankedEntry, opts LeaderboardOptions) []slack.Block {
	blocks := make([]slack.Block, 0, 2*len(entries)+3)

	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewImageBlockElement(BoardIcon, "advent of code"),
		markdown(invitation(opts)),
	))
	blocks = append(blocks, slack.NewDividerBlock())

	for _, entry := range entries {
		blocks = append(blocks, entrySection(entry), slack.NewDividerBlock())
	}

	blocks = append(blocks, slack.NewSectionBlock(
		markdown(fmt.Sprintf(":arrow_right: <%s|*View online leaderboard*> :arrow_left:", opts.BoardURL)),
		nil,
		nil,
	))
	return blocks
}

func invitation(opts LeaderboardOptions) string {
	label := "Join the board"
	if org := strings.TrimSpace(opts.Organization); org != "" {
		label = fmt.Sprintf("Join the %s board", escape(org))
	}
	return fmt.Sprintf("<%s|*%s*> *%s*", opts.BoardURL, label, escape(opts.BoardCode))
}

func entrySection(entry leaderboard.RankedEntry) *slack.SectionBlock {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n*%d*  :points: ", escape(entry.DisplayName()), entry.LocalScore)
	if entry.StarGlyphs != "" {
		b.WriteString("\n" + entry.StarGlyphs)
	}
	if entry.LastStarDate != "" {
		b.WriteString("\n*Last star won* - " + entry.LastStarDate)
	}

	var accessory *slack.Accessory
	if entry.Medal != nil {
		accessory = slack.NewAccessory(slack.NewImageBlockElement(entry.Medal.ImageURL, entry.Medal.AltText))
	}
	return slack.NewSectionBlock(markdown(b.String()), nil, accessory)
}
