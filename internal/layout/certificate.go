package layout

import (
	"fmt"
	"sort"

	"github.com/slack-go/slack"

	"github.com/JakeFAU/leaderboard-webhooks/internal/certificate"
)

// Certificates renders one titled image plus a divider per certificate,
// ordered by rank. There is no header or footer.
func Certificates(certs []certificate.Certificate) []slack.Block {
	ordered := make([]certificate.Certificate, len(certs))
	copy(ordered, certs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	blocks := make([]slack.Block, 0, 2*len(ordered))
	for _, c := range ordered {
		title := plain(fmt.Sprintf("Congratulations %s 🎊", c.Name), maxAltText)
		alt := truncate(fmt.Sprintf("%s - %d position certificate", c.Name, c.Rank), maxAltText)
		blocks = append(blocks, slack.NewImageBlock(c.URL, alt, "", title), slack.NewDividerBlock())
	}
	return blocks
}
