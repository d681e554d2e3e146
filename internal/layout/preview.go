package layout

import (
	"github.com/slack-go/slack"

	"github.com/JakeFAU/leaderboard-webhooks/internal/linkpreview"
)

// DigestHeadline opens every link digest.
const DigestHeadline = "Stay Informed with the Top Stories of the Week 😎"

// LinkPreviews renders a digest: a headline and divider, then for each
// preview its title header, image and description with a "Read More" button,
// each only when present, closed by a divider.
func LinkPreviews(previews []linkpreview.Preview) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(plain(DigestHeadline, maxHeaderText)),
		slack.NewDividerBlock(),
	}
	for _, p := range previews {
		if p.Title != "" {
			blocks = append(blocks, slack.NewHeaderBlock(plain(p.Title, maxHeaderText)))
		}
		if p.Image != "" {
			var title *slack.TextBlockObject
			alt := p.URL
			if p.Title != "" {
				title = plain(p.Title, maxAltText)
				alt = p.Title
			}
			blocks = append(blocks, slack.NewImageBlock(p.Image, truncate(alt, maxAltText), "", title))
		}
		if p.Description != "" {
			var accessory *slack.Accessory
			if p.URL != "" {
				button := slack.NewButtonBlockElement("", "", plain("Read More", maxHeaderText))
				button.URL = p.URL
				accessory = slack.NewAccessory(button)
			}
			blocks = append(blocks, slack.NewSectionBlock(markdown(escape(p.Description)), nil, accessory))
		}
		blocks = append(blocks, slack.NewDividerBlock())
	}
	return blocks
}
