package layout

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"
)

// RawBlock is a caller-supplied block kept byte for byte. It lets block types
// and elements the slack library does not model pass through unchanged.
type RawBlock struct {
	Type    slack.MessageBlockType
	BlockID string
	JSON    json.RawMessage
}

// BlockType returns the block's "type" field.
func (b RawBlock) BlockType() slack.MessageBlockType { return b.Type }

// ID returns the block's "block_id" field, if any.
func (b RawBlock) ID() string { return b.BlockID }

// MarshalJSON emits the block exactly as it was received.
func (b RawBlock) MarshalJSON() ([]byte, error) { return b.JSON, nil }

// ParseBlocks wraps each raw block after checking it is an object with a
// non-empty string "type".
func ParseBlocks(raw []json.RawMessage) ([]slack.Block, error) {
	blocks := make([]slack.Block, 0, len(raw))
	for i, data := range raw {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, fmt.Errorf("block %d must be an object", i)
		}
		var head struct {
			Type    string `json:"type"`
			BlockID string `json:"block_id"`
		}
		if err := json.Unmarshal(trimmed, &head); err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		if head.Type == "" {
			return nil, fmt.Errorf("block %d has no type", i)
		}
		blocks = append(blocks, RawBlock{
			Type:    slack.MessageBlockType(head.Type),
			BlockID: head.BlockID,
			JSON:    append(json.RawMessage(nil), trimmed...),
		})
	}
	return blocks, nil
}
