package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPostEncodesMessage(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil)
	err := c.Post(context.Background(), Message{
		Username:  "Advent of Code",
		IconEmoji: ":christmas_tree:",
		Blocks:    []slack.Block{slack.NewDividerBlock()},
	})
	require.NoError(t, err)

	assert.Equal(t, "Advent of Code", body["username"])
	assert.Equal(t, ":christmas_tree:", body["icon_emoji"])
	blocks, ok := body["blocks"].([]any)
	require.True(t, ok, "blocks should be an array: %v", body["blocks"])
	require.Len(t, blocks, 1)
	assert.Equal(t, "divider", blocks[0].(map[string]any)["type"])

	// Only the message fields plus the two flags the webhook payload type always carries.
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"username", "icon_emoji", "blocks", "replace_original", "delete_original"}, keys)
	assert.Equal(t, false, body["replace_original"])
	assert.Equal(t, false, body["delete_original"])
}

type verbatimBlock struct{ raw string }

func (b verbatimBlock) BlockType() slack.MessageBlockType { return "markdown" }
func (b verbatimBlock) ID() string                        { return "" }
func (b verbatimBlock) MarshalJSON() ([]byte, error)      { return []byte(b.raw), nil }

func TestClientPostKeepsCustomBlockJSON(t *testing.T) {
	t.Parallel()

	var body struct {
		Blocks json.RawMessage `json:"blocks"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	}))
	defer srv.Close()

	block := verbatimBlock{raw: `{"type":"markdown","text":"**Release 2.0** is out"}`}
	require.NoError(t, NewClient(srv.URL, srv.Client(), nil).Post(context.Background(), Message{Blocks: []slack.Block{block}}))
	assert.JSONEq(t, `[`+block.raw+`]`, string(body.Blocks))
}

func TestClientPostRejectsNon2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_blocks", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, srv.Client(), nil).Post(context.Background(), Message{})
	require.Error(t, err)
}

func TestClientPostWithoutURL(t *testing.T) {
	t.Parallel()

	err := NewClient("", nil, nil).Post(context.Background(), Message{})
	require.ErrorIs(t, err, ErrNoURL)
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	r := &Recorder{}
	require.NoError(t, r.Post(context.Background(), Message{Username: "a"}))
	require.Len(t, r.Messages, 1)

	r.Err = errors.New("down")
	require.Error(t, r.Post(context.Background(), Message{}))
	assert.Len(t, r.Messages, 1)
}
