// Package certificate renders per-member completion certificates, stores them
// in a blob store, and requests them from a remote render service.
package certificate

import (
	"context"
	"image"
	"io"
)

// Member is one certificate request entry. Its 1-based rank is its position
// in the request list.
type Member struct {
	Name  string `json:"name"`
	Stars int    `json:"stars"`
}

// Certificate is a rendered certificate. Name and Rank are echoed back so
// callers never depend on result order.
type Certificate struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
	URL  string `json:"url"`
}

// Requester produces one certificate per member.
type Requester interface {
	Request(ctx context.Context, members []Member) ([]Certificate, error)
}

// BlobStore persists rendered images and returns a publicly resolvable URL.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// MedalSource loads the medal artwork for a 1-based rank.
type MedalSource interface {
	Medal(ctx context.Context, rank int) (image.Image, error)
}

// IDGenerator produces unique object name suffixes.
type IDGenerator interface {
	NewID() (string, error)
}
