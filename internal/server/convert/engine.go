// Package convert defines the media-to-JSON conversion contract and the
// placeholder engine the gateway ships with.
package convert

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/any2json/internal/common"
)

const DefaultMaxTokens = 500

// Media types accepted by Convert. Auto is resolved before the engine runs.
const (
	TypeAuto     = "auto"
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeAudio    = "audio"
	TypeDocument = "document"
)

type Request struct {
	Input     string   `json:"input"`
	Type      string   `json:"type,omitempty"`
	MaxTokens int      `json:"max_tokens,omitempty"`
	Expand    []string `json:"expand,omitempty"`
}

type Element struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

type Result struct {
	Type       string         `json:"type"`
	Summary    string         `json:"summary"`
	Elements   []Element      `json:"elements"`
	Text       *string        `json:"text,omitempty"`
	Metadata   map[string]any `json:"metadata"`
	Expandable []string       `json:"_expandable"`
	TokensUsed int            `json:"_tokens_used"`
}

// Engine turns a media reference into structured JSON.
type Engine interface {
	Convert(ctx context.Context, req Request) (*Result, error)
}

// Normalize applies defaults and validates the request in place.
func (r *Request) Normalize() error {
	if r.Input == "" {
		return fmt.Errorf("%w: input is required", common.ErrorValidation)
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("%w: max_tokens must be positive", common.ErrorValidation)
	}

	switch r.Type {
	case "", TypeAuto:
		r.Type = TypeImage
	case TypeImage, TypeVideo, TypeAudio, TypeDocument:
	default:
		return fmt.Errorf("%w: unsupported type %q", common.ErrorValidation, r.Type)
	}
	return nil
}

// DetailLevel names the output budget tier for maxTokens.
func DetailLevel(maxTokens int) string {
	switch {
	case maxTokens <= 200:
		return "brief"
	case maxTokens <= 500:
		return "summary"
	case maxTokens <= 2000:
		return "detailed"
	default:
		return "exhaustive"
	}
}
