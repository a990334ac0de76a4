package convert

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Normalize(t *testing.T) {
	r := Request{Input: "https://x/y.png"}
	require.NoError(t, r.Normalize())
	assert.Equal(t, TypeImage, r.Type)
	assert.Equal(t, DefaultMaxTokens, r.MaxTokens)

	r = Request{Input: "a", Type: TypeAudio, MaxTokens: 100}
	require.NoError(t, r.Normalize())
	assert.Equal(t, TypeAudio, r.Type)

	for _, bad := range []Request{
		{},
		{Input: "a", Type: "hologram"},
		{Input: "a", MaxTokens: -5},
	} {
		assert.ErrorIs(t, bad.Normalize(), common.ErrorValidation, "%+v", bad)
	}
}

func TestDetailLevel(t *testing.T) {
	cases := map[int]string{1: "brief", 200: "brief", 201: "summary", 500: "summary", 2000: "detailed", 2001: "exhaustive"}
	for tokens, want := range cases {
		assert.Equal(t, want, DetailLevel(tokens), tokens)
	}
}

func TestMockEngine_Convert(t *testing.T) {
	input := strings.Repeat("é", 150)
	res, err := NewMockEngine().Convert(context.Background(), Request{Input: input, Type: TypeImage, MaxTokens: 300})
	require.NoError(t, err)

	assert.Equal(t, "Mock response for "+input, res.Summary)
	assert.Equal(t, []string{"e1"}, res.Expandable)
	assert.Equal(t, 85, res.TokensUsed)
	assert.Equal(t, "summary", res.Metadata["detail"])
	assert.Equal(t, 100, len([]rune(res.Metadata["input"].(string))))

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"_expandable":["e1"]`)
	assert.Contains(t, string(raw), `"_tokens_used":85`)
	assert.NotContains(t, string(raw), `"text"`)
}

func TestMockEngine_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockEngine().Convert(ctx, Request{Input: "a"})
	assert.ErrorIs(t, err, context.Canceled)
}
