package convert

import "context"

const mockTokensUsed = 85

// MockEngine returns fixed content; real media analysis is not integrated.
type MockEngine struct{}

func NewMockEngine() *MockEngine { return &MockEngine{} }

func (*MockEngine) Convert(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{
		Type:    req.Type,
		Summary: "Mock response for " + req.Input,
		Elements: []Element{
			{ID: "e1", Type: "mock", Content: "Integration pending"},
		},
		Metadata: map[string]any{
			"max_tokens": req.MaxTokens,
			"input":      truncate(req.Input, 100),
			"detail":     DetailLevel(req.MaxTokens),
		},
		Expandable: []string{"e1"},
		TokensUsed: mockTokensUsed,
	}, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
