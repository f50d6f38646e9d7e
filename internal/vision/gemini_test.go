package vision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func stubbed(raw string, err error) *Gemini {
	return &Gemini{
		model: "test-model",
		generate: func(ctx context.Context, image []byte, mime string) (string, error) {
			return raw, err
		},
	}
}

func TestClassifyStripsFenceAndParses(t *testing.T) {
	t.Parallel()

	g := stubbed("```json\n{\"isTricolorPresent\":true,\"reason\":\"ok\",\"colorsFound\":[\"saffron\",\"white\",\"green\"]}\n```", nil)
	v, err := g.Classify(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
	require.NoError(t, err)
	require.True(t, v.IsTricolorPresent)
	require.Len(t, v.ColorsFound, 3)
}

func TestClassifyTransportError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	g := stubbed("", boom)
	_, err := g.Classify(context.Background(), nil, "image/jpeg")
	require.ErrorIs(t, err, boom)
}

func TestClassifyUnparsableResponse(t *testing.T) {
	t.Parallel()

	g := stubbed("not json", nil)
	_, err := g.Classify(context.Background(), nil, "image/jpeg")
	require.ErrorIs(t, err, ErrUnparsable)
}

func TestNewGeminiRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewGemini(context.Background(), "  ", "gemini-2.0-flash")
	require.ErrorIs(t, err, ErrNoAPIKey)
}
