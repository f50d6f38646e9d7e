package vision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVerdictFenced(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"isTricolorPresent\":true,\"reason\":\"ok\",\"colorsFound\":[\"saffron\",\"white\",\"green\"]}\n```"
	v, err := ParseVerdict(raw)
	require.NoError(t, err)
	require.True(t, v.IsTricolorPresent)
	require.Equal(t, []string{"saffron", "white", "green"}, v.ColorsFound)
	require.Equal(t, "ok", v.Reason)
}

func TestParseVerdictBare(t *testing.T) {
	t.Parallel()

	v, err := ParseVerdict(`{"isTricolorPresent":false,"reason":"no flag","colorsFound":[],"confidence":0.9,"orientation":"none"}`)
	require.NoError(t, err)
	require.False(t, v.IsTricolorPresent)
	require.Empty(t, v.ColorsFound)
	require.InDelta(t, 0.9, v.Confidence, 1e-9)
	require.Equal(t, "none", v.Orientation)
}

func TestParseVerdictNotJSON(t *testing.T) {
	t.Parallel()

	_, err := ParseVerdict("not json")
	require.ErrorIs(t, err, ErrUnparsable)

	_, err = ParseVerdict("```\nnot json\n```")
	require.ErrorIs(t, err, ErrUnparsable)

	_, err = ParseVerdict("")
	require.ErrorIs(t, err, ErrEmptyResult)
}

func TestParseVerdictMissingReason(t *testing.T) {
	t.Parallel()

	_, err := ParseVerdict(`{"isTricolorPresent":true,"reason":"","colorsFound":["saffron"]}`)
	require.ErrorIs(t, err, ErrUnparsable)
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	cases := map[string]struct{ in, want string }{
		"no fence":        {`{"a":1}`, `{"a":1}`},
		"lang tag":        {"```json\n{\"a\":1}\n```", `{"a":1}`},
		"no lang tag":     {"```\n{\"a\":1}\n```", `{"a":1}`},
		"single line":     {"```{\"a\":1}```", `{"a":1}`},
		"padding":         {"  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
		"missing closing": {"```json\n{\"a\":1}", `{"a":1}`},
	}
	for name, tc := range cases {
		require.Equal(t, tc.want, StripCodeFence(tc.in), name)
	}
}
