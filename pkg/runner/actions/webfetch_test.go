package actions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractReadableTextStripsScriptAndStyle(t *testing.T) {
	html := `<html><head><title>Hi</title><style>.x{}</style></head>
		<body><script>var x=1;</script><p>Hello world</p></body></html>`

	text, title, err := extractReadableText(html)
	require.NoError(t, err)
	require.Equal(t, "Hi", title)
	require.Contains(t, text, "Hello world")
	require.NotContains(t, text, "var x")
	require.NotContains(t, text, ".x{}")
}

func TestExtractReadableTextTruncates(t *testing.T) {
	long := ""
	for len(long) < maxFetchBodyBytes+500 {
		long += "x"
	}
	text, _, err := extractReadableText("<html><body><p>" + long + "</p></body></html>")
	require.NoError(t, err)
	require.LessOrEqual(t, len(text), maxFetchBodyBytes)
}
