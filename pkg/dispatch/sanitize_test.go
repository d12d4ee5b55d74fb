package dispatch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeRedactsSensitiveKeys(t *testing.T) {
	args := map[string]any{
		"password":    "hunter2",
		"api_key":     "sk-abc",
		"AUTH_TOKEN":  "xyz",
		"username":    "alice",
	}
	out := Sanitize(args)
	require.Equal(t, "[REDACTED]", out["password"])
	require.Equal(t, "[REDACTED]", out["api_key"])
	require.Equal(t, "[REDACTED]", out["AUTH_TOKEN"])
	require.Equal(t, "alice", out["username"])
}

func TestSanitizeTruncatesLongStrings(t *testing.T) {
	long := strings.Repeat("a", 600)
	out := Sanitize(map[string]any{"body": long})
	result := out["body"].(string)
	require.True(t, strings.HasSuffix(result, "...[truncated]"))
	require.Len(t, result, maxStringLength+len(truncationSuffix))
}

func TestSanitizeRecursesIntoNestedMaps(t *testing.T) {
	args := map[string]any{
		"config": map[string]any{
			"secret": "deep-secret",
			"nested": map[string]any{"token": "inner-token"},
		},
	}
	out := Sanitize(args)
	config := out["config"].(map[string]any)
	require.Equal(t, "[REDACTED]", config["secret"])
	nested := config["nested"].(map[string]any)
	require.Equal(t, "[REDACTED]", nested["token"])
}

func TestSanitizeDoesNotMutateInput(t *testing.T) {
	args := map[string]any{"password": "hunter2"}
	_ = Sanitize(args)
	require.Equal(t, "hunter2", args["password"])
}
