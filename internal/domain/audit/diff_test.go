package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	got := Diff(
		map[string]any{"name": "Acme", "slug": "acme", "plan": "free"},
		map[string]any{"name": "Acme Inc", "slug": "acme", "region": "eu"},
	)

	assert.Equal(t, map[string]any{
		"name":   map[string]any{"old": "Acme", "new": "Acme Inc"},
		"plan":   map[string]any{"old": "free", "new": nil},
		"region": map[string]any{"old": nil, "new": "eu"},
	}, got)
}

func TestDiff_NoChanges(t *testing.T) {
	assert.Empty(t, Diff(map[string]any{"name": "Acme"}, map[string]any{"name": "Acme"}))
}
