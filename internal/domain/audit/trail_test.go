package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/entity"
)

func TestDiff(t *testing.T) {
	oldState := map[string]any{"remarks": "a", "lines": []any{1.0}, "gone": true}
	newState := map[string]any{"remarks": "b", "lines": []any{1.0}, "added": 1.0}

	d := Diff(oldState, newState)

	assert.Equal(t, map[string]any{"old": "a", "new": "b"}, d["remarks"])
	assert.NotContains(t, d, "lines")
	assert.Equal(t, map[string]any{"old": true, "new": nil}, d["gone"])
	assert.Equal(t, map[string]any{"old": nil, "new": 1.0}, d["added"])
}

func TestSnapshot(t *testing.T) {
	s, err := Snapshot(struct {
		Name string `json:"name"`
	}{"Main"})
	require.NoError(t, err)
	assert.Equal(t, "Main", s["name"])
}

func TestEnrich(t *testing.T) {
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "clerk"})
	h := entity.NewHeader(entity.NewBaseDocument().CreatedAt)

	require.NoError(t, EnrichCreatedBy(ctx, &h))
	assert.Equal(t, "clerk", h.CreatedBy)
	assert.Equal(t, "clerk", h.UpdatedBy)

	ctx = appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "editor"})
	require.NoError(t, EnrichUpdatedBy(ctx, &h))
	assert.Equal(t, "clerk", h.CreatedBy)
	assert.Equal(t, "editor", h.UpdatedBy)

	require.NoError(t, EnrichCreatedBy(context.Background(), &h))
	assert.Equal(t, "clerk", h.CreatedBy)
}
