package access_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-repository/pkg/contentrepo"
	"github.com/tendant/content-repository/pkg/contentrepo/access"
	"github.com/tendant/content-repository/pkg/contentrepo/repo/memory"
)

func setupPolicy(t *testing.T) *access.Policy {
	t.Helper()
	ctx := context.Background()
	repo := memory.New()

	// 1 (root) -> 2 (news) -> 3 (article)
	require.NoError(t, repo.Store(ctx, contentrepo.NewGroup("root").WithIdentifier(contentrepo.IdentifierOf(1))))
	require.NoError(t, repo.Store(ctx, contentrepo.NewGroup("news").
		WithIdentifier(contentrepo.IdentifierOf(2)).
		WithParent(contentrepo.IdentifierOf(1))))
	require.NoError(t, repo.Store(ctx, contentrepo.NewEntity("article", []byte("text")).
		WithIdentifier(contentrepo.IdentifierOf(3)).
		WithParent(contentrepo.IdentifierOf(2))))

	policy := access.NewPolicy(repo, nil)
	policy.Grant("editor", 2, access.PermissionCreate, access.PermissionWrite)
	policy.Grant("admin", 1, access.PermissionAdmin)
	return policy
}

func TestPolicy(t *testing.T) {
	policy := setupPolicy(t)

	tests := []struct {
		name  string
		actor string
		check func(ctx context.Context) bool
		want  bool
	}{
		{"editor creates in granted group", "editor", func(ctx context.Context) bool { return policy.IsEntityCreateable(ctx, 2) }, true},
		{"editor writes entity below granted group", "editor", func(ctx context.Context) bool { return policy.IsEntityWritable(ctx, 3) }, true},
		{"editor cannot remove", "editor", func(ctx context.Context) bool { return policy.IsEntityRemovable(ctx, 3) }, false},
		{"editor cannot create in root", "editor", func(ctx context.Context) bool { return policy.IsGroupCreateable(ctx, 1) }, false},
		{"admin inherits everywhere", "admin", func(ctx context.Context) bool { return policy.IsGroupRemoveable(ctx, 2) }, true},
		{"unknown actor", "guest", func(ctx context.Context) bool { return policy.IsEntityWritable(ctx, 3) }, false},
		{"unknown entity", "editor", func(ctx context.Context) bool { return policy.IsEntityWritable(ctx, 99) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := contentrepo.WithActor(context.Background(), tt.actor)
			assert.Equal(t, tt.want, tt.check(ctx))
		})
	}
}

func TestPolicy_RequiresActor(t *testing.T) {
	policy := setupPolicy(t)
	assert.False(t, policy.IsEntityCreateable(context.Background(), 2))
}

func TestPolicy_Revoke(t *testing.T) {
	policy := setupPolicy(t)
	ctx := contentrepo.WithActor(context.Background(), "editor")

	require.True(t, policy.IsEntityCreateable(ctx, 2))
	policy.Revoke("editor", 2)
	assert.False(t, policy.IsEntityCreateable(ctx, 2))
}

func TestAllowAll(t *testing.T) {
	var ac contentrepo.AccessControl = access.AllowAll{}
	ctx := context.Background()

	assert.True(t, ac.IsEntityCreateable(ctx, 1))
	assert.True(t, ac.IsEntityWritable(ctx, 1))
	assert.True(t, ac.IsEntityRemovable(ctx, 1))
	assert.True(t, ac.IsGroupRemoveable(ctx, 1))
	assert.True(t, ac.IsGroupCreateable(ctx, 1))
}
