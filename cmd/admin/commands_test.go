package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-repository/pkg/contentrepo"
	"github.com/tendant/content-repository/pkg/contentrepo/config"
)

// newMemoryRuntime returns a factory that hands out one shared in-memory runtime
func newMemoryRuntime(t *testing.T, opts ...config.Option) (*config.Runtime, runtimeFactory) {
	t.Helper()
	serverConfig, err := config.Load(append([]config.Option{config.WithMetrics(false)}, opts...)...)
	require.NoError(t, err)
	rt, err := serverConfig.BuildRuntime(context.Background(), nil)
	require.NoError(t, err)
	return rt, func(ctx context.Context) (*config.Runtime, error) { return rt, nil }
}

func run(t *testing.T, factory runtimeFactory, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAdminLifecycle(t *testing.T) {
	rt, factory := newMemoryRuntime(t)
	ctx := context.Background()

	out, err := run(t, factory, "store", "--name", "docs", "--group", "--parent", "root")
	require.NoError(t, err)
	assert.Equal(t, "Stored 1000\n", out)

	out, err = run(t, factory, "store", "--name", "readme", "--parent", "1000", "--content", "hello", "--json")
	require.NoError(t, err)
	var stored map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &stored))
	assert.Equal(t, "1001", stored["id"])

	out, err = run(t, factory, "children", "1000")
	require.NoError(t, err)
	assert.Equal(t, "1001\n", out)

	_, err = run(t, factory, "store", "--id", "1001", "--name", "readme", "--content", "hello again")
	require.NoError(t, err)
	entity, found, err := rt.Repository.Get(ctx, 1001)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("hello again"), entity.Content())

	_, err = run(t, factory, "remove", "1000")
	var notEmpty *contentrepo.GroupNotEmptyError
	assert.ErrorAs(t, err, &notEmpty)

	out, err = run(t, factory, "remove", "1001")
	require.NoError(t, err)
	assert.Equal(t, "Removed 1001\n", out)

	out, err = run(t, factory, "recyclebin")
	require.NoError(t, err)
	assert.Contains(t, out, "readme")
	assert.Contains(t, out, "Total: 1")

	out, err = run(t, factory, "recover", "1001")
	require.NoError(t, err)
	assert.Equal(t, "Recovered 1001\n", out)

	out, err = run(t, factory, "history", "1001", "--json")
	require.NoError(t, err)
	var entries []contentrepo.HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	kinds := make([]contentrepo.EventKind, 0, len(entries))
	for _, entry := range entries {
		kinds = append(kinds, entry.Kind)
	}
	assert.Equal(t, []contentrepo.EventKind{
		contentrepo.EventCreated, contentrepo.EventUpdated, contentrepo.EventRemoved, contentrepo.EventRestored,
	}, kinds)
}

func TestAdminVersions(t *testing.T) {
	_, factory := newMemoryRuntime(t)

	_, err := run(t, factory, "store", "--name", "notes", "--parent", "root", "--content", "v1")
	require.NoError(t, err)

	out, err := run(t, factory, "versions", "1000", "--json")
	require.NoError(t, err)
	var versions []string
	require.NoError(t, json.Unmarshal([]byte(out), &versions))
	assert.Len(t, versions, 1)

	out, err = run(t, factory, "prune", "1000", "--keep", "1")
	require.NoError(t, err)
	assert.Equal(t, "Pruned 0 version(s) of 1000\n", out)

	_, err = run(t, factory, "prune", "1000", "--keep", "0")
	assert.ErrorIs(t, err, contentrepo.ErrInvalidArgument)
}

func TestAdminStoreFromFile(t *testing.T) {
	rt, factory := newMemoryRuntime(t)
	path := filepath.Join(t.TempDir(), "body.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o644))

	_, err := run(t, factory, "store", "--name", "body", "--parent", "root", "--file", path)
	require.NoError(t, err)

	entity, found, err := rt.Repository.Get(context.Background(), 1000)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("from file"), entity.Content())
}

func TestAdminLocking(t *testing.T) {
	rt, factory := newMemoryRuntime(t)
	_, err := run(t, factory, "store", "--name", "notes", "--parent", "root")
	require.NoError(t, err)

	out, err := run(t, factory, "lock", "1000", "--actor", "alice")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "Locked 1000 by alice"))

	lock, held, err := rt.Locks.GetLock(context.Background(), 1000)
	require.NoError(t, err)
	require.True(t, held)

	_, err = run(t, factory, "remove", "1000", "--actor", "alice")
	var locked *contentrepo.EntityLockedError
	assert.ErrorAs(t, err, &locked)

	_, err = run(t, factory, "unlock", "1000", lock.Token.String())
	require.NoError(t, err)

	_, err = run(t, factory, "remove", "1000")
	assert.NoError(t, err)
}

func TestAdminArgumentErrors(t *testing.T) {
	_, factory := newMemoryRuntime(t)

	tests := []struct {
		name string
		args []string
	}{
		{"store without name", []string{"store", "--parent", "root"}},
		{"group with content", []string{"store", "--name", "g", "--group", "--content", "x"}},
		{"non-numeric remove", []string{"remove", "abc"}},
		{"recover missing item", []string{"recover", "99"}},
		{"lock without actor", []string{"lock", "1"}},
		{"unlock with bad token", []string{"unlock", "1", "not-a-uuid"}},
		{"unknown anchor", []string{"children", "nowhere"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, factory, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestAdminPolicyActor(t *testing.T) {
	_, factory := newMemoryRuntime(t, config.WithAccessPolicy("admin"))

	_, err := run(t, factory, "store", "--name", "notes", "--parent", "root")
	var denied *contentrepo.AccessDeniedError
	assert.ErrorAs(t, err, &denied)

	_, err = run(t, factory, "store", "--name", "notes", "--parent", "root", "--actor", "admin")
	assert.NoError(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
