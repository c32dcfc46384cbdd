// Package testutils holds fixtures shared by the package tests: logger
// contexts, file trees and throwaway git repositories.
package testutils

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Context returns a context carrying a logger that writes to the test log.
func Context(t *testing.T) context.Context {
	t.Helper()
	logger := zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

// WriteTree writes files (relative path to content) under root.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755), "creating %s", rel)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644), "writing %s", rel)
	}
}

// ReadFile returns the content of root/rel.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err, "reading %s", rel)
	return string(data)
}

// InitRepo creates a git repository in dir holding files as its first
// commit on master.
func InitRepo(t *testing.T, dir string, files map[string]string) *git.Repository {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err, "initializing repository")
	WriteTree(t, dir, files)
	Commit(t, repo, "initial import")
	return repo
}

// Commit stages everything in the worktree and commits it.
func Commit(t *testing.T, repo *git.Repository, msg string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err, "opening worktree")
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}), "staging files")
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.org", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err, "committing")
	return hash
}

// Branch creates branch at the current HEAD, checks it out, writes files and
// commits them.
func Branch(t *testing.T, repo *git.Repository, branch string, files map[string]string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err, "opening worktree")
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	}), "creating branch %s", branch)
	if len(files) > 0 {
		WriteTree(t, wt.Filesystem.Root(), files)
		Commit(t, repo, "changes for "+branch)
	}
}

// Switch checks out an existing branch.
func Switch(t *testing.T, repo *git.Repository, branch string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err, "opening worktree")
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
	}), "checking out %s", branch)
}

// MockStore is a testify mock of lookaside.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Exists(ctx context.Context, hash string) (bool, error) {
	args := m.Called(ctx, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Put(ctx context.Context, hash string, r io.Reader) error {
	args := m.Called(ctx, hash, r)
	return args.Error(0)
}
