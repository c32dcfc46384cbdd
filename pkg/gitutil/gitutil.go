// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gitutil wraps the git operations the importer and the editor need:
// opening and cloning working trees, switching branches and applying diffs.
package gitutil

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fault"
	"gitlab.com/tozd/go/errors"
)

// DefaultRemote is the remote name used for clones.
const DefaultRemote = "origin"

// 📦 Repo is a git working tree on disk
type Repo struct {
	repo *git.Repository
	Path string
}

// Open opens the repository containing path.
func Open(ctx context.Context, path string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fault.New(fault.GitInit, "not a git repository", fault.WithTarget(path), fault.WithCause(err))
	}
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("opened git repository")
	return &Repo{repo: repo, Path: path}, nil
}

// Clone clones url into dir. An empty ref keeps the remote's default branch.
func Clone(ctx context.Context, url, dir, ref string) (*Repo, error) {
	opts := &git.CloneOptions{
		URL:        url,
		RemoteName: DefaultRemote,
	}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
	}

	zerolog.Ctx(ctx).Info().Str("url", url).Str("ref", ref).Str("dir", dir).Msg("cloning repository")
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return nil, fault.New(fault.GitInit, "clone failed", fault.WithTarget(url), fault.WithCause(err))
	}
	return &Repo{repo: repo, Path: dir}, nil
}

// Repository exposes the underlying go-git repository.
func (r *Repo) Repository() *git.Repository {
	return r.repo
}

// CurrentBranch returns the short name of the checked out branch.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fault.New(fault.GitGeneral, "reading HEAD", fault.WithTarget(r.Path), fault.WithCause(err))
	}
	if !head.Name().IsBranch() {
		return "", fault.New(fault.GitGeneral, "HEAD is detached", fault.WithTarget(r.Path))
	}
	return head.Name().Short(), nil
}

func (r *Repo) remoteRef(branch string) (*plumbing.Reference, error) {
	return r.repo.Reference(plumbing.NewRemoteReferenceName(DefaultRemote, branch), true)
}

// HasBranch reports whether branch exists locally or on the default remote.
func (r *Repo) HasBranch(branch string) bool {
	if _, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true); err == nil {
		return true
	}
	_, err := r.remoteRef(branch)
	return err == nil
}

// Branches lists local branch names.
func (r *Repo) Branches() ([]string, error) {
	iter, err := r.repo.Branches()
	if err != nil {
		return nil, errors.Errorf("listing branches: %w", err)
	}
	var out []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		out = append(out, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("iterating branches: %w", err)
	}
	return out, nil
}

// Checkout switches the working tree to branch, creating a local branch from
// the remote one when only the remote exists.
func (r *Repo) Checkout(ctx context.Context, branch string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fault.New(fault.GitCheckout, "opening worktree", fault.WithTarget(r.Path), fault.WithCause(err))
	}

	opts := &git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch)}
	if _, err := r.repo.Reference(opts.Branch, true); err != nil {
		remote, rerr := r.remoteRef(branch)
		if rerr != nil {
			return fault.New(fault.GitCheckout, "branch does not exist", fault.WithTarget(branch), fault.WithCause(err))
		}
		opts.Create = true
		opts.Hash = remote.Hash()
	}

	if err := wt.Checkout(opts); err != nil {
		return fault.New(fault.GitCheckout, "checkout failed", fault.WithTarget(branch), fault.WithCause(err))
	}
	zerolog.Ctx(ctx).Debug().Str("branch", branch).Str("path", r.Path).Msg("checked out branch")
	return nil
}

// Apply runs `git apply` for patchPath inside dir. git's stderr is kept on
// the returned fault.
func Apply(ctx context.Context, dir, patchPath string) error {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", "apply", patchPath)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	zerolog.Ctx(ctx).Debug().Str("dir", dir).Str("patch", patchPath).Msg("applying patch")
	if err := cmd.Run(); err != nil {
		return fault.New(fault.GitApply, "git apply failed",
			fault.WithTarget(patchPath),
			fault.WithStderr(stderr.String()),
			fault.WithCause(err))
	}
	return nil
}
