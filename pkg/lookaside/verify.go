package lookaside

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fsutil"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// Mismatch is a manifest entry whose file content does not hash to the
// recorded digest.
type Mismatch struct {
	Path string
	Want string
	Got  string
}

// VerifyReport summarizes a verification run.
type VerifyReport struct {
	Checked    int
	Missing    []string // entries with no file in the tree, expected to live in the lookaside
	Mismatches []Mismatch
}

// OK reports whether no mismatch was found.
func (r *VerifyReport) OK() bool {
	return len(r.Mismatches) == 0
}

// Verify checksums every manifest entry present under pkgDir, running up to
// limit hashes at once.
func Verify(ctx context.Context, pkgDir string, md *Metadata, limit int) (*VerifyReport, error) {
	logger := zerolog.Ctx(ctx)
	if limit <= 0 {
		limit = 4
	}

	report := &VerifyReport{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, entry := range md.Entries() {
		entry := entry
		p := filepath.Join(pkgDir, filepath.FromSlash(entry.Path))
		if _, err := os.Stat(p); err != nil {
			mu.Lock()
			report.Missing = append(report.Missing, entry.Path)
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			got, err := fsutil.Checksum(p, entry.HashType)
			if err != nil {
				return errors.Errorf("hashing %s: %w", entry.Path, err)
			}

			mu.Lock()
			defer mu.Unlock()
			report.Checked++
			if got != entry.Hash {
				report.Mismatches = append(report.Mismatches, Mismatch{Path: entry.Path, Want: entry.Hash, Got: got})
				logger.Warn().Str("file", entry.Path).Str("want", entry.Hash).Str("got", got).Msg("checksum mismatch")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(report.Missing)
	sort.Slice(report.Mismatches, func(i, j int) bool { return report.Mismatches[i].Path < report.Mismatches[j].Path })
	return report, nil
}
