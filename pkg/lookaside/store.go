package lookaside

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/srpmproc/pkg/fault"
	"github.com/walteh/srpmproc/pkg/fsutil"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Store is content-addressed blob storage for source payloads
type Store interface {
	// Exists reports whether a blob with this digest is already stored
	Exists(ctx context.Context, hash string) (bool, error)
	// Put stores the blob under its digest
	Put(ctx context.Context, hash string, r io.Reader) error
}

// 🗄️ LocalStore keeps blobs in a directory, one file per digest
type LocalStore struct {
	Root string
}

// NewLocalStore creates a LocalStore rooted at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{Root: root}
}

func (s *LocalStore) blobPath(hash string) string {
	return filepath.Join(s.Root, hash[:2], hash)
}

func (s *LocalStore) Exists(ctx context.Context, hash string) (bool, error) {
	if len(hash) < 2 {
		return false, fault.New(fault.ProvidedValue, "invalid digest", fault.WithTarget(hash))
	}
	_, err := os.Stat(s.blobPath(hash))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Errorf("checking blob %s: %w", hash, err)
}

func (s *LocalStore) Put(ctx context.Context, hash string, r io.Reader) error {
	if len(hash) < 2 {
		return fault.New(fault.ProvidedValue, "invalid digest", fault.WithTarget(hash))
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return errors.Errorf("reading blob: %w", err)
	}
	dst := s.blobPath(hash)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Errorf("creating blob directory: %w", err)
	}
	if err := fsutil.WriteFileAtomic(dst, content); err != nil {
		return errors.Errorf("writing blob %s: %w", hash, err)
	}
	return nil
}

// UploadResult describes one upload.
type UploadResult struct {
	Hash     string
	Uploaded bool // false when the store already had the blob
}

// Upload hashes the file at p with sha256 and stores it unless the store
// already has that digest.
func Upload(ctx context.Context, store Store, p string) (*UploadResult, error) {
	logger := zerolog.Ctx(ctx)

	hash, err := fsutil.Checksum(p, fsutil.SHA256)
	if err != nil {
		return nil, fault.New(fault.Upload, "hashing payload", fault.WithTarget(p), fault.WithCause(err))
	}

	exists, err := store.Exists(ctx, hash)
	if err != nil {
		return nil, fault.New(fault.Upload, "checking lookaside", fault.WithTarget(p), fault.WithCause(err))
	}
	if exists {
		logger.Info().Str("file", filepath.Base(p)).Str("hash", hash).Msg("already in lookaside, skipping upload")
		return &UploadResult{Hash: hash}, nil
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, fault.New(fault.NotFound, "opening payload", fault.WithTarget(p), fault.WithCause(err))
	}
	defer f.Close()

	if err := store.Put(ctx, hash, f); err != nil {
		return nil, fault.New(fault.Upload, "uploading payload", fault.WithTarget(p), fault.WithCause(err))
	}
	logger.Info().Str("file", filepath.Base(p)).Str("hash", hash).Msg("uploaded to lookaside")
	return &UploadResult{Hash: hash, Uploaded: true}, nil
}
