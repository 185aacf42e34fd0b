package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docpanel/docflow/pkg/logger_i"
)

// DiskBlobStore keeps raw document bytes on local disk. The storage path is the
// opaque locator stored on the document record - just a filename under root here,
// an object key in deployments backed by a bucket.
type DiskBlobStore struct {
	root   string
	logger *logger_i.Logger
}

func NewDiskBlobStore(root string) (*DiskBlobStore, error) {
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &DiskBlobStore{
		root:   root,
		logger: logger_i.NewLogger("BlobStore"),
	}, nil
}

func (s *DiskBlobStore) Put(ctx context.Context, storagePath string, data []byte) error {
	full, err := s.resolve(storagePath)
	if err != nil {
		return err
	}
	return os.WriteFile(full, data, 0640)
}

func (s *DiskBlobStore) Get(ctx context.Context, storagePath string) ([]byte, error) {
	full, err := s.resolve(storagePath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

func (s *DiskBlobStore) Delete(ctx context.Context, storagePath string) error {
	full, err := s.resolve(storagePath)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if os.IsNotExist(err) {
		s.logger.Warn("Blob already gone", "storagePath", storagePath)
		return nil
	}
	return err
}

// resolve rejects locators that escape the blob root.
func (s *DiskBlobStore) resolve(storagePath string) (string, error) {
	cleaned := filepath.Clean(storagePath)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid storage path: %s", storagePath)
	}
	return filepath.Join(s.root, cleaned), nil
}
