package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// CopyIntoDatasetRoot copies the file at srcAbsPath into dataset ds's root,
// under relName (creating any intermediate directories), and returns
// relName for storage as a PathRef/ImagePath value. The Merge Executor
// calls it when replaying a message's media into a freshly created merged
// store; chat image files are not copied by the Executor.
func (db *DB) CopyIntoDatasetRoot(ds uuid.UUID, srcAbsPath, relName string) (string, error) {
	dst := filepath.Join(db.DatasetRoot(ds), relName)
	if err := copyFile(srcAbsPath, dst); err != nil {
		return "", fmt.Errorf("copy media %q: %w", relName, err)
	}
	return relName, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
