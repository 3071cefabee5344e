package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// mirror copies src, a file below root, to the same relative location below
// backupDir.
func mirror(root, backupDir, src string) error {
	rel, err := filepath.Rel(root, src)
	if err != nil {
		return err
	}
	dst := filepath.Join(backupDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}
