package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm    = 0o700
	tempPrefix = ".tusk-tmp-"
)

// FS is a Provider over a directory on the local disk. Day files are
// personal data, so directories it creates are private to the owner.
type FS struct {
	root string
}

// NewFS opens the vault at root, creating it when missing.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

func (f *FS) Root() string { return f.root }

// resolve maps a slash-separated vault path onto the disk. Paths must stay
// inside the vault.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" || rel == "." {
		return f.root, nil
	}
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("storage: path outside vault: %q", rel)
	}
	return filepath.Join(f.root, local), nil
}

// skipEntry reports whether a walk should ignore name. Hidden entries
// cover VCS metadata kept in the vault and temp files from interrupted
// writes.
func skipEntry(name string) bool {
	return strings.HasPrefix(name, ".")
}

func (f *FS) meta(abs string, info fs.FileInfo, data []byte) FileMeta {
	rel, _ := filepath.Rel(f.root, abs)
	return FileMeta{
		Path:      filepath.ToSlash(rel),
		Checksum:  Checksum(data),
		UpdatedAt: info.ModTime().UTC(),
	}
}

// List returns every file under dir whose name ends in ext, in lexical
// path order. For day files that is date order. A missing dir is empty.
func (f *FS) List(dir, ext string) ([]FileMeta, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	var out []FileMeta
	walk := func(p string, d fs.DirEntry, walkErr error) error {
		switch {
		case walkErr != nil && p == base && errors.Is(walkErr, fs.ErrNotExist):
			return fs.SkipAll
		case walkErr != nil:
			return walkErr
		case p != base && skipEntry(d.Name()):
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		case d.IsDir() || !strings.HasSuffix(d.Name(), ext):
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, f.meta(p, info, data))
		return nil
	}
	if err := filepath.WalkDir(base, walk); err != nil {
		return nil, fmt.Errorf("storage: list %q: %w", dir, err)
	}
	return out, nil
}

// Stat describes one file. A missing file matches fs.ErrNotExist.
func (f *FS) Stat(path string) (FileMeta, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return FileMeta{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileMeta{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return FileMeta{}, fmt.Errorf("storage: %s is a directory", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return FileMeta{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return f.meta(abs, info, data), nil
}

// Read returns a file's bytes. A missing file matches fs.ErrNotExist.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces path with content via a synced temp file in the same
// directory and a rename, so readers see the old or the new day, never a
// torn one.
func (f *FS) Write(path string, content []byte) (err error) {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), abs); err != nil {
		return fmt.Errorf("storage: commit %s: %w", path, err)
	}
	return nil
}

// Delete removes a file, then prunes the month and year directories it
// leaves empty. A missing file matches fs.ErrNotExist.
func (f *FS) Delete(path string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	f.prune(filepath.Dir(abs))
	return nil
}

// prune removes dir and its parents while they are empty, stopping at the
// vault root. os.Remove refuses non-empty directories.
func (f *FS) prune(dir string) {
	for dir != f.root && strings.HasPrefix(dir, f.root+string(os.PathSeparator)) {
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
