// Package assetroot gives read-only access to a built single-page
// application: one shell document plus a directory of static assets.
//
// Every lookup goes through an os.Root: the shell is read from the root
// directory and assets from a second root on the assets subdirectory, so
// an asset is never read from outside that subdirectory, symlinks included.
package assetroot

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"syscall"
	"time"
)

var (
	// ErrTraversal is returned for asset paths that try to leave the assets directory.
	ErrTraversal = errors.New("assetroot: path escapes assets directory")
	// ErrNotFound is returned when an asset does not exist or is not a regular file.
	ErrNotFound = errors.New("assetroot: asset not found")
	// ErrShellMissing is returned when the shell document cannot be found.
	ErrShellMissing = errors.New("assetroot: shell document missing")
)

// Root is an opened asset directory. It is safe for concurrent use.
type Root struct {
	dir       string
	shellName string
	assetsDir string
	root      *os.Root
	// assets is nil when the assets subdirectory does not exist or is not a directory.
	assets *os.Root
}

// Asset is a static file read from the assets directory.
type Asset struct {
	Name        string
	Data        []byte
	ModTime     time.Time
	ContentType string
}

// Open opens dir as an asset root. shellName and assetsDir are names
// relative to dir. A missing shell document is not an error here; it is
// reported by Shell at request time.
func Open(dir, shellName, assetsDir string) (*Root, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("assetroot: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("assetroot: %s is not a directory", dir)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("assetroot: open %s: %w", dir, err)
	}
	assets, err := root.OpenRoot(assetsDir)
	if err != nil && !missing(err) {
		root.Close()
		return nil, fmt.Errorf("assetroot: open %s/%s: %w", dir, assetsDir, err)
	}
	return &Root{
		dir:       dir,
		shellName: shellName,
		assetsDir: assetsDir,
		root:      root,
		assets:    assets,
	}, nil
}

// Dir returns the directory the root was opened on.
func (r *Root) Dir() string { return r.dir }

// Close releases the underlying directory handle.
func (r *Root) Close() error {
	if r.assets != nil {
		r.assets.Close()
	}
	return r.root.Close()
}

// HasShell reports whether the shell document is present and readable.
func (r *Root) HasShell() bool {
	info, err := r.root.Stat(r.shellName)
	return err == nil && info.Mode().IsRegular()
}

// Shell reads the shell document.
func (r *Root) Shell() ([]byte, error) {
	data, _, err := readRegular(r.root, r.shellName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrShellMissing, r.shellName)
		}
		return nil, err
	}
	return data, nil
}

// Asset resolves rel against the assets directory and reads it.
// rel is the URL path below the assets prefix, with or without a leading slash.
func (r *Root) Asset(rel string) (*Asset, error) {
	clean, err := cleanAssetPath(rel)
	if err != nil {
		return nil, err
	}
	if clean == "" || r.assets == nil {
		return nil, ErrNotFound
	}
	name := path.Join(r.assetsDir, clean)
	data, modTime, err := readRegular(r.assets, clean)
	if err != nil {
		return nil, err
	}
	return &Asset{
		Name:        name,
		Data:        data,
		ModTime:     modTime,
		ContentType: ContentType(name, data),
	}, nil
}

// cleanAssetPath rejects traversal attempts before the filesystem is
// touched, so the answer does not depend on what exists on disk.
func cleanAssetPath(rel string) (string, error) {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "/") || strings.ContainsAny(rel, "\\\x00") {
		return "", ErrTraversal
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", ErrTraversal
		}
	}
	if rel == "" {
		return "", nil
	}
	clean := path.Clean(rel)
	if clean == "." {
		return "", nil
	}
	return clean, nil
}

// missing reports open errors that mean the requested name cannot exist:
// absent, a path through a regular file, or a component too long to be a name.
func missing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.ENOTDIR) ||
		errors.Is(err, syscall.ENAMETOOLONG)
}

func readRegular(root *os.Root, name string) ([]byte, time.Time, error) {
	f, err := root.Open(name)
	if err != nil {
		if missing(err) {
			return nil, time.Time{}, ErrNotFound
		}
		return nil, time.Time{}, fmt.Errorf("assetroot: open %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("assetroot: stat %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return nil, time.Time{}, ErrNotFound
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("assetroot: read %s: %w", name, err)
	}
	return data, info.ModTime(), nil
}
