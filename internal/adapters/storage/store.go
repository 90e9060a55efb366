// Package storage owns the local data and assets directories.
//
// Writes are whole-file and atomic: bytes go to a temp file in the target
// directory, are synced, then renamed over the final name. A failed write
// leaves the previous file untouched.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/nutrimon/internal/domain/model"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
	tempTag  = ".tmp-"
	logoName = "logo.png"
)

// Store is the local file layout.
type Store struct {
	DataDir   string
	AssetsDir string
	// UsersFile is the canonical credentials file name inside DataDir.
	UsersFile string
}

// New creates a Store. usersFile defaults to users.csv.
func New(dataDir, assetsDir, usersFile string) *Store {
	if usersFile == "" {
		usersFile = "users.csv"
	}
	return &Store{DataDir: dataDir, AssetsDir: assetsDir, UsersFile: usersFile}
}

// EnsureDirs creates both directories. Safe to call concurrently and repeatedly.
func (s *Store) EnsureDirs() error {
	for _, d := range []string{s.DataDir, s.AssetsDir} {
		if err := os.MkdirAll(d, dirPerm); err != nil {
			return fmt.Errorf("storage: ensure %s: %w", d, err)
		}
	}
	return nil
}

// Dir returns the directory for kind.
func (s *Store) Dir(kind model.LocalFileKind) string {
	if kind == model.LocalIcon {
		return s.AssetsDir
	}
	return s.DataDir
}

// Hash returns the xxhash of data.
func Hash(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// HashFile returns the xxhash of the file at path.
func HashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// WriteAtomic stores data as dir/name. When the existing file already has the
// same content it is left alone and unchanged is true.
func (s *Store) WriteAtomic(dir, name string, data []byte) (hash uint64, unchanged bool, err error) {
	if err := validName(name); err != nil {
		return 0, false, err
	}
	hash = Hash(data)
	final := filepath.Join(dir, name)

	if existing, err := HashFile(final); err == nil && existing == hash {
		return hash, true, nil
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return 0, false, fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+name+tempTag+"*")
	if err != nil {
		return 0, false, fmt.Errorf("storage: temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	cleanup := func(cause error) (uint64, bool, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return 0, false, fmt.Errorf("storage: write %s: %w", name, cause)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return 0, false, fmt.Errorf("storage: close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return 0, false, fmt.Errorf("storage: rename %s: %w", name, err)
	}
	return hash, false, nil
}

// UsersPath is the canonical users file location.
func (s *Store) UsersPath() string {
	return filepath.Join(s.DataDir, s.UsersFile)
}

// DataCSVs lists measurement files in DataDir, sorted, excluding the users
// file and hidden or temporary files. A missing directory yields no files.
func (s *Store) DataCSVs() ([]string, error) {
	entries, err := os.ReadDir(s.DataDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read %s: %w", s.DataDir, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".csv") || strings.EqualFold(name, s.UsersFile) {
			continue
		}
		out = append(out, filepath.Join(s.DataDir, name))
	}
	slices.Sort(out)
	return out, nil
}

// LocalFiles describes the files of kind currently on disk.
func (s *Store) LocalFiles(kind model.LocalFileKind) ([]model.LocalFile, error) {
	dir := s.Dir(kind)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read %s: %w", dir, err)
	}
	var out []model.LocalFile
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		h, err := HashFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, model.LocalFile{Name: e.Name(), Kind: kind, Size: info.Size(), Hash: h})
	}
	return out, nil
}

// IconPath finds <crop>.png in AssetsDir, falling back to a case-insensitive match.
func (s *Store) IconPath(crop string) (string, error) {
	if err := validName(crop); err != nil {
		return "", err
	}
	return s.findAsset(crop + ".png")
}

// LogoPath finds logo.png in AssetsDir.
func (s *Store) LogoPath() (string, error) {
	return s.findAsset(logoName)
}

func (s *Store) findAsset(name string) (string, error) {
	exact := filepath.Join(s.AssetsDir, name)
	if info, err := os.Stat(exact); err == nil && !info.IsDir() {
		return exact, nil
	}
	entries, err := os.ReadDir(s.AssetsDir)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrIconNotFound, name)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(e.Name(), name) {
			return filepath.Join(s.AssetsDir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrIconNotFound, name)
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
