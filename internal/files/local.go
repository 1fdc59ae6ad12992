package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/armaxri/termihub-agent/internal/rpc"
)

// LocalBackend implements Backend via direct filesystem calls, for
// shell sessions browsing the local host.
type LocalBackend struct{}

func NewLocalBackend() *LocalBackend { return &LocalBackend{} }

func (LocalBackend) List(path string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, mapOSError(err, path)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if name == "." || name == ".." {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:        name,
			Path:        normalizeSlashes(filepath.Join(path, name)),
			IsDirectory: de.IsDir(),
			Size:        info.Size(),
			ModifiedISO: FormatEpoch(info.ModTime().Unix()),
			Permissions: FormatPermissions(uint32(info.Mode().Perm())),
		})
	}

	sortEntries(entries)
	return entries, nil
}

func (LocalBackend) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mapOSError(err, path)
	}
	return data, nil
}

func (LocalBackend) Write(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return mapOSError(err, path)
	}
	return nil
}

func (LocalBackend) Delete(path string, isDirectory bool) error {
	var err error
	if isDirectory {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return mapOSError(err, path)
	}
	return nil
}

func (LocalBackend) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return mapOSError(err, oldPath)
	}
	return nil
}

func (LocalBackend) Stat(path string) (Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, mapOSError(err, path)
	}
	return Entry{
		Name:        info.Name(),
		Path:        normalizeSlashes(path),
		IsDirectory: info.IsDir(),
		Size:        info.Size(),
		ModifiedISO: FormatEpoch(info.ModTime().Unix()),
		Permissions: FormatPermissions(uint32(info.Mode().Perm())),
	}, nil
}

// sortEntries orders directories first, then case-insensitive name
// ascending (spec.md §4.L).
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDirectory != entries[j].IsDirectory {
			return entries[i].IsDirectory
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

func normalizeSlashes(p string) string {
	return filepath.ToSlash(p)
}

func mapOSError(err error, path string) error {
	if os.IsNotExist(err) {
		return rpc.ErrFileNotFound(path)
	}
	if os.IsPermission(err) {
		return rpc.ErrPermissionDenied(path)
	}
	return rpc.ErrFileOperationFailed(fmt.Sprintf("%s: %v", path, err))
}
