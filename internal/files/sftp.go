package files

import (
	"io"
	"path"
	"sort"
	"strings"

	"github.com/pkg/sftp"
)

// SFTPBackend implements Backend over an SFTP subsystem channel opened
// on an existing SSH connection, for ssh-jump sessions (spec.md §4.L).
type SFTPBackend struct {
	client *sftp.Client
}

func NewSFTPBackend(client *sftp.Client) *SFTPBackend {
	return &SFTPBackend{client: client}
}

func (b *SFTPBackend) List(p string) ([]Entry, error) {
	infos, err := b.client.ReadDir(p)
	if err != nil {
		return nil, mapSFTPError(err, p)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if name == "." || name == ".." {
			continue
		}
		entries = append(entries, Entry{
			Name:        name,
			Path:        path.Join(p, name),
			IsDirectory: info.IsDir(),
			Size:        info.Size(),
			ModifiedISO: FormatEpoch(info.ModTime().Unix()),
			Permissions: FormatPermissions(uint32(info.Mode().Perm())),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDirectory != entries[j].IsDirectory {
			return entries[i].IsDirectory
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

func (b *SFTPBackend) Read(p string) ([]byte, error) {
	f, err := b.client.Open(p)
	if err != nil {
		return nil, mapSFTPError(err, p)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, mapSFTPError(err, p)
	}
	return data, nil
}

func (b *SFTPBackend) Write(p string, data []byte) error {
	f, err := b.client.Create(p)
	if err != nil {
		return mapSFTPError(err, p)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return mapSFTPError(err, p)
	}
	return nil
}

func (b *SFTPBackend) Delete(p string, isDirectory bool) error {
	var err error
	if isDirectory {
		err = b.client.RemoveDirectory(p)
	} else {
		err = b.client.Remove(p)
	}
	if err != nil {
		return mapSFTPError(err, p)
	}
	return nil
}

func (b *SFTPBackend) Rename(oldPath, newPath string) error {
	if err := b.client.Rename(oldPath, newPath); err != nil {
		return mapSFTPError(err, oldPath)
	}
	return nil
}

func (b *SFTPBackend) Stat(p string) (Entry, error) {
	info, err := b.client.Stat(p)
	if err != nil {
		return Entry{}, mapSFTPError(err, p)
	}
	return Entry{
		Name:        info.Name(),
		Path:        p,
		IsDirectory: info.IsDir(),
		Size:        info.Size(),
		ModifiedISO: FormatEpoch(info.ModTime().Unix()),
		Permissions: FormatPermissions(uint32(info.Mode().Perm())),
	}, nil
}

func mapSFTPError(err error, p string) error {
	return mapOSError(err, p)
}
