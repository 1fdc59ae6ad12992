package files

import "github.com/armaxri/termihub-agent/internal/rpc"

// UnsupportedBackend is used for session types with no file browsing
// capability (serial, telnet): every operation fails with
// FILE_BROWSING_NOT_SUPPORTED (spec.md §4.L).
type UnsupportedBackend struct{}

func (UnsupportedBackend) List(string) ([]Entry, error)   { return nil, rpc.ErrFileBrowsingNotSupported() }
func (UnsupportedBackend) Read(string) ([]byte, error)    { return nil, rpc.ErrFileBrowsingNotSupported() }
func (UnsupportedBackend) Write(string, []byte) error     { return rpc.ErrFileBrowsingNotSupported() }
func (UnsupportedBackend) Delete(string, bool) error      { return rpc.ErrFileBrowsingNotSupported() }
func (UnsupportedBackend) Rename(string, string) error    { return rpc.ErrFileBrowsingNotSupported() }
func (UnsupportedBackend) Stat(string) (Entry, error)     { return Entry{}, rpc.ErrFileBrowsingNotSupported() }
