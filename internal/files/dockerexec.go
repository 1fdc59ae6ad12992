package files

import (
	"bytes"
	"fmt"
	"os/exec"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/armaxri/termihub-agent/internal/rpc"
)

// DockerExecBackend implements Backend via `docker exec` shell
// primitives against a running container (spec.md §4.L).
type DockerExecBackend struct {
	containerID string
}

func NewDockerExecBackend(containerID string) *DockerExecBackend {
	return &DockerExecBackend{containerID: containerID}
}

func (b *DockerExecBackend) exec(args ...string) ([]byte, error) {
	full := append([]string{"exec", b.containerID}, args...)
	cmd := exec.Command("docker", full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s", strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func (b *DockerExecBackend) List(p string) ([]Entry, error) {
	// "%f|%s|%T@|%m|%y" = name|size|mtime epoch (fractional)|octal perm|type letter
	out, err := b.exec("find", p, "-mindepth", "1", "-maxdepth", "1",
		"-printf", "%f|%s|%T@|%m|%y\\n")
	if err != nil {
		return nil, rpc.ErrFileOperationFailed(err.Error())
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "|", 5)
		if len(fields) != 5 {
			continue
		}
		size, _ := strconv.ParseInt(fields[1], 10, 64)
		mtime, _ := strconv.ParseFloat(fields[2], 64)
		mode, _ := strconv.ParseUint(fields[3], 8, 32)
		isDir := fields[4] == "d"

		entries = append(entries, Entry{
			Name:        fields[0],
			Path:        path.Join(p, fields[0]),
			IsDirectory: isDir,
			Size:        size,
			ModifiedISO: FormatEpoch(int64(mtime)),
			Permissions: FormatPermissions(uint32(mode)),
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

func (b *DockerExecBackend) Read(p string) ([]byte, error) {
	out, err := b.exec("cat", p)
	if err != nil {
		return nil, rpc.ErrFileOperationFailed(err.Error())
	}
	return out, nil
}

func (b *DockerExecBackend) Write(p string, data []byte) error {
	full := append([]string{"exec", "-i", b.containerID, "sh", "-c", fmt.Sprintf("cat > %s", shellQuote(p))})
	cmd := exec.Command("docker", full...)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return rpc.ErrFileOperationFailed(strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (b *DockerExecBackend) Delete(p string, isDirectory bool) error {
	args := []string{"rm", "-f"}
	if isDirectory {
		args = []string{"rm", "-rf"}
	}
	if _, err := b.exec(append(args, p)...); err != nil {
		return rpc.ErrFileOperationFailed(err.Error())
	}
	return nil
}

func (b *DockerExecBackend) Rename(oldPath, newPath string) error {
	if _, err := b.exec("mv", oldPath, newPath); err != nil {
		return rpc.ErrFileOperationFailed(err.Error())
	}
	return nil
}

func (b *DockerExecBackend) Stat(p string) (Entry, error) {
	out, err := b.exec("stat", "-c", "%n|%s|%Y|%a|%F", p)
	if err != nil {
		return Entry{}, rpc.ErrFileNotFound(p)
	}
	fields := strings.SplitN(strings.TrimSpace(string(out)), "|", 5)
	if len(fields) != 5 {
		return Entry{}, rpc.ErrFileOperationFailed("unexpected stat output")
	}
	size, _ := strconv.ParseInt(fields[1], 10, 64)
	mtime, _ := strconv.ParseInt(fields[2], 10, 64)
	mode, _ := strconv.ParseUint(fields[3], 8, 32)
	return Entry{
		Name:        path.Base(fields[0]),
		Path:        p,
		IsDirectory: strings.Contains(fields[4], "directory"),
		Size:        size,
		ModifiedISO: FormatEpoch(mtime),
		Permissions: FormatPermissions(uint32(mode)),
	}, nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
