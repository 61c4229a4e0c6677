package minifat

import (
	"os"
	"time"
)

// entryFileInfo is the os.FileInfo of a DirEntry.
type entryFileInfo struct {
	name  string
	entry DirEntry
}

func (e entryFileInfo) Name() string {
	return e.name
}

func (e entryFileInfo) Size() int64 {
	return int64(e.entry.FileSize)
}

func (e entryFileInfo) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir | 0o755
	}
	return 0o644
}

// ModTime is always zero as no timestamps are written.
func (e entryFileInfo) ModTime() time.Time {
	return time.Time{}
}

func (e entryFileInfo) IsDir() bool {
	return e.entry.IsDir()
}

// Sys returns the DirEntry.
func (e entryFileInfo) Sys() interface{} {
	return e.entry
}
