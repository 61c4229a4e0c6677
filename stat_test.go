package minifat

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestEntryFileInfo(t *testing.T) {
	tests := []struct {
		name     string
		info     entryFileInfo
		wantName string
		wantSize int64
		wantMode os.FileMode
		wantDir  bool
	}{
		{
			name:     "file",
			info:     entryFileInfo{name: "HELLO.TXT", entry: DirEntry{Name: nameBytes("HELLO   TXT"), Attribute: AttrArchive, FileSize: 42}},
			wantName: "HELLO.TXT",
			wantSize: 42,
			wantMode: 0o644,
		},
		{
			name:     "directory",
			info:     entryFileInfo{name: "DOCS", entry: DirEntry{Name: nameBytes("DOCS       "), Attribute: AttrDirectory}},
			wantName: "DOCS",
			wantMode: os.ModeDir | 0o755,
			wantDir:  true,
		},
		{
			name:     "read only directory",
			info:     entryFileInfo{name: "SYS", entry: DirEntry{Name: nameBytes("SYS        "), Attribute: AttrDirectory | AttrReadOnly}},
			wantName: "SYS",
			wantMode: os.ModeDir | 0o755,
			wantDir:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Name(); got != tt.wantName {
				t.Errorf("entryFileInfo.Name() = %v, want %v", got, tt.wantName)
			}
			if got := tt.info.Size(); got != tt.wantSize {
				t.Errorf("entryFileInfo.Size() = %v, want %v", got, tt.wantSize)
			}
			if got := tt.info.Mode(); got != tt.wantMode {
				t.Errorf("entryFileInfo.Mode() = %v, want %v", got, tt.wantMode)
			}
			if got := tt.info.IsDir(); got != tt.wantDir {
				t.Errorf("entryFileInfo.IsDir() = %v, want %v", got, tt.wantDir)
			}
			if got := tt.info.ModTime(); !got.Equal(time.Time{}) {
				t.Errorf("entryFileInfo.ModTime() = %v, want zero", got)
			}
			if got := tt.info.Sys(); !reflect.DeepEqual(got, tt.info.entry) {
				t.Errorf("entryFileInfo.Sys() = %v, want %v", got, tt.info.entry)
			}
		})
	}
}
