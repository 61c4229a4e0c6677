package minifat

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/aligator/minifat/checkpoint"
	"github.com/spf13/afero"
)

// These errors may occur while processing a file.
var (
	ErrSeekFile = errors.New("could not seek inside of the file")
	ErrReadDir  = errors.New("could not read the directory")
)

// dirReader provides everything File needs from the filesystem.
// It mainly exists to be able to mock the Fs in tests.
// Generated mock using mockgen:
//
//	mockgen -source=file.go -destination=file_mock.go -package minifat
type dirReader interface {
	readDir(cluster uint32) ([]DirEntry, error)
}

// File is an opened file or directory of an Fs.
// Files never have content, so reading always ends with io.EOF right away
// and every write fails with ErrNotSupported.
type File struct {
	fs   dirReader
	path string

	isDirectory  bool
	firstCluster uint32
	stat         os.FileInfo
	offset       int64
}

var _ afero.File = (*File)(nil)

func newFile(path string, entry DirEntry) *File {
	name, err := entry.DecodedName()
	if err != nil {
		name = "?"
	}

	return &File{
		path:         path,
		isDirectory:  entry.IsDir(),
		firstCluster: entry.FirstCluster(),
		stat:         entryFileInfo{name: name, entry: entry},
	}
}

func (f *File) Close() error {
	f.fs = nil
	f.path = ""
	f.isDirectory = false
	f.firstCluster = 0
	f.stat = nil
	f.offset = 0

	return nil
}

func (f *File) Read(p []byte) (n int, err error) {
	return f.ReadAt(p, f.offset)
}

func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}

	if f.isDirectory {
		return 0, checkpoint.From(syscall.EISDIR)
	}

	if f.stat.Size() <= off {
		return 0, io.EOF
	}

	// A size is never written, so only a foreign image can get here.
	return 0, checkpoint.From(fmt.Errorf("%w: reading file content", ErrNotSupported))
}

// Seek jumps to a specific offset in the file.
// May return a syscall.EINVAL error if the whence value is invalid.
// May return an afero.ErrOutOfRange error if the offset is out of range.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset = f.offset + offset
	case io.SeekEnd:
		offset = f.stat.Size() + offset
	default:
		return 0, checkpoint.Wrap(ErrSeekFile, fmt.Errorf("%w, offset: %v, whence: %v", syscall.EINVAL, offset, whence))
	}

	if offset < 0 || offset > f.stat.Size() {
		return 0, checkpoint.Wrap(afero.ErrOutOfRange, fmt.Errorf("%w, offset: %v, whence: %v", ErrSeekFile, offset, whence))
	}

	f.offset = offset
	return offset, nil
}

func (f *File) Write(p []byte) (n int, err error) {
	return 0, checkpoint.From(fmt.Errorf("%w: writing file content", ErrNotSupported))
}

func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	return f.Write(p)
}

func (f *File) Name() string {
	return f.stat.Name()
}

// Readdir reads the contents of a directory without "." and "..".
// It behaves like os.File.Readdir: with count > 0 at most count entries are
// returned and io.EOF marks the end, otherwise all remaining entries are
// returned at once.
// May return syscall.ENOTDIR if the current File is no directory.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if !f.isDirectory {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}

	entries, err := f.fs.readDir(f.firstCluster)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	var content []os.FileInfo
	for _, entry := range entries {
		if entry.IsDotEntry() {
			continue
		}
		content = append(content, newFile("", entry).stat)
	}

	if f.offset >= int64(len(content)) {
		if count > 0 {
			return nil, io.EOF
		}
		return []os.FileInfo{}, nil
	}

	content = content[f.offset:]
	if count > 0 && count < len(content) {
		content = content[:count]
	}
	f.offset += int64(len(content))

	return content, nil
}

func (f *File) Readdirnames(count int) ([]string, error) {
	content, err := f.Readdir(count)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	names := make([]string, len(content))
	for i, entry := range content {
		names[i] = entry.Name()
	}

	return names, nil
}

func (f *File) Stat() (os.FileInfo, error) {
	return f.stat, nil
}

// Sync does nothing, every change is written to the device immediately.
func (f *File) Sync() error {
	return nil
}

func (f *File) Truncate(size int64) error {
	return checkpoint.From(fmt.Errorf("%w: truncating %s", ErrNotSupported, f.path))
}

func (f *File) WriteString(s string) (ret int, err error) {
	return f.Write([]byte(s))
}
