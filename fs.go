package minifat

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aligator/minifat/checkpoint"
	"github.com/spf13/afero"
)

// Fs provides a path based afero.Fs view of a Volume.
// Every call runs in its own session of the volume.
//
// Files cannot hold content, so they can be created, listed and removed but
// not written. Rename, Chmod, Chown and Chtimes are not supported.
type Fs struct {
	vol *Volume
}

var _ afero.Fs = (*Fs)(nil)

// NewFs creates an afero.Fs for vol.
func NewFs(vol *Volume) *Fs {
	return &Fs{vol: vol}
}

func pathError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &os.PathError{Op: op, Path: name, Err: err}
}

// readDir implements dirReader for File.
func (f *Fs) readDir(cluster uint32) ([]DirEntry, error) {
	var entries []DirEntry
	err := f.vol.Session(func(fs *FileSystem) error {
		var err error
		entries, err = fs.ReadDirEntries(cluster)
		return err
	})
	return entries, err
}

// lookup resolves name to an unbound File.
func (fs *FileSystem) lookup(name string) (*File, error) {
	components := SplitPath(name)
	if len(components) == 0 {
		root := NewDirEntry("/", AttrDirectory, fs.rootDirCluster)
		return &File{
			path:         "/",
			isDirectory:  true,
			firstCluster: fs.rootDirCluster,
			stat:         entryFileInfo{name: "/", entry: root},
		}, nil
	}

	parent, base, err := fs.ResolveParent(name)
	if err != nil {
		return nil, err
	}

	entry, err := fs.FindEntry(parent, base)
	if err != nil {
		return nil, err
	}

	return newFile(name, entry), nil
}

func (f *Fs) open(op, name string) (*File, error) {
	var file *File
	err := f.vol.Session(func(fs *FileSystem) error {
		var err error
		file, err = fs.lookup(name)
		return err
	})
	if err != nil {
		return nil, pathError(op, name, err)
	}

	file.fs = f
	return file, nil
}

// Create creates an empty file. An existing file is just opened, as it
// cannot have any content to truncate.
func (f *Fs) Create(name string) (afero.File, error) {
	err := f.vol.Session(func(fs *FileSystem) error {
		parent, base, err := fs.ResolveParent(name)
		if err != nil {
			return err
		}

		existing, err := fs.FindEntry(parent, base)
		if err == nil {
			if existing.IsDir() {
				return checkpoint.From(fmt.Errorf("%w: %q is a directory", ErrExists, base))
			}
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		_, err = fs.CreateFile(parent, base)
		return err
	})
	if err != nil {
		return nil, pathError("create", name, err)
	}

	return f.open("create", name)
}

func (f *Fs) Mkdir(name string, _ os.FileMode) error {
	err := f.vol.Session(func(fs *FileSystem) error {
		parent, base, err := fs.ResolveParent(name)
		if err != nil {
			return err
		}

		_, err = fs.CreateDir(parent, base)
		return err
	})
	return pathError("mkdir", name, err)
}

// MkdirAll creates every missing directory of p.
func (f *Fs) MkdirAll(p string, _ os.FileMode) error {
	err := f.vol.Session(func(fs *FileSystem) error {
		cluster := fs.rootDirCluster
		for _, component := range SplitPath(p) {
			name, err := NormalizeName(component)
			if err != nil {
				return checkpoint.Wrap(err, ErrInvalidName)
			}

			entry, err := fs.FindEntry(cluster, name)
			switch {
			case err == nil && entry.IsDir():
				cluster = entry.FirstCluster()
			case err == nil:
				return checkpoint.From(fmt.Errorf("%w: %q", ErrNotDirectory, name))
			case errors.Is(err, ErrNotFound):
				cluster, err = fs.CreateDir(cluster, name)
				if err != nil {
					return err
				}
			default:
				return err
			}
		}
		return nil
	})
	return pathError("mkdir", p, err)
}

func (f *Fs) Open(name string) (afero.File, error) {
	return f.open("open", name)
}

// OpenFile opens name and creates it first if os.O_CREATE is given.
// The permissions are ignored, FAT does not store them.
func (f *Fs) OpenFile(name string, flag int, _ os.FileMode) (afero.File, error) {
	if flag&os.O_CREATE != 0 {
		file, err := f.open("open", name)
		if err == nil {
			if flag&os.O_EXCL != 0 {
				file.Close()
				return nil, pathError("open", name, ErrExists)
			}
			return file, nil
		}
		return f.Create(name)
	}

	return f.open("open", name)
}

func (f *Fs) Remove(name string) error {
	err := f.vol.Session(func(fs *FileSystem) error {
		parent, base, err := fs.ResolveParent(name)
		if err != nil {
			return err
		}
		return fs.Remove(parent, base)
	})
	return pathError("remove", name, err)
}

// RemoveAll removes p and everything it contains. A missing p is no error.
func (f *Fs) RemoveAll(p string) error {
	err := f.vol.Session(func(fs *FileSystem) error {
		parent, base, err := fs.ResolveParent(p)
		if err != nil {
			return err
		}
		return fs.removeAll(parent, base, 0)
	})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return pathError("removeall", p, err)
}

func (fs *FileSystem) removeAll(parent uint32, name string, level uint32) error {
	// Without cycles no path can be deeper than the volume has clusters.
	if level > fs.ClusterCount() {
		return checkpoint.From(fmt.Errorf("%w: directory tree deeper than %d levels at %q", ErrCorruption, fs.ClusterCount(), name))
	}

	entry, err := fs.FindEntry(parent, name)
	if err != nil {
		return err
	}

	if entry.IsDir() {
		children, err := fs.ReadDirEntries(entry.FirstCluster())
		if err != nil {
			return err
		}
		for _, child := range children {
			if child.IsDotEntry() {
				continue
			}
			childName, err := child.DecodedName()
			if err != nil {
				return err
			}
			if err := fs.removeAll(entry.FirstCluster(), childName, level+1); err != nil {
				return err
			}
		}
	}

	return fs.Remove(parent, name)
}

func (f *Fs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: ErrNotSupported}
}

func (f *Fs) Stat(name string) (os.FileInfo, error) {
	file, err := f.open("stat", name)
	if err != nil {
		return nil, err
	}
	return file.stat, nil
}

func (f *Fs) Name() string {
	return "minifat"
}

func (f *Fs) Chmod(name string, _ os.FileMode) error {
	return pathError("chmod", name, ErrNotSupported)
}

func (f *Fs) Chown(name string, _, _ int) error {
	return pathError("chown", name, ErrNotSupported)
}

func (f *Fs) Chtimes(name string, _ time.Time, _ time.Time) error {
	return pathError("chtimes", name, ErrNotSupported)
}
