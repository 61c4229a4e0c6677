package minifat

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/aligator/minifat/checkpoint"
)

// Volume owns a BlockDevice and serializes every access to it.
// Each session mounts the device freshly, so nothing about the volume is
// cached between two sessions and a reformat is always picked up.
type Volume struct {
	mu   sync.Mutex
	dev  BlockDevice
	opts []Option
}

// NewVolume creates a Volume for dev. The options are passed to every Mount.
func NewVolume(dev BlockDevice, opts ...Option) *Volume {
	return &Volume{
		dev:  dev,
		opts: opts,
	}
}

// Session locks the volume, mounts it and calls fn with the mounted
// FileSystem. The lock is held until fn returns.
func (v *Volume) Session(fn func(fs *FileSystem) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	fs, err := Mount(v.dev, v.opts...)
	if err != nil {
		return err
	}

	return fn(fs)
}

// Device returns the underlying device. Accessing it directly bypasses the lock.
func (v *Volume) Device() BlockDevice {
	return v.dev
}

// SplitPath cleans p and splits it into its components.
// The root directory results in no components.
func SplitPath(p string) []string {
	p = path.Clean("/" + strings.ReplaceAll(p, `\`, "/"))
	if p == "/" {
		return nil
	}
	return strings.Split(p[1:], "/")
}

// ResolveDir walks the directories of p starting at the root directory and
// returns the cluster of the last one.
func (fs *FileSystem) ResolveDir(p string) (uint32, error) {
	return fs.resolveDir(fs.rootDirCluster, SplitPath(p))
}

func (fs *FileSystem) resolveDir(cluster uint32, components []string) (uint32, error) {
	for _, component := range components {
		name, err := NormalizeName(component)
		if err != nil {
			return 0, checkpoint.Wrap(err, ErrInvalidName)
		}

		entry, err := fs.FindEntry(cluster, name)
		if err != nil {
			return 0, err
		}
		if !entry.IsDir() {
			return 0, checkpoint.From(fmt.Errorf("%w: %q", ErrNotDirectory, component))
		}
		cluster = entry.FirstCluster()
	}
	return cluster, nil
}

// ResolveParent returns the cluster of the directory containing p and the
// normalized name of the last component of p.
// It fails with ErrInvalidName for the root directory.
func (fs *FileSystem) ResolveParent(p string) (uint32, string, error) {
	components := SplitPath(p)
	if len(components) == 0 {
		return 0, "", checkpoint.From(fmt.Errorf("%w: the root directory has no parent", ErrInvalidName))
	}

	parent, err := fs.resolveDir(fs.rootDirCluster, components[:len(components)-1])
	if err != nil {
		return 0, "", err
	}

	name, err := NormalizeName(components[len(components)-1])
	if err != nil {
		return 0, "", checkpoint.Wrap(err, ErrInvalidName)
	}
	return parent, name, nil
}
