package minifat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aligator/minifat/checkpoint"
)

// treeIndent is written once per depth level in front of every name of Enumerate.
const treeIndent = "| "

type dirSlot struct {
	index int
	entry DirEntry
}

// readSlots scans the slots of a directory cluster up to the first unused
// slot. Deleted slots are skipped.
func (fs *FileSystem) readSlots(cluster uint32) ([]dirSlot, error) {
	data, err := fs.ReadCluster(cluster)
	if err != nil {
		return nil, err
	}

	var slots []dirSlot
	for i := 0; (i+1)*DirEntrySize <= len(data); i++ {
		raw := data[i*DirEntrySize : (i+1)*DirEntrySize]
		if raw[0] == slotEnd {
			break
		}
		if raw[0] == slotDeleted {
			continue
		}

		entry, err := DecodeDirEntry(raw)
		if err != nil {
			return nil, err
		}
		slots = append(slots, dirSlot{index: i, entry: entry})
	}

	return slots, nil
}

// ReadDirEntries returns all entries of the directory stored in cluster in
// the order of their slots, including "." and "..".
// Only the single cluster is read, directories are never chained.
func (fs *FileSystem) ReadDirEntries(cluster uint32) ([]DirEntry, error) {
	slots, err := fs.readSlots(cluster)
	if err != nil {
		return nil, err
	}

	entries := make([]DirEntry, len(slots))
	for i, slot := range slots {
		entries[i] = slot.entry
	}
	return entries, nil
}

// AllocateDirEntry writes entry into the first unused or deleted slot of the
// directory in cluster and returns the index of that slot.
// It returns ErrDirectoryFull if every slot is in use.
func (fs *FileSystem) AllocateDirEntry(entry DirEntry, cluster uint32) (int, error) {
	data, err := fs.ReadCluster(cluster)
	if err != nil {
		return 0, err
	}

	raw, err := entry.MarshalBinary()
	if err != nil {
		return 0, err
	}

	for i := 0; (i+1)*DirEntrySize <= len(data); i++ {
		first := data[i*DirEntrySize]
		if first != slotEnd && first != slotDeleted {
			continue
		}

		if err := fs.writeCluster(cluster, int64(i*DirEntrySize), raw); err != nil {
			return 0, err
		}
		return i, nil
	}

	return 0, checkpoint.From(fmt.Errorf("%w: cluster %d", ErrDirectoryFull, cluster))
}

// findSlot searches the directory in cluster for an entry called name.
// Entries with undecodable names never match.
func (fs *FileSystem) findSlot(cluster uint32, name string, onlyDirs bool) (dirSlot, error) {
	slots, err := fs.readSlots(cluster)
	if err != nil {
		return dirSlot{}, err
	}

	for _, slot := range slots {
		if onlyDirs && !slot.entry.IsDir() {
			continue
		}

		entryName, err := slot.entry.DecodedName()
		if err != nil {
			continue
		}
		if entryName == name {
			return slot, nil
		}
	}

	return dirSlot{}, checkpoint.From(fmt.Errorf("%w: %q in cluster %d", ErrNotFound, name, cluster))
}

// FindDirIn returns the first cluster of the directory called name inside of
// the directory in cluster. Files are ignored. The comparison is case
// sensitive against the decoded name, use NormalizeName for user input.
func (fs *FileSystem) FindDirIn(cluster uint32, name string) (uint32, error) {
	slot, err := fs.findSlot(cluster, name, true)
	if err != nil {
		return 0, err
	}
	return slot.entry.FirstCluster(), nil
}

// FindEntry is like FindDirIn but matches files as well and returns the whole entry.
func (fs *FileSystem) FindEntry(cluster uint32, name string) (DirEntry, error) {
	slot, err := fs.findSlot(cluster, name, false)
	return slot.entry, err
}

// checkNewEntry validates name and makes sure it does not exist in parent yet.
func (fs *FileSystem) checkNewEntry(parent uint32, name string) error {
	if err := checkNewName(name); err != nil {
		return checkpoint.From(err)
	}

	normalized, err := NormalizeName(name)
	if err != nil {
		return checkpoint.Wrap(err, ErrInvalidName)
	}

	_, err = fs.findSlot(parent, normalized, false)
	if err == nil {
		return checkpoint.From(fmt.Errorf("%w: %q", ErrExists, normalized))
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// writeDotEntries writes "." pointing at self and ".." pointing at parent
// into the directory stored in self.
func (fs *FileSystem) writeDotEntries(self, parent uint32) error {
	if _, err := fs.AllocateDirEntry(NewDirEntry(".", AttrDirectory, self), self); err != nil {
		return err
	}
	_, err := fs.AllocateDirEntry(NewDirEntry("..", AttrDirectory, parent), self)
	return err
}

// CreateDir allocates and clears a new cluster, writes the "." and ".."
// entries into it and adds a directory entry called name to the parent.
// It returns the cluster of the new directory.
//
// Nothing is rolled back on errors: if the parent is full, the new cluster
// stays allocated without being referenced.
func (fs *FileSystem) CreateDir(parent uint32, name string) (uint32, error) {
	if err := fs.checkNewEntry(parent, name); err != nil {
		return 0, err
	}

	cluster, err := fs.AllocateCluster()
	if err != nil {
		return 0, err
	}

	if err := fs.ZeroCluster(cluster); err != nil {
		return 0, err
	}

	if err := fs.writeDotEntries(cluster, parent); err != nil {
		return 0, err
	}

	if _, err := fs.AllocateDirEntry(NewDirEntry(name, AttrDirectory, cluster), parent); err != nil {
		return 0, err
	}

	fs.logger.Debug("created directory", "parent", parent, "name", name, "cluster", cluster)
	return cluster, nil
}

// CreateFile allocates and clears a new cluster and adds a file entry called
// name to the parent. The file size stays 0.
// It returns the cluster of the new file.
func (fs *FileSystem) CreateFile(parent uint32, name string) (uint32, error) {
	if err := fs.checkNewEntry(parent, name); err != nil {
		return 0, err
	}

	cluster, err := fs.AllocateCluster()
	if err != nil {
		return 0, err
	}

	if err := fs.ZeroCluster(cluster); err != nil {
		return 0, err
	}

	if _, err := fs.AllocateDirEntry(NewDirEntry(name, AttrArchive, cluster), parent); err != nil {
		return 0, err
	}

	fs.logger.Debug("created file", "parent", parent, "name", name, "cluster", cluster)
	return cluster, nil
}

// CreateRootDir clears the root cluster, writes "." and ".." both pointing
// at the root itself and marks the root cluster as allocated.
// It has to run once after ResetTables and before any other directory operation.
func (fs *FileSystem) CreateRootDir() error {
	if err := fs.ZeroCluster(fs.rootDirCluster); err != nil {
		return err
	}

	if err := fs.writeDotEntries(fs.rootDirCluster, fs.rootDirCluster); err != nil {
		return err
	}

	if err := fs.WriteEntry(fs.rootDirCluster, EndOfChain); err != nil {
		return err
	}

	fs.logger.Debug("created root directory", "cluster", fs.rootDirCluster)
	return nil
}

// Remove deletes the entry called name from the parent directory by marking
// its slot as deleted and freeing its cluster chain.
// Directories have to be empty.
func (fs *FileSystem) Remove(parent uint32, name string) error {
	if name == "." || name == ".." {
		return checkpoint.From(fmt.Errorf("%w: cannot remove %q", ErrInvalidName, name))
	}

	slot, err := fs.findSlot(parent, name, false)
	if err != nil {
		return err
	}

	cluster := slot.entry.FirstCluster()
	if slot.entry.IsDir() {
		children, err := fs.ReadDirEntries(cluster)
		if err != nil {
			return err
		}
		for _, child := range children {
			if !child.IsDotEntry() {
				return checkpoint.From(fmt.Errorf("%w: %q", ErrDirectoryNotEmpty, name))
			}
		}
	}

	if err := fs.writeCluster(parent, int64(slot.index*DirEntrySize), []byte{slotDeleted}); err != nil {
		return err
	}

	fs.logger.Debug("removed entry", "parent", parent, "name", name, "cluster", cluster)

	// Entries without content do not own any cluster.
	if cluster == 0 {
		return nil
	}
	return fs.FreeChain(cluster)
}

// Enumerate renders the directory tree below cluster, one entry per line.
// Every line starts with one indentation marker per depth level and
// directories end with a slash. All directories except "." and ".." are
// entered recursively. Entries with undecodable names are shown as "?".
func (fs *FileSystem) Enumerate(cluster uint32, depth int) (string, error) {
	var b strings.Builder
	if err := fs.enumerate(&b, cluster, depth, 0); err != nil {
		return b.String(), err
	}
	return b.String(), nil
}

// Tree is Enumerate starting at depth 0.
func (fs *FileSystem) Tree(cluster uint32) (string, error) {
	return fs.Enumerate(cluster, 0)
}

func (fs *FileSystem) enumerate(b *strings.Builder, cluster uint32, depth int, level uint32) error {
	// Without cycles no path can be deeper than the volume has clusters.
	if level > fs.ClusterCount() {
		return checkpoint.From(fmt.Errorf("%w: directory tree deeper than %d levels at cluster %d", ErrCorruption, fs.ClusterCount(), cluster))
	}

	entries, err := fs.ReadDirEntries(cluster)
	if err != nil {
		return err
	}

	indent := strings.Repeat(treeIndent, depth)
	for _, entry := range entries {
		name, err := entry.DecodedName()
		if err != nil {
			fs.logger.Debug("skipping undecodable entry", "cluster", cluster, "error", err)
			b.WriteString(indent + "?\n")
			continue
		}

		if !entry.IsDir() || name == "." || name == ".." {
			b.WriteString(indent + name + "\n")
			continue
		}

		b.WriteString(indent + name + "/\n")
		if err := fs.enumerate(b, entry.FirstCluster(), depth+1, level+1); err != nil {
			return err
		}
	}

	return nil
}
