package minifat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func occupied(t *testing.T, fs *FileSystem) int {
	t.Helper()
	count, err := fs.CountOccupied()
	require.NoError(t, err)
	return count
}

func TestFileSystem_freshVolume(t *testing.T) {
	fs := testingMount(t)
	root := fs.RootDirCluster()

	require.NoError(t, fs.ResetTables())
	assert.Equal(t, 2, occupied(t, fs))

	require.NoError(t, fs.CreateRootDir())
	assert.Equal(t, 3, occupied(t, fs))

	fileCluster, err := fs.CreateFile(root, "HELLOWO.RLD")
	require.NoError(t, err)
	dirCluster, err := fs.CreateDir(root, "HELLODIR")
	require.NoError(t, err)
	assert.Equal(t, 5, occupied(t, fs))
	assert.NotEqual(t, fileCluster, dirCluster)

	found, err := fs.FindDirIn(root, "HELLODIR")
	require.NoError(t, err)
	assert.Equal(t, dirCluster, found)

	// Files are never found as directories.
	_, err = fs.FindDirIn(root, "HELLOWO.RLD")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, fs.VerifyMirrors())
}

func TestFileSystem_CreateRootDir(t *testing.T) {
	fs := testingInitialized(t)
	root := fs.RootDirCluster()

	entries, err := fs.ReadDirEntries(root)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for i, name := range []string{".", ".."} {
		decoded, err := entries[i].DecodedName()
		require.NoError(t, err)
		assert.Equal(t, name, decoded)
		assert.True(t, entries[i].IsDir())
		assert.Equal(t, root, entries[i].FirstCluster())
	}

	entry, err := fs.ReadEntry(root)
	require.NoError(t, err)
	assert.True(t, entry.IsEOF())
}

func TestFileSystem_CreateDir(t *testing.T) {
	fs := testingInitialized(t)
	root := fs.RootDirCluster()

	parent, err := fs.CreateDir(root, "parent")
	require.NoError(t, err)
	child, err := fs.CreateDir(parent, "child")
	require.NoError(t, err)

	entries, err := fs.ReadDirEntries(child)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, child, entries[0].FirstCluster(), "dot points at the directory itself")
	assert.Equal(t, parent, entries[1].FirstCluster(), "dot dot points at the parent")

	found, err := fs.FindDirIn(parent, "CHILD")
	require.NoError(t, err)
	assert.Equal(t, child, found)

	tests := []struct {
		name    string
		parent  uint32
		newName string
		wantErr error
	}{
		{name: "existing directory", parent: root, newName: "PARENT", wantErr: ErrExists},
		{name: "existing directory in other case", parent: root, newName: "parent", wantErr: ErrExists},
		{name: "empty name", parent: root, newName: "", wantErr: ErrInvalidName},
		{name: "dot dot", parent: parent, newName: "..", wantErr: ErrInvalidName},
		{name: "parent is no directory cluster", parent: 900, newName: "X", wantErr: ErrInvalidCluster},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := occupied(t, fs)
			_, err := fs.CreateDir(tt.parent, tt.newName)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, occupied(t, fs), "no cluster may be allocated")
		})
	}
}

func TestFileSystem_CreateFile_exhausted(t *testing.T) {
	fs := testingInitialized(t)
	root := fs.RootDirCluster()

	for i := 0; i < int(fs.ClusterCount())-1; i++ {
		_, err := fs.CreateFile(root, fmt.Sprintf("F%d", i))
		require.NoError(t, err)
	}

	_, err := fs.CreateFile(root, "ONEMORE")
	assert.ErrorIs(t, err, ErrExhausted)

	_, err = fs.FindEntry(root, "ONEMORE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileSystem_ReadDirEntries_slotMarkers(t *testing.T) {
	fs := testingInitialized(t)

	cluster, err := fs.AllocateCluster()
	require.NoError(t, err)
	require.NoError(t, fs.ZeroCluster(cluster))

	write := func(slot int, name string, first byte) {
		raw, err := NewDirEntry(name, AttrArchive, 0).MarshalBinary()
		require.NoError(t, err)
		if first != 0 {
			raw[0] = first
		}
		require.NoError(t, fs.writeCluster(cluster, int64(slot*DirEntrySize), raw))
	}

	write(0, "A", 0)
	write(1, "B", slotDeleted)
	write(2, "C", 0)
	// Slot 3 stays zero and ends the directory.
	write(4, "D", 0)

	entries, err := fs.ReadDirEntries(cluster)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var names []string
	for _, e := range entries {
		name, err := e.DecodedName()
		require.NoError(t, err)
		names = append(names, name)
	}
	assert.Equal(t, []string{"A", "C"}, names)

	// The deleted slot is reused first.
	index, err := fs.AllocateDirEntry(NewDirEntry("E", AttrArchive, 0), cluster)
	require.NoError(t, err)
	assert.Equal(t, 1, index)

	index, err = fs.AllocateDirEntry(NewDirEntry("F", AttrArchive, 0), cluster)
	require.NoError(t, err)
	assert.Equal(t, 3, index)
}

func TestFileSystem_AllocateDirEntry_full(t *testing.T) {
	fs := testingInitialized(t)
	root := fs.RootDirCluster()

	slots := int(fs.ClusterSize() / DirEntrySize)
	for i := 2; i < slots; i++ {
		index, err := fs.AllocateDirEntry(NewDirEntry(fmt.Sprintf("E%d", i), AttrArchive, 0), root)
		require.NoError(t, err)
		assert.Equal(t, i, index)
	}

	_, err := fs.AllocateDirEntry(NewDirEntry("FULL", AttrArchive, 0), root)
	assert.ErrorIs(t, err, ErrDirectoryFull)

	entries, err := fs.ReadDirEntries(root)
	require.NoError(t, err)
	assert.Len(t, entries, slots)
}

func TestFileSystem_Remove(t *testing.T) {
	fs := testingInitialized(t)
	root := fs.RootDirCluster()

	_, err := fs.CreateFile(root, "A.TXT")
	require.NoError(t, err)
	dir, err := fs.CreateDir(root, "DIR")
	require.NoError(t, err)
	_, err = fs.CreateFile(dir, "B.TXT")
	require.NoError(t, err)
	_, err = fs.AllocateDirEntry(NewDirEntry("EMPTY", AttrArchive, 0), root)
	require.NoError(t, err)
	require.Equal(t, 6, occupied(t, fs))

	tests := []struct {
		name      string
		parent    uint32
		target    string
		wantErr   error
		wantCount int
	}{
		{name: "dot", parent: root, target: ".", wantErr: ErrInvalidName, wantCount: 6},
		{name: "missing", parent: root, target: "NOPE", wantErr: ErrNotFound, wantCount: 6},
		{name: "directory not empty", parent: root, target: "DIR", wantErr: ErrDirectoryNotEmpty, wantCount: 6},
		{name: "file", parent: root, target: "A.TXT", wantCount: 5},
		{name: "entry without cluster", parent: root, target: "EMPTY", wantCount: 5},
		{name: "file in sub directory", parent: dir, target: "B.TXT", wantCount: 4},
		{name: "empty directory", parent: root, target: "DIR", wantCount: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fs.Remove(tt.parent, tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				_, err = fs.FindEntry(tt.parent, tt.target)
				assert.ErrorIs(t, err, ErrNotFound)
			}
			assert.Equal(t, tt.wantCount, occupied(t, fs))
		})
	}

	entries, err := fs.ReadDirEntries(root)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.NoError(t, fs.VerifyMirrors())
}

func TestFileSystem_Enumerate(t *testing.T) {
	fs := testingInitialized(t)
	root := fs.RootDirCluster()

	_, err := fs.CreateFile(root, "HELLOWO.RLD")
	require.NoError(t, err)
	dir, err := fs.CreateDir(root, "HELLODIR")
	require.NoError(t, err)
	_, err = fs.CreateFile(dir, "INNER.TXT")
	require.NoError(t, err)

	got, err := fs.Tree(root)
	require.NoError(t, err)
	assert.Equal(t, ".\n..\nHELLOWO.RLD\nHELLODIR/\n| .\n| ..\n| INNER.TXT\n", got)

	got, err = fs.Enumerate(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, "| | .\n| | ..\n| | INNER.TXT\n", got)
}

func TestFileSystem_Enumerate_undecodableName(t *testing.T) {
	fs := testingInitialized(t)
	root := fs.RootDirCluster()

	broken := DirEntry{Name: [11]byte{0xFF, 0xFE, 'A', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}, Attribute: AttrDirectory}
	_, err := fs.AllocateDirEntry(broken, root)
	require.NoError(t, err)
	_, err = fs.CreateFile(root, "AFTER")
	require.NoError(t, err)

	got, err := fs.Tree(root)
	require.NoError(t, err)
	assert.Equal(t, ".\n..\n?\nAFTER\n", got)
}

func TestFileSystem_Enumerate_cycle(t *testing.T) {
	fs := testingInitialized(t)
	root := fs.RootDirCluster()

	dir, err := fs.CreateDir(root, "DIR")
	require.NoError(t, err)
	_, err = fs.AllocateDirEntry(NewDirEntry("LOOP", AttrDirectory, root), dir)
	require.NoError(t, err)

	_, err = fs.Tree(root)
	assert.ErrorIs(t, err, ErrCorruption)
}

func TestFs_RemoveAll_cycle(t *testing.T) {
	vol := NewVolume(testingDisk(t))
	require.NoError(t, vol.Session(func(fs *FileSystem) error {
		if err := fs.Initialize(); err != nil {
			return err
		}
		root := fs.RootDirCluster()
		_, err := fs.AllocateDirEntry(NewDirEntry("LOOP", AttrDirectory, root), root)
		return err
	}))

	err := NewFs(vol).RemoveAll("/LOOP")
	assert.ErrorIs(t, err, ErrCorruption)

	// Nothing was removed.
	require.NoError(t, vol.Session(func(fs *FileSystem) error {
		_, err := fs.FindDirIn(fs.RootDirCluster(), "LOOP")
		return err
	}))
}
