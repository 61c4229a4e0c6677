package minifat

import (
	"encoding/binary"
	"fmt"

	"github.com/aligator/minifat/checkpoint"
	"github.com/zeebo/blake3"
)

// FATEntry is the value of one 32 bit FAT entry.
type FATEntry uint32

const (
	FreeCluster     FATEntry = 0x00000000
	ReservedCluster FATEntry = 0x00000001
	BadCluster      FATEntry = 0x0FFFFFF7

	// EndOfChain is written for newly allocated clusters.
	// Every value from EndOfChain up is read as end of chain.
	EndOfChain FATEntry = 0x0FFFFFF8

	lastNextCluster FATEntry = 0x0FFFFFF6

	headerEntry0 FATEntry = 0x0FFFFFF0
	headerEntry1 FATEntry = 0xFFFFFFFF
)

func (e FATEntry) IsFree() bool {
	return e == FreeCluster
}

func (e FATEntry) IsReserved() bool {
	return e == ReservedCluster
}

// IsNextCluster reports whether e links to a following cluster.
func (e FATEntry) IsNextCluster() bool {
	return e >= firstDataCluster && e <= lastNextCluster
}

func (e FATEntry) IsBad() bool {
	return e == BadCluster
}

func (e FATEntry) IsEOF() bool {
	return e >= EndOfChain
}

func (e FATEntry) String() string {
	switch {
	case e.IsFree():
		return "free"
	case e.IsReserved():
		return "reserved"
	case e.IsBad():
		return "bad"
	case e.IsEOF():
		return fmt.Sprintf("end of chain (0x%08X)", uint32(e))
	default:
		return fmt.Sprintf("next %d", uint32(e))
	}
}

// fatBytes is the size of one FAT copy.
func (fs *FileSystem) fatBytes() int64 {
	return int64(fs.desc.FATSize()) * fs.bytesPerSector
}

func (fs *FileSystem) fatCopies() int {
	return int(fs.desc.BPB.NumFATs)
}

// fatOffset returns the byte offset of the entry of cluster in the given copy.
func (fs *FileSystem) fatOffset(copyIndex int, cluster uint32) int64 {
	return int64(fs.fatStart)*fs.bytesPerSector + int64(copyIndex)*fs.fatBytes() + int64(cluster)*4
}

func (fs *FileSystem) checkEntryIndex(cluster uint32) error {
	if int64(cluster) >= fs.fatBytes()/4 {
		return fmt.Errorf("%w: %d is behind the FAT end", ErrInvalidCluster, cluster)
	}
	return nil
}

func (fs *FileSystem) readFAT(copyIndex int) ([]byte, error) {
	table := make([]byte, fs.fatBytes())
	err := fs.dev.ReadRegion(fs.fatOffset(copyIndex, 0), table)
	if err != nil {
		return nil, checkpoint.From(fmt.Errorf("reading FAT copy %d: %w", copyIndex, err))
	}
	return table, nil
}

func entryAt(table []byte, cluster uint32) FATEntry {
	return FATEntry(binary.LittleEndian.Uint32(table[cluster*4:]))
}

// ResetTables clears every FAT copy and writes the two header entries into
// each of them. The root directory cluster is not marked, see CreateRootDir.
func (fs *FileSystem) ResetTables() error {
	table := make([]byte, fs.fatBytes())
	if len(table) < 8 {
		return fmt.Errorf("%w: FAT too small for the header entries", ErrMalformedVolume)
	}

	binary.LittleEndian.PutUint32(table[0:], uint32(headerEntry0|FATEntry(fs.desc.BPB.Media)))
	binary.LittleEndian.PutUint32(table[4:], uint32(headerEntry1))

	for i := 0; i < fs.fatCopies(); i++ {
		if err := fs.dev.WriteRegion(fs.fatOffset(i, 0), table); err != nil {
			return checkpoint.From(fmt.Errorf("writing FAT copy %d: %w", i, err))
		}
	}

	fs.logger.Debug("reset FAT copies", "copies", fs.fatCopies(), "bytes", len(table))
	return nil
}

// AllocateCluster claims the first free cluster of the first FAT copy and
// marks it as end of chain in every copy.
// It returns ErrExhausted if there is no free cluster left.
func (fs *FileSystem) AllocateCluster() (uint32, error) {
	table, err := fs.readFAT(0)
	if err != nil {
		return 0, err
	}

	for cluster := uint32(firstDataCluster); cluster < fs.clusterEnd; cluster++ {
		if !entryAt(table, cluster).IsFree() {
			continue
		}

		if err := fs.WriteEntry(cluster, EndOfChain); err != nil {
			return 0, err
		}

		fs.logger.Debug("allocated cluster", "cluster", cluster)
		return cluster, nil
	}

	return 0, checkpoint.From(ErrExhausted)
}

// WriteEntry sets the entry of cluster to value in every FAT copy.
func (fs *FileSystem) WriteEntry(cluster uint32, value FATEntry) error {
	if err := fs.checkEntryIndex(cluster); err != nil {
		return err
	}

	var raw [4]byte
	binary.LittleEndian.PutUint32(raw[:], uint32(value))

	for i := 0; i < fs.fatCopies(); i++ {
		if err := fs.dev.WriteRegion(fs.fatOffset(i, cluster), raw[:]); err != nil {
			return checkpoint.From(fmt.Errorf("writing entry %d of FAT copy %d: %w", cluster, i, err))
		}
	}

	return nil
}

// ReadEntry returns the entry of cluster from the first FAT copy.
func (fs *FileSystem) ReadEntry(cluster uint32) (FATEntry, error) {
	if err := fs.checkEntryIndex(cluster); err != nil {
		return 0, err
	}

	var raw [4]byte
	if err := fs.dev.ReadRegion(fs.fatOffset(0, cluster), raw[:]); err != nil {
		return 0, checkpoint.From(fmt.Errorf("reading entry %d: %w", cluster, err))
	}

	return FATEntry(binary.LittleEndian.Uint32(raw[:])), nil
}

// FreeChain frees every cluster of the chain starting at start, including
// the last one. The link to the next cluster is always read before the
// current entry is cleared.
//
// A chain linking to a free, reserved or bad cluster, to a cluster behind
// the cluster heap or being longer than the volume has clusters results in
// ErrCorruption. The clusters visited up to that point stay freed.
func (fs *FileSystem) FreeChain(start uint32) error {
	if start < firstDataCluster || start >= fs.clusterEnd {
		return checkpoint.From(fmt.Errorf("%w: cannot free chain at %d", ErrInvalidCluster, start))
	}

	current := start
	for hops := uint32(0); ; hops++ {
		if hops > fs.ClusterCount() {
			return checkpoint.From(fmt.Errorf("%w: chain at %d is longer than %d clusters", ErrCorruption, start, fs.ClusterCount()))
		}

		next, err := fs.ReadEntry(current)
		if err != nil {
			return err
		}

		if err := fs.WriteEntry(current, FreeCluster); err != nil {
			return err
		}
		fs.logger.Debug("freed cluster", "cluster", current, "next", next)

		if next.IsEOF() {
			return nil
		}

		if !next.IsNextCluster() || uint32(next) >= fs.clusterEnd {
			return checkpoint.From(fmt.Errorf("%w: cluster %d links to %v", ErrCorruption, current, next))
		}

		current = uint32(next)
	}
}

// CountOccupied counts every non-zero entry of the first FAT copy,
// including the two header entries.
func (fs *FileSystem) CountOccupied() (int, error) {
	table, err := fs.readFAT(0)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := 0; i+4 <= len(table); i += 4 {
		if binary.LittleEndian.Uint32(table[i:]) != 0 {
			count++
		}
	}
	return count, nil
}

// MirrorDigests returns the BLAKE3 digest of every FAT copy.
func (fs *FileSystem) MirrorDigests() ([][32]byte, error) {
	digests := make([][32]byte, fs.fatCopies())
	for i := range digests {
		table, err := fs.readFAT(i)
		if err != nil {
			return nil, err
		}
		digests[i] = blake3.Sum256(table)
	}
	return digests, nil
}

// VerifyMirrors checks that every FAT copy is identical to the first one.
func (fs *FileSystem) VerifyMirrors() error {
	digests, err := fs.MirrorDigests()
	if err != nil {
		return err
	}

	for i := 1; i < len(digests); i++ {
		if digests[i] != digests[0] {
			return checkpoint.From(fmt.Errorf("%w: copy %d differs from copy 0", ErrMirrorMismatch, i))
		}
	}
	return nil
}
