// Package minifat implements a small FAT32 engine: formatting, the mirrored
// FATs, single cluster directories and an afero.Fs view on top of it.
package minifat

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/aligator/minifat/checkpoint"
)

// firstDataCluster is the first cluster index of the cluster heap.
// Entries 0 and 1 of the FAT are header entries.
const firstDataCluster = 2

// Option configures a FileSystem on Mount.
type Option func(fs *FileSystem)

// WithLogger sets the logger used for debug output of the filesystem operations.
func WithLogger(logger *slog.Logger) Option {
	return func(fs *FileSystem) {
		if logger != nil {
			fs.logger = logger
		}
	}
}

// FileSystem is a mounted FAT32 volume.
// It holds only the geometry derived from the boot sector, every operation
// reads and writes the device directly. It is not safe for concurrent use,
// see Volume for serialized access.
type FileSystem struct {
	dev    BlockDevice
	desc   VolumeDescriptor
	logger *slog.Logger

	bytesPerSector   int64
	fatStart         uint32 // in sectors
	clusterHeapStart uint32 // in sectors
	rootDirCluster   uint32

	// clusterEnd is the first cluster index which cannot be allocated.
	clusterEnd uint32
}

// Mount reads and validates the boot sector of dev.
func Mount(dev BlockDevice, opts ...Option) (*FileSystem, error) {
	return mount(dev, false, opts)
}

// MountSkipChecks mounts dev just like Mount but skips the validation of the
// geometry, which may allow you to open not perfectly standard volumes.
// Use with caution!
func MountSkipChecks(dev BlockDevice, opts ...Option) (*FileSystem, error) {
	return mount(dev, true, opts)
}

func mount(dev BlockDevice, skipChecks bool, opts []Option) (*FileSystem, error) {
	var sector [SectorSize]byte
	if err := dev.ReadSector(0, &sector); err != nil {
		return nil, checkpoint.Wrapf(err, ErrMount, "reading the boot sector")
	}

	desc, err := ParseVolumeDescriptor(sector[:])
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrMount)
	}

	if !skipChecks {
		if err := checkBootSector(sector[:], desc); err != nil {
			return nil, checkpoint.Wrap(err, ErrMount)
		}
	}

	// Even unchecked volumes must not describe FATs outside of the device,
	// every FAT operation reads a whole copy into memory.
	metadataSectors := uint64(desc.BPB.ReservedSectorCount) + uint64(desc.FATSize())*uint64(desc.BPB.NumFATs)
	if metadataSectors > math.MaxUint32 || metadataSectors*uint64(desc.BPB.BytesPerSector) > uint64(dev.Size()) {
		return nil, checkpoint.Wrapf(ErrMalformedVolume, ErrMount,
			"reserved sectors and FATs need %d sectors of %d bytes, the device has %d bytes",
			metadataSectors, desc.BPB.BytesPerSector, dev.Size())
	}

	fs := &FileSystem{
		dev:            dev,
		desc:           desc,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		bytesPerSector: int64(desc.BPB.BytesPerSector),
		fatStart:       uint32(desc.BPB.ReservedSectorCount),
		rootDirCluster: desc.EBR.RootCluster,
	}
	fs.clusterHeapStart = uint32(metadataSectors)
	fs.clusterEnd = fs.computeClusterEnd()

	for _, opt := range opts {
		opt(fs)
	}

	if !skipChecks && (fs.rootDirCluster < firstDataCluster || fs.rootDirCluster >= fs.clusterEnd) {
		return nil, checkpoint.Wrap(fmt.Errorf("%w: root cluster %d outside of 2..%d", ErrMalformedVolume, fs.rootDirCluster, fs.clusterEnd-1), ErrMount)
	}

	fs.logger.Debug("mounted volume",
		"label", desc.Label(),
		"fatStart", fs.fatStart,
		"clusterHeapStart", fs.clusterHeapStart,
		"rootCluster", fs.rootDirCluster,
		"clusters", fs.ClusterCount())

	return fs, nil
}

// checkBootSector validates everything the filesystem relies on.
func checkBootSector(sector []byte, desc VolumeDescriptor) error {
	bpb := desc.BPB

	// Check for valid jump instructions.
	if !(bpb.BSJumpBoot[0] == 0xEB && bpb.BSJumpBoot[2] == 0x90) && bpb.BSJumpBoot[0] != 0xE9 {
		return fmt.Errorf("%w: no valid jump instructions at the beginning", ErrMalformedVolume)
	}

	if sector[510] != 0x55 || sector[511] != 0xAA {
		return fmt.Errorf("%w: missing boot signature", ErrMalformedVolume)
	}

	// Only whole sectors of the block device are supported.
	if bpb.BytesPerSector != SectorSize {
		return fmt.Errorf("%w: unsupported sector size %d", ErrMalformedVolume, bpb.BytesPerSector)
	}

	// Sectors per cluster has to be a power of two and greater than 0.
	if bpb.SectorsPerCluster == 0 || bpb.SectorsPerCluster&(bpb.SectorsPerCluster-1) != 0 {
		return fmt.Errorf("%w: invalid sectors per cluster %d", ErrMalformedVolume, bpb.SectorsPerCluster)
	}

	if bpb.ReservedSectorCount == 0 {
		return fmt.Errorf("%w: invalid reserved sector count", ErrMalformedVolume)
	}

	if bpb.NumFATs == 0 || desc.FATSize() == 0 {
		return fmt.Errorf("%w: no FAT on the volume", ErrMalformedVolume)
	}

	return nil
}

// computeClusterEnd limits the allocatable clusters to the smaller of the FAT
// length and the clusters actually backed by the volume.
func (fs *FileSystem) computeClusterEnd() uint32 {
	if fs.bytesPerSector == 0 {
		return firstDataCluster
	}

	fatEntries := uint64(fs.fatBytes() / 4)

	totalSectors := uint64(fs.desc.TotalSectors())
	deviceSectors := uint64(fs.dev.Size() / fs.bytesPerSector)
	if totalSectors == 0 || totalSectors > deviceSectors {
		totalSectors = deviceSectors
	}

	var dataClusters uint64
	if spc := uint64(fs.desc.BPB.SectorsPerCluster); spc != 0 && totalSectors > uint64(fs.clusterHeapStart) {
		dataClusters = (totalSectors - uint64(fs.clusterHeapStart)) / spc
	}

	end := dataClusters + firstDataCluster
	if fatEntries < end {
		end = fatEntries
	}
	if end < firstDataCluster {
		end = firstDataCluster
	}
	if end > uint64(BadCluster) {
		end = uint64(BadCluster)
	}
	return uint32(end)
}

// Descriptor returns the parsed boot sector records.
func (fs *FileSystem) Descriptor() VolumeDescriptor {
	return fs.desc
}

// FATStart returns the first sector of the first FAT copy.
func (fs *FileSystem) FATStart() uint32 {
	return fs.fatStart
}

// ClusterHeapStart returns the first sector of the cluster heap.
func (fs *FileSystem) ClusterHeapStart() uint32 {
	return fs.clusterHeapStart
}

// RootDirCluster returns the cluster of the root directory.
func (fs *FileSystem) RootDirCluster() uint32 {
	return fs.rootDirCluster
}

// ClusterCount returns the number of clusters which can be allocated.
func (fs *FileSystem) ClusterCount() uint32 {
	return fs.clusterEnd - firstDataCluster
}

// Label returns the volume label.
func (fs *FileSystem) Label() string {
	return fs.desc.Label()
}

// Initialize resets all FAT copies and creates an empty root directory.
// Everything stored on the volume before is lost.
func (fs *FileSystem) Initialize() error {
	if err := fs.ResetTables(); err != nil {
		return err
	}
	return fs.CreateRootDir()
}

// Stats describes the space usage of a volume.
type Stats struct {
	ClusterSize   int64
	TotalClusters uint32
	UsedClusters  uint32
}

func (s Stats) FreeClusters() uint32 {
	return s.TotalClusters - s.UsedClusters
}

func (s Stats) TotalBytes() uint64 {
	return uint64(s.TotalClusters) * uint64(s.ClusterSize)
}

func (s Stats) FreeBytes() uint64 {
	return uint64(s.FreeClusters()) * uint64(s.ClusterSize)
}

// Stats counts the used clusters of the cluster heap.
// In contrast to CountOccupied the header entries and entries behind the
// cluster heap are not counted.
func (fs *FileSystem) Stats() (Stats, error) {
	table, err := fs.readFAT(0)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		ClusterSize:   fs.ClusterSize(),
		TotalClusters: fs.ClusterCount(),
	}
	for cluster := uint32(firstDataCluster); cluster < fs.clusterEnd; cluster++ {
		if !entryAt(table, cluster).IsFree() {
			stats.UsedClusters++
		}
	}

	return stats, nil
}
