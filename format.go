package minifat

import (
	"fmt"
	"unicode/utf8"

	"github.com/aligator/minifat/checkpoint"
)

// MediaFixedDisk is the media descriptor written by Format.
const MediaFixedDisk = 0xF8

// FormatOptions describe the geometry of a new volume.
type FormatOptions struct {
	SizeInSectors     uint32
	SectorsPerCluster uint8
	ReservedSectors   uint16
	FATCount          uint8
	FATSize           uint32 // in sectors, per copy
	RootCluster       uint32
	FSInfoSector      uint16
	BackupBootSector  uint16
	VolumeID          uint32
	VolumeLabel       [11]byte
}

// DefaultFormatOptions returns the geometry of the small seed volume:
// 400 sectors, 8 sectors per cluster, 32 reserved sectors and two FATs of 100 sectors.
// That leaves 21 clusters for data.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		SizeInSectors:     400,
		SectorsPerCluster: 8,
		ReservedSectors:   32,
		FATCount:          2,
		FATSize:           100,
		RootCluster:       2,
		FSInfoSector:      1,
		BackupBootSector:  6,
		VolumeID:          0x12345678,
		VolumeLabel:       [11]byte{'N', 'O', ' ', 'N', 'A', 'M', 'E', ' ', ' ', ' ', ' '},
	}
}

// LabelBytes pads or truncates label to the 11 bytes stored in the EBR.
// Truncation never splits a character.
func LabelBytes(label string) [11]byte {
	var result [11]byte
	for i := range result {
		result[i] = ' '
	}

	for len(label) > len(result) {
		_, size := utf8.DecodeLastRuneInString(label)
		label = label[:len(label)-size]
	}
	copy(result[:], label)
	return result
}

// metadataSectors is the number of sectors in front of the cluster heap.
func (o FormatOptions) metadataSectors() uint64 {
	return uint64(o.ReservedSectors) + uint64(o.FATCount)*uint64(o.FATSize)
}

// DataClusters returns the number of clusters of the cluster heap, limited
// by the entries the FAT can hold.
func (o FormatOptions) DataClusters() uint32 {
	metadata := o.metadataSectors()
	if o.SectorsPerCluster == 0 || metadata >= uint64(o.SizeInSectors) {
		return 0
	}

	clusters := (uint64(o.SizeInSectors) - metadata) / uint64(o.SectorsPerCluster)
	if fatEntries := uint64(o.FATSize) * SectorSize / 4; clusters+firstDataCluster > fatEntries {
		clusters = fatEntries - firstDataCluster
	}
	return uint32(clusters)
}

// Validate checks opts against the rules Mount applies to the boot sector, so
// every volume written by Format can be mounted again.
func (o FormatOptions) Validate() error {
	if o.SectorsPerCluster == 0 || o.SectorsPerCluster&(o.SectorsPerCluster-1) != 0 {
		return fmt.Errorf("%w: sectors per cluster must be a power of two, got %d", ErrMalformedVolume, o.SectorsPerCluster)
	}
	if o.ReservedSectors == 0 {
		return fmt.Errorf("%w: at least the boot sector has to be reserved", ErrMalformedVolume)
	}
	if o.FATCount == 0 || o.FATSize == 0 {
		return fmt.Errorf("%w: at least one FAT of non-zero size is needed", ErrMalformedVolume)
	}
	if o.RootCluster < firstDataCluster {
		return fmt.Errorf("%w: root cluster %d", ErrInvalidCluster, o.RootCluster)
	}
	if needed := o.metadataSectors(); needed > uint64(o.SizeInSectors) {
		return fmt.Errorf("%w: %d sectors given, at least %d needed", ErrVolumeTooSmall, o.SizeInSectors, needed)
	}
	if clusters := o.DataClusters(); clusters > 0 && uint64(o.RootCluster) >= uint64(clusters)+firstDataCluster {
		return fmt.Errorf("%w: root cluster %d behind the last cluster %d", ErrInvalidCluster, o.RootCluster, clusters+firstDataCluster-1)
	}
	return nil
}

func (o FormatOptions) descriptor() VolumeDescriptor {
	v := VolumeDescriptor{
		BPB: BPB{
			BSJumpBoot:          [3]byte{0xEB, 0x58, 0x90},
			BSOEMName:           [8]byte{'M', 'S', 'W', 'I', 'N', '4', '.', '1'},
			BytesPerSector:      SectorSize,
			SectorsPerCluster:   o.SectorsPerCluster,
			ReservedSectorCount: o.ReservedSectors,
			NumFATs:             o.FATCount,
			Media:               MediaFixedDisk,
			SectorsPerTrack:     63,
			NumberOfHeads:       255,
		},
		EBR: EBR{
			FATSize32:        o.FATSize,
			RootCluster:      o.RootCluster,
			FSInfo:           o.FSInfoSector,
			BkBootSector:     o.BackupBootSector,
			BSDriveNumber:    0x80,
			BSBootSignature:  0x29,
			BSVolumeID:       o.VolumeID,
			BSVolumeLabel:    o.VolumeLabel,
			BSFileSystemType: [8]byte{'F', 'A', 'T', '3', '2', ' ', ' ', ' '},
		},
	}

	if o.SizeInSectors < 0x10000 {
		v.BPB.TotalSectors16 = uint16(o.SizeInSectors)
	} else {
		v.BPB.TotalSectors32 = o.SizeInSectors
	}

	return v
}

// Format writes a FAT32 boot sector described by opts to sector 0 of dev.
// Only the boot sector is written: the FATs and the root directory are
// initialized by FileSystem.ResetTables and FileSystem.CreateRootDir.
func Format(dev BlockDevice, opts FormatOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	if dev.Size() < int64(opts.SizeInSectors)*SectorSize {
		return fmt.Errorf("%w: device has %d bytes, volume needs %d", ErrVolumeTooSmall, dev.Size(), int64(opts.SizeInSectors)*SectorSize)
	}

	raw, err := opts.descriptor().MarshalBinary()
	if err != nil {
		return err
	}

	var sector [SectorSize]byte
	copy(sector[:], raw)
	sector[510] = 0x55
	sector[511] = 0xAA

	return checkpoint.From(dev.WriteSector(0, &sector))
}
