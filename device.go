package minifat

import (
	"fmt"
	"io"
	"os"

	"github.com/aligator/minifat/checkpoint"
	"github.com/spf13/afero"
)

// SectorSize is the only sector size supported by the block devices.
const SectorSize = 512

// BlockDevice is a sector addressable medium.
//
// ReadRegion and WriteRegion give byte-range access to the medium for spans
// wider than one sector, like a whole FAT copy or a cluster.
// Every method fails with ErrOutOfRange if the access does not fit into Size().
//
// Generated mock using mockgen:
//  mockgen -source=device.go -destination=device_mock.go -package minifat
type BlockDevice interface {
	ReadSector(lba uint64, buf *[SectorSize]byte) error
	WriteSector(lba uint64, buf *[SectorSize]byte) error
	ReadRegion(offset int64, p []byte) error
	WriteRegion(offset int64, p []byte) error
	Size() int64
}

func checkBounds(offset int64, length int, size int64) error {
	if offset < 0 || offset+int64(length) > size {
		return fmt.Errorf("%w: offset %d, length %d, size %d", ErrOutOfRange, offset, length, size)
	}
	return nil
}

func sectorOffset(lba uint64) int64 {
	return int64(lba) * SectorSize
}

// RAMDisk is a BlockDevice held completely in memory.
type RAMDisk struct {
	data []byte
}

// NewRAMDisk allocates a new in-memory medium of opts.SizeInSectors sectors
// and formats it with Format.
func NewRAMDisk(opts FormatOptions) (*RAMDisk, error) {
	if err := opts.Validate(); err != nil {
		return nil, checkpoint.From(err)
	}

	disk := &RAMDisk{
		data: make([]byte, int(opts.SizeInSectors)*SectorSize),
	}

	if err := Format(disk, opts); err != nil {
		return nil, checkpoint.From(err)
	}

	return disk, nil
}

func (d *RAMDisk) ReadSector(lba uint64, buf *[SectorSize]byte) error {
	return d.ReadRegion(sectorOffset(lba), buf[:])
}

func (d *RAMDisk) WriteSector(lba uint64, buf *[SectorSize]byte) error {
	return d.WriteRegion(sectorOffset(lba), buf[:])
}

func (d *RAMDisk) ReadRegion(offset int64, p []byte) error {
	if err := checkBounds(offset, len(p), d.Size()); err != nil {
		return err
	}
	copy(p, d.data[offset:])
	return nil
}

func (d *RAMDisk) WriteRegion(offset int64, p []byte) error {
	if err := checkBounds(offset, len(p), d.Size()); err != nil {
		return err
	}
	copy(d.data[offset:], p)
	return nil
}

func (d *RAMDisk) Size() int64 {
	return int64(len(d.data))
}

// Bytes exposes the raw medium. It is mainly useful to persist a RAMDisk.
func (d *RAMDisk) Bytes() []byte {
	return d.data
}

// FileDisk is a BlockDevice backed by an image file of an afero.Fs.
// Using afero.NewMemMapFs() it can also live completely in memory.
// The image never grows: the size is fixed when it is opened.
type FileDisk struct {
	file afero.File
	size int64
}

// OpenImage opens an existing image file for reading and writing.
func OpenImage(afs afero.Fs, path string) (*FileDisk, error) {
	file, err := afs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, checkpoint.From(err)
	}

	return &FileDisk{
		file: file,
		size: stat.Size(),
	}, nil
}

// CreateImage creates (or truncates) an image file of opts.SizeInSectors
// sectors and formats it.
func CreateImage(afs afero.Fs, path string, opts FormatOptions) (*FileDisk, error) {
	if err := opts.Validate(); err != nil {
		return nil, checkpoint.From(err)
	}

	file, err := afs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	disk, err := NewImage(file, opts)
	if err != nil {
		file.Close()
		return nil, err
	}
	return disk, nil
}

// NewImage discards the content of file, resizes it to opts.SizeInSectors
// sectors and formats it. The caller keeps owning file, which allows locking
// it before anything is overwritten.
func NewImage(file afero.File, opts FormatOptions) (*FileDisk, error) {
	if err := opts.Validate(); err != nil {
		return nil, checkpoint.From(err)
	}

	size := int64(opts.SizeInSectors) * SectorSize
	if err := file.Truncate(0); err != nil {
		return nil, checkpoint.From(err)
	}
	if err := file.Truncate(size); err != nil {
		return nil, checkpoint.From(err)
	}

	disk := &FileDisk{
		file: file,
		size: size,
	}

	if err := Format(disk, opts); err != nil {
		return nil, checkpoint.From(err)
	}

	return disk, nil
}

func (d *FileDisk) ReadSector(lba uint64, buf *[SectorSize]byte) error {
	return d.ReadRegion(sectorOffset(lba), buf[:])
}

func (d *FileDisk) WriteSector(lba uint64, buf *[SectorSize]byte) error {
	return d.WriteRegion(sectorOffset(lba), buf[:])
}

func (d *FileDisk) ReadRegion(offset int64, p []byte) error {
	if err := checkBounds(offset, len(p), d.size); err != nil {
		return err
	}

	n, err := d.file.ReadAt(p, offset)
	if n == len(p) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read %d of %d bytes at %d: %w", n, len(p), offset, err)
}

func (d *FileDisk) WriteRegion(offset int64, p []byte) error {
	if err := checkBounds(offset, len(p), d.size); err != nil {
		return err
	}

	_, err := d.file.WriteAt(p, offset)
	return checkpoint.From(err)
}

func (d *FileDisk) Size() int64 {
	return d.size
}

// File returns the underlying image file.
func (d *FileDisk) File() afero.File {
	return d.file
}

func (d *FileDisk) Sync() error {
	return d.file.Sync()
}

func (d *FileDisk) Close() error {
	return d.file.Close()
}
