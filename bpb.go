package minifat

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aligator/minifat/checkpoint"
)

const (
	bpbSize = 36
	ebrSize = 54

	// VolumeDescriptorSize is the number of bytes of sector 0 holding the BPB and the EBR.
	VolumeDescriptorSize = bpbSize + ebrSize
)

// BPB is the BIOS Parameter Block at the very beginning of sector 0.
type BPB struct {
	BSJumpBoot          [3]byte
	BSOEMName           [8]byte
	BytesPerSector      uint16
	SectorsPerCluster   byte
	ReservedSectorCount uint16
	NumFATs             byte
	RootEntryCount      uint16
	TotalSectors16      uint16
	Media               byte
	FATSize16           uint16
	SectorsPerTrack     uint16
	NumberOfHeads       uint16
	HiddenSectors       uint32
	TotalSectors32      uint32
}

// EBR is the FAT32 Extended Boot Record which directly follows the BPB.
type EBR struct {
	FATSize32        uint32
	ExtFlags         uint16
	FSVersion        uint16
	RootCluster      uint32
	FSInfo           uint16
	BkBootSector     uint16
	Reserved         [12]byte
	BSDriveNumber    byte
	BSReserved1      byte
	BSBootSignature  byte
	BSVolumeID       uint32
	BSVolumeLabel    [11]byte
	BSFileSystemType [8]byte
}

// VolumeDescriptor combines both records of sector 0.
type VolumeDescriptor struct {
	BPB BPB
	EBR EBR
}

// ParseBPB decodes the first 36 bytes of buf.
func ParseBPB(buf []byte) (BPB, error) {
	bpb := BPB{}
	if len(buf) < bpbSize {
		return bpb, fmt.Errorf("%w: BPB needs %d bytes, got %d", ErrMalformedVolume, bpbSize, len(buf))
	}

	err := binary.Read(bytes.NewReader(buf[:bpbSize]), binary.LittleEndian, &bpb)
	return bpb, checkpoint.From(err)
}

// ParseEBR decodes the first 54 bytes of buf.
// Note that buf has to start at the EBR, not at the beginning of the sector.
func ParseEBR(buf []byte) (EBR, error) {
	ebr := EBR{}
	if len(buf) < ebrSize {
		return ebr, fmt.Errorf("%w: EBR needs %d bytes, got %d", ErrMalformedVolume, ebrSize, len(buf))
	}

	err := binary.Read(bytes.NewReader(buf[:ebrSize]), binary.LittleEndian, &ebr)
	return ebr, checkpoint.From(err)
}

// ParseVolumeDescriptor decodes both records from the beginning of sector 0.
func ParseVolumeDescriptor(sector []byte) (VolumeDescriptor, error) {
	bpb, err := ParseBPB(sector)
	if err != nil {
		return VolumeDescriptor{}, err
	}

	ebr, err := ParseEBR(sector[bpbSize:])
	if err != nil {
		return VolumeDescriptor{}, err
	}

	return VolumeDescriptor{BPB: bpb, EBR: ebr}, nil
}

// MarshalBinary encodes both records into VolumeDescriptorSize bytes.
func (v VolumeDescriptor) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, VolumeDescriptorSize))
	if err := binary.Write(buf, binary.LittleEndian, v.BPB); err != nil {
		return nil, checkpoint.From(err)
	}
	if err := binary.Write(buf, binary.LittleEndian, v.EBR); err != nil {
		return nil, checkpoint.From(err)
	}
	return buf.Bytes(), nil
}

// FATSize returns the size of one FAT copy in sectors.
// The 32 bit field is used whenever the 16 bit field is zero, which is the
// only check distinguishing FAT32 from FAT16 here.
func (v VolumeDescriptor) FATSize() uint32 {
	if v.BPB.FATSize16 == 0 {
		return v.EBR.FATSize32
	}
	return uint32(v.BPB.FATSize16)
}

// TotalSectors returns the 16 bit total if it is set and the 32 bit total otherwise.
// It may be 0 for volumes which set neither.
func (v VolumeDescriptor) TotalSectors() uint32 {
	if v.BPB.TotalSectors16 != 0 {
		return uint32(v.BPB.TotalSectors16)
	}
	return v.BPB.TotalSectors32
}

// Label returns the volume label without the padding.
func (v VolumeDescriptor) Label() string {
	return strings.TrimRight(printable(v.EBR.BSVolumeLabel[:]), " ")
}

func printable(b []byte) string {
	if !utf8.Valid(b) {
		return "<invalid utf8>"
	}
	return string(b)
}

func (b BPB) String() string {
	return fmt.Sprintf(`BiosParameterBlock {
JMP: % X
OEM: %s
Bytes per sector: %d
Sectors per cluster: %d
Reserved sectors: %d
FAT table count: %d
Root entries: %d
Total sectors 16: %d
Media descriptor: 0x%02X
FAT size 16: %d
Sectors per track: %d
Heads on media: %d
Hidden sectors: %d
Total sectors 32: %d
}`,
		b.BSJumpBoot[:],
		printable(b.BSOEMName[:]),
		b.BytesPerSector,
		b.SectorsPerCluster,
		b.ReservedSectorCount,
		b.NumFATs,
		b.RootEntryCount,
		b.TotalSectors16,
		b.Media,
		b.FATSize16,
		b.SectorsPerTrack,
		b.NumberOfHeads,
		b.HiddenSectors,
		b.TotalSectors32,
	)
}

func (e EBR) String() string {
	return fmt.Sprintf(`ExtendedBootRecord32 {
FAT size 32: %d
Ext flags: %d
FAT version: %d
Root cluster: %d
FS info sector: %d
Backup boot sector: %d
Drive number: %d
Signature: 0x%02X
Volume ID: 0x%08X
Volume Label: %s
FS ID: %s
}`,
		e.FATSize32,
		e.ExtFlags,
		e.FSVersion,
		e.RootCluster,
		e.FSInfo,
		e.BkBootSector,
		e.BSDriveNumber,
		e.BSBootSignature,
		e.BSVolumeID,
		printable(e.BSVolumeLabel[:]),
		printable(e.BSFileSystemType[:]),
	)
}
