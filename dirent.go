package minifat

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aligator/minifat/checkpoint"
)

// DirEntrySize is the size of one directory slot.
const DirEntrySize = 32

// Attributes of a directory entry.
const (
	AttrReadOnly  byte = 0x01
	AttrHidden    byte = 0x02
	AttrSystem    byte = 0x04
	AttrVolumeID  byte = 0x08
	AttrDirectory byte = 0x10
	AttrArchive   byte = 0x20
)

// First byte markers of a directory slot.
const (
	slotEnd     byte = 0x00 // this and all following slots are unused
	slotDeleted byte = 0xE5
)

// DirEntry is the 32 byte directory entry as it is stored on disk.
type DirEntry struct {
	Name            [11]byte
	Attribute       byte
	NTReserved      byte
	CreateTimeTenth byte
	CreateTime      uint16
	CreateDate      uint16
	LastAccessDate  uint16
	FirstClusterHI  uint16
	WriteTime       uint16
	WriteDate       uint16
	FirstClusterLO  uint16
	FileSize        uint32
}

// NewDirEntry creates an entry for name with the given attributes pointing at cluster.
// All timestamps stay zero.
func NewDirEntry(name string, attribute byte, cluster uint32) DirEntry {
	e := DirEntry{
		Name:      EncodeName(name),
		Attribute: attribute,
	}
	e.SetFirstCluster(cluster)
	return e
}

// DecodeDirEntry decodes the first DirEntrySize bytes of buf.
func DecodeDirEntry(buf []byte) (DirEntry, error) {
	e := DirEntry{}
	if len(buf) < DirEntrySize {
		return e, fmt.Errorf("%w: directory entry needs %d bytes, got %d", ErrOutOfRange, DirEntrySize, len(buf))
	}

	err := binary.Read(bytes.NewReader(buf[:DirEntrySize]), binary.LittleEndian, &e)
	return e, checkpoint.From(err)
}

// MarshalBinary encodes the entry into DirEntrySize bytes.
func (e DirEntry) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, DirEntrySize))
	if err := binary.Write(buf, binary.LittleEndian, e); err != nil {
		return nil, checkpoint.From(err)
	}
	return buf.Bytes(), nil
}

// FirstCluster combines the high and low word of the first cluster.
func (e DirEntry) FirstCluster() uint32 {
	return uint32(e.FirstClusterHI)<<16 | uint32(e.FirstClusterLO)
}

func (e *DirEntry) SetFirstCluster(cluster uint32) {
	e.FirstClusterHI = uint16(cluster >> 16)
	e.FirstClusterLO = uint16(cluster)
}

func (e DirEntry) IsDir() bool {
	return e.Attribute&AttrDirectory == AttrDirectory
}

// IsDotEntry reports whether the entry is the "." or ".." entry of a directory.
func (e DirEntry) IsDotEntry() bool {
	return e.Name[0] == '.' && strings.TrimRight(string(e.Name[:]), " .") == ""
}

// DecodedName returns the name in the form "NAME.EXT" without padding.
// It fails with ErrInvalidName if the raw name is no valid UTF-8.
func (e DirEntry) DecodedName() (string, error) {
	return DecodeName(e.Name)
}

// EncodeName converts name into the 11 byte 8.3 form. The part after the
// last dot is the extension. Base and extension are upper-cased, truncated
// to 8 and 3 bytes and padded with spaces. "." and ".." are kept as they are.
func EncodeName(name string) [11]byte {
	var result [11]byte
	for i := range result {
		result[i] = ' '
	}

	if name == "." || name == ".." {
		copy(result[:], name)
		return result
	}

	base, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		base, ext = name[:i], name[i+1:]
	}

	copy(result[:8], strings.ToUpper(base))
	copy(result[8:], strings.ToUpper(ext))
	return result
}

// DecodeName converts an 11 byte 8.3 name back into "NAME.EXT".
func DecodeName(raw [11]byte) (string, error) {
	if !utf8.Valid(raw[:]) {
		return "", fmt.Errorf("%w: % X is no valid text", ErrInvalidName, raw[:])
	}

	name := strings.TrimRight(string(raw[:8]), " ")
	ext := strings.TrimRight(string(raw[8:]), " ")
	if ext != "" {
		name += "." + ext
	}
	return name, nil
}

// NormalizeName returns name the way it reads after being stored, so it can
// be compared with decoded names.
func NormalizeName(name string) (string, error) {
	return DecodeName(EncodeName(name))
}

// checkNewName rejects names which cannot be stored as a new entry.
func checkNewName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	encoded := EncodeName(name)
	if encoded[0] == ' ' || encoded[0] == slotEnd || encoded[0] == slotDeleted {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !utf8.Valid(encoded[:]) {
		return fmt.Errorf("%w: %q cannot be truncated to 8.3 without breaking a character", ErrInvalidName, name)
	}
	return nil
}
