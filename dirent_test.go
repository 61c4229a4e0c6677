package minifat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nameBytes(s string) [11]byte {
	var result [11]byte
	copy(result[:], s)
	return result
}

func TestEncodeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "name with extension", in: "HELLO.TXT", want: "HELLO   TXT"},
		{name: "lower case", in: "hello.txt", want: "HELLO   TXT"},
		{name: "no extension", in: "HELLODIR", want: "HELLODIR   "},
		{name: "truncated", in: "LONGFILENAME.TEXT", want: "LONGFILETEX"},
		{name: "last dot separates the extension", in: "a.b.c", want: "A.B     C  "},
		{name: "dot", in: ".", want: ".          "},
		{name: "dot dot", in: "..", want: "..         "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, nameBytes(tt.want), EncodeName(tt.in))
		})
	}
}

func TestDecodeName(t *testing.T) {
	tests := []struct {
		name    string
		raw     [11]byte
		want    string
		wantErr error
	}{
		{name: "name with extension", raw: nameBytes("HELLO   TXT"), want: "HELLO.TXT"},
		{name: "no extension", raw: nameBytes("HELLODIR   "), want: "HELLODIR"},
		{name: "full length", raw: nameBytes("HELLOWO RLD"), want: "HELLOWO.RLD"},
		{name: "dot", raw: nameBytes(".          "), want: "."},
		{name: "no valid text", raw: [11]byte{0xFF, 0xFE, ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}, wantErr: ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeName(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeName(t *testing.T) {
	got, err := NormalizeName("readme.markdown")
	require.NoError(t, err)
	assert.Equal(t, "README.MAR", got)
}

func Test_checkNewName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "valid", in: "HELLO.TXT"},
		{name: "valid lower case", in: "hello"},
		{name: "empty", in: "", wantErr: true},
		{name: "dot", in: ".", wantErr: true},
		{name: "dot dot", in: "..", wantErr: true},
		{name: "slash", in: "a/b", wantErr: true},
		{name: "backslash", in: `a\b`, wantErr: true},
		{name: "only an extension", in: ".txt", wantErr: true},
		{name: "leading space", in: " ABC", wantErr: true},
		{name: "character cut by the truncation", in: "ABCDEFGä", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkNewName(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDirEntry_MarshalBinary(t *testing.T) {
	e := NewDirEntry("HELLO.TXT", AttrArchive, 0x00012345)
	e.FileSize = 0x0A0B0C0D

	raw, err := e.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, raw, DirEntrySize)

	assert.Equal(t, []byte("HELLO   TXT"), raw[0:11])
	assert.Equal(t, AttrArchive, raw[11])
	assert.Equal(t, []byte{0x01, 0x00}, raw[20:22], "high word of the first cluster")
	assert.Equal(t, []byte{0x45, 0x23}, raw[26:28], "low word of the first cluster")
	assert.Equal(t, []byte{0x0D, 0x0C, 0x0B, 0x0A}, raw[28:32])

	decoded, err := DecodeDirEntry(raw)
	require.NoError(t, err)
	assert.Equal(t, e, decoded)
	assert.Equal(t, uint32(0x00012345), decoded.FirstCluster())
}

func TestDecodeDirEntry_short(t *testing.T) {
	_, err := DecodeDirEntry(make([]byte, DirEntrySize-1))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDirEntry_flags(t *testing.T) {
	tests := []struct {
		name  string
		entry DirEntry
		isDir bool
		isDot bool
	}{
		{name: "dot", entry: NewDirEntry(".", AttrDirectory, 2), isDir: true, isDot: true},
		{name: "dot dot", entry: NewDirEntry("..", AttrDirectory, 2), isDir: true, isDot: true},
		{name: "directory", entry: NewDirEntry("DOCS", AttrDirectory, 3), isDir: true},
		{name: "file", entry: NewDirEntry("A.TXT", AttrArchive, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isDir, tt.entry.IsDir())
			assert.Equal(t, tt.isDot, tt.entry.IsDotEntry())
		})
	}
}
