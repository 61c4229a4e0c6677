package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aligator/minifat"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the app with args on afs and returns stdout.
func run(t *testing.T, afs afero.Fs, stdin string, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := newApp(afs, strings.NewReader(stdin), &stdout, &stderr)
	err := app.Run(append([]string{"minifat"}, args...))
	return stdout.String(), err
}

func mustRun(t *testing.T, afs afero.Fs, args ...string) string {
	t.Helper()
	out, err := run(t, afs, "", args...)
	require.NoError(t, err, "minifat %v", args)
	return out
}

func TestFormat(t *testing.T) {
	afs := afero.NewMemMapFs()

	out := mustRun(t, afs, "--image", "/fat.img", "format", "--label", "TESTVOL")
	assert.Equal(t, "Formatted /fat.img: 21 clusters of 4.0 KiB, 80 KiB free\n", out)

	stat, err := afs.Stat("/fat.img")
	require.NoError(t, err)
	assert.Equal(t, int64(400*minifat.SectorSize), stat.Size())

	disk, err := minifat.OpenImage(afs, "/fat.img")
	require.NoError(t, err)
	defer disk.Close()

	fs, err := minifat.Mount(disk)
	require.NoError(t, err)
	assert.Equal(t, "TESTVOL", fs.Label())

	count, err := fs.CountOccupied()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestFormat_tooSmall(t *testing.T) {
	_, err := run(t, afero.NewMemMapFs(), "", "--image", "/fat.img", "format", "--sectors", "100")
	assert.ErrorIs(t, err, minifat.ErrVolumeTooSmall)
}

func TestFormat_invalidOptions(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "sectors per cluster no power of two",
			args:    []string{"--sectors-per-cluster", "3"},
			wantErr: minifat.ErrMalformedVolume,
		},
		{
			name:    "no cluster heap",
			args:    []string{"--sectors", "232"},
			wantErr: minifat.ErrVolumeTooSmall,
		},
		{
			name: "too many FATs",
			args: []string{"--fats", "258"},
		},
		{
			name: "too many reserved sectors",
			args: []string{"--reserved", "65537"},
		},
		{
			name: "sectors per cluster overflow",
			args: []string{"--sectors-per-cluster", "264"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			afs := afero.NewMemMapFs()
			mustRun(t, afs, "--image", "/fat.img", "format", "--label", "KEEP")
			mustRun(t, afs, "--image", "/fat.img", "mkdir", "/docs")

			_, err := run(t, afs, "", append([]string{"--image", "/fat.img", "format"}, tt.args...)...)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			// The existing image is left untouched.
			assert.Equal(t, "DOCS/\n", mustRun(t, afs, "--image", "/fat.img", "ls"))
		})
	}
}

func TestFormat_overwrite(t *testing.T) {
	afs := afero.NewMemMapFs()
	mustRun(t, afs, "--image", "/fat.img", "format", "--sectors", "800")
	mustRun(t, afs, "--image", "/fat.img", "mkdir", "/docs")

	mustRun(t, afs, "--image", "/fat.img", "format")
	assert.Equal(t, "", mustRun(t, afs, "--image", "/fat.img", "ls"))

	stat, err := afs.Stat("/fat.img")
	require.NoError(t, err)
	assert.Equal(t, int64(400*minifat.SectorSize), stat.Size())
}

func TestCommands(t *testing.T) {
	afs := afero.NewMemMapFs()
	mustRun(t, afs, "--image", "/fat.img", "format")

	mustRun(t, afs, "--image", "/fat.img", "mkdir", "-p", "/docs/sub")
	mustRun(t, afs, "--image", "/fat.img", "touch", "/docs/readme.txt")
	mustRun(t, afs, "--image", "/fat.img", "touch", "hello.txt")

	assert.Equal(t, "DOCS/\nHELLO.TXT\n", mustRun(t, afs, "--image", "/fat.img", "ls"))
	assert.Equal(t, "README.TXT\nSUB/\n", mustRun(t, afs, "--image", "/fat.img", "ls", "/docs"))
	assert.Equal(t,
		".\n..\nDOCS/\n| .\n| ..\n| SUB/\n| | .\n| | ..\n| README.TXT\nHELLO.TXT\n",
		mustRun(t, afs, "--image", "/fat.img", "tree"))

	_, err := run(t, afs, "", "--image", "/fat.img", "rm", "/docs")
	assert.ErrorIs(t, err, minifat.ErrDirectoryNotEmpty)

	mustRun(t, afs, "--image", "/fat.img", "rm", "-r", "/docs")
	assert.Equal(t, "HELLO.TXT\n", mustRun(t, afs, "--image", "/fat.img", "ls"))

	info := mustRun(t, afs, "--image", "/fat.img", "info")
	assert.Contains(t, info, "OEM: MSWIN4.1")
	assert.Contains(t, info, "Clusters: 2 used, 19 free, 21 total")
}

func TestCommands_errors(t *testing.T) {
	afs := afero.NewMemMapFs()

	_, err := run(t, afs, "", "ls")
	assert.ErrorIs(t, err, errNoImage)

	_, err = run(t, afs, "", "--image", "/missing.img", "ls")
	assert.Error(t, err)

	mustRun(t, afs, "--image", "/fat.img", "format")

	_, err = run(t, afs, "", "--image", "/fat.img", "mkdir")
	assert.Error(t, err)

	_, err = run(t, afs, "", "--image", "/fat.img", "mkdir", "/a/b")
	assert.ErrorIs(t, err, minifat.ErrNotFound)
}

func TestShell(t *testing.T) {
	afs := afero.NewMemMapFs()
	mustRun(t, afs, "--image", "/fat.img", "format")

	out, err := run(t, afs, "mkdir docs\ncd docs\ntouch a.txt\nls\nexit\nls\n", "--image", "/fat.img", "shell")
	require.NoError(t, err)
	assert.Equal(t, "> Created DOCS at cluster 3\n> Changed directory to docs\n> Created A.TXT at cluster 4\n> .\n..\nA.TXT\n> \n", out)

	assert.Equal(t, "DOCS/\n", mustRun(t, afs, "--image", "/fat.img", "ls"))
}

func TestConfig(t *testing.T) {
	afs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(afs, "/minifat.env", []byte("MINIFAT_IMAGE=/cfg.img\nMINIFAT_SECTORS=800\nMINIFAT_LABEL=FROMCFG\n"), 0o644))

	mustRun(t, afs, "--config", "/minifat.env", "format")

	stat, err := afs.Stat("/cfg.img")
	require.NoError(t, err)
	assert.Equal(t, int64(800*minifat.SectorSize), stat.Size())

	// Flags win over the config.
	mustRun(t, afs, "--config", "/minifat.env", "--image", "/flag.img", "format", "--sectors", "400")
	stat, err = afs.Stat("/flag.img")
	require.NoError(t, err)
	assert.Equal(t, int64(400*minifat.SectorSize), stat.Size())

	_, err = run(t, afs, "", "--config", "/missing.env", "ls")
	assert.Error(t, err)
}

func TestGodotenvProvider(t *testing.T) {
	afs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(afs, "/a.env", []byte("A=1\nB=2\n"), 0o644))
	require.NoError(t, afero.WriteFile(afs, "/b.env", []byte("B=3\n"), 0o644))

	provider := &GodotenvProvider{afs: afs}
	config, err := provider.Read("/a.env", "/b.env")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "3"}, config)
}
