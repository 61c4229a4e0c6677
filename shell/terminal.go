// Package shell implements a small line based terminal on top of a minifat
// Volume. Every command mounts the volume again, so the terminal only keeps
// the cluster of the current directory between two commands.
package shell

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/aligator/minifat"
	"github.com/aligator/minifat/checkpoint"
	"github.com/dustin/go-humanize"
)

// Prompt is printed in front of every input line.
const Prompt = "> "

// maxLineLength is the size of the input buffer, further characters are dropped.
const maxLineLength = 512

// clearLines is the number of empty lines printed by clear.
const clearLines = 50

const helpText = `Commands:
  ls, tree        show the tree below the current directory
  cd <dir>        change the current directory
  mkdir <dir>     create a directory
  touch <file>    create an empty file
  rm <name>       remove a file or an empty directory
  info            show the volume geometry and usage
  clear           clear the screen
  bk fs           toggle the filesystem debug output
  help            show this help
`

// Option configures a Terminal.
type Option func(t *Terminal)

// WithDebugLevel lets "bk fs" switch level between slog.LevelInfo and slog.LevelDebug.
func WithDebugLevel(level *slog.LevelVar) Option {
	return func(t *Terminal) {
		t.debug = level
	}
}

// Terminal executes shell commands against a Volume.
type Terminal struct {
	vol   *minifat.Volume
	debug *slog.LevelVar

	cwd    uint32
	buffer []byte
}

// New creates a Terminal starting in the root directory of vol.
func New(vol *minifat.Volume, opts ...Option) (*Terminal, error) {
	t := &Terminal{
		vol:    vol,
		buffer: make([]byte, 0, maxLineLength),
	}

	for _, opt := range opts {
		opt(t)
	}

	err := vol.Session(func(fs *minifat.FileSystem) error {
		t.cwd = fs.RootDirCluster()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

// Cwd returns the cluster of the current directory.
func (t *Terminal) Cwd() uint32 {
	return t.cwd
}

// PushChar appends c to the input line and returns the echo to print.
func (t *Terminal) PushChar(c byte) string {
	if len(t.buffer) < maxLineLength {
		t.buffer = append(t.buffer, c)
	}
	return string(rune(c))
}

// PopChar removes the last character of the input line.
func (t *Terminal) PopChar() {
	if len(t.buffer) > 0 {
		t.buffer = t.buffer[:len(t.buffer)-1]
	}
}

// ExecuteCommand runs the buffered input line and clears it.
// The output starts on a new line and ends with the next prompt.
func (t *Terminal) ExecuteCommand() string {
	var out strings.Builder
	out.WriteString("\n")

	if utf8.Valid(t.buffer) {
		out.WriteString(t.Execute(string(t.buffer)))
	} else {
		out.WriteString("Invalid UTF-8 input\n")
	}

	out.WriteString(Prompt)
	t.buffer = t.buffer[:0]
	return out.String()
}

// Execute runs a single command line and returns its output.
func (t *Terminal) Execute(line string) string {
	trimmed := strings.TrimSpace(line)
	parts := strings.Fields(trimmed)
	if len(parts) == 0 {
		return ""
	}

	command := parts[0]
	arg := ""
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch command {
	case "ls", "tree":
		return t.tree()
	case "cd":
		return t.cd(arg)
	case "mkdir":
		return t.create("mkdir", arg, (*minifat.FileSystem).CreateDir)
	case "touch":
		return t.create("touch", arg, (*minifat.FileSystem).CreateFile)
	case "rm":
		return t.rm(arg)
	case "info":
		return t.info()
	case "clear":
		return strings.Repeat("\n", clearLines)
	case "help":
		return helpText
	case "bk":
		if arg == "fs" {
			return t.toggleDebug()
		}
	}

	return fmt.Sprintf("Unknown command: %s\n", trimmed)
}

// session runs fn in a session of the volume and formats a failure.
func (t *Terminal) session(command string, fn func(fs *minifat.FileSystem) (string, error)) string {
	var out string
	err := t.vol.Session(func(fs *minifat.FileSystem) error {
		var err error
		out, err = fn(fs)
		return err
	})
	if err != nil {
		return fmt.Sprintf("%s: %s\n", command, checkpoint.Message(err))
	}
	return out
}

func (t *Terminal) tree() string {
	return t.session("ls", func(fs *minifat.FileSystem) (string, error) {
		return fs.Tree(t.cwd)
	})
}

func (t *Terminal) cd(name string) string {
	if name == "" {
		return "Usage: cd <dirname>\n"
	}

	return t.session("cd", func(fs *minifat.FileSystem) (string, error) {
		if name == "/" {
			t.cwd = fs.RootDirCluster()
			return fmt.Sprintf("Changed directory to %s\n", name), nil
		}

		normalized, err := minifat.NormalizeName(name)
		if err != nil {
			return fmt.Sprintf("Directory '%s' not found\n", name), nil
		}

		cluster, err := fs.FindDirIn(t.cwd, normalized)
		if err != nil {
			return fmt.Sprintf("Directory '%s' not found\n", name), nil
		}

		t.cwd = cluster
		return fmt.Sprintf("Changed directory to %s\n", name), nil
	})
}

func (t *Terminal) create(command, name string, create func(fs *minifat.FileSystem, parent uint32, name string) (uint32, error)) string {
	if name == "" {
		return fmt.Sprintf("Usage: %s <name>\n", command)
	}

	return t.session(command, func(fs *minifat.FileSystem) (string, error) {
		cluster, err := create(fs, t.cwd, name)
		if err != nil {
			return "", err
		}

		normalized, err := minifat.NormalizeName(name)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Created %s at cluster %d\n", normalized, cluster), nil
	})
}

func (t *Terminal) rm(name string) string {
	if name == "" {
		return "Usage: rm <name>\n"
	}

	return t.session("rm", func(fs *minifat.FileSystem) (string, error) {
		normalized, err := minifat.NormalizeName(name)
		if err != nil {
			return "", err
		}

		if err := fs.Remove(t.cwd, normalized); err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed %s\n", normalized), nil
	})
}

func (t *Terminal) info() string {
	return t.session("info", func(fs *minifat.FileSystem) (string, error) {
		stats, err := fs.Stats()
		if err != nil {
			return "", err
		}

		mirrors := "identical"
		if err := fs.VerifyMirrors(); err != nil {
			mirrors = checkpoint.Message(err)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Label: %s\n", fs.Label())
		fmt.Fprintf(&b, "Cluster size: %s\n", humanize.IBytes(uint64(stats.ClusterSize)))
		fmt.Fprintf(&b, "Clusters: %d used, %d free, %d total\n", stats.UsedClusters, stats.FreeClusters(), stats.TotalClusters)
		fmt.Fprintf(&b, "Space: %s free of %s\n", humanize.IBytes(stats.FreeBytes()), humanize.IBytes(stats.TotalBytes()))
		fmt.Fprintf(&b, "FAT copies: %d (%s)\n", fs.Descriptor().BPB.NumFATs, mirrors)
		fmt.Fprintf(&b, "Root cluster: %d\n", fs.RootDirCluster())
		return b.String(), nil
	})
}

func (t *Terminal) toggleDebug() string {
	if t.debug == nil {
		return "Debug output is not available\n"
	}

	if t.debug.Level() <= slog.LevelDebug {
		t.debug.Set(slog.LevelInfo)
		return "Filesystem debug output disabled\n"
	}

	t.debug.Set(slog.LevelDebug)
	return "Filesystem debug output enabled\n"
}
