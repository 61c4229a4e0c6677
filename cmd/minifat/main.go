package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/aligator/minifat"
	"github.com/aligator/minifat/checkpoint"
	"github.com/aligator/minifat/shell"
	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

var Version = "dev"

var errNoImage = errors.New("no image given, use --image or MINIFAT_IMAGE")

// app holds everything the commands share.
type app struct {
	afs    afero.Fs
	level  *slog.LevelVar
	logger *slog.Logger
	config map[string]string
}

func newLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	)
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "image",
			Aliases: []string{"i"},
			Usage:   "path of the FAT32 image file",
			EnvVars: []string{"MINIFAT_IMAGE"},
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "env file with default settings",
			EnvVars: []string{"MINIFAT_CONFIG"},
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "log every filesystem operation",
			EnvVars: []string{"MINIFAT_DEBUG"},
		},
	}
}

func formatFlags() []cli.Flag {
	defaults := minifat.DefaultFormatOptions()
	return []cli.Flag{
		&cli.UintFlag{
			Name:    "sectors",
			Usage:   "size of the volume in sectors",
			Value:   uint(defaults.SizeInSectors),
			EnvVars: []string{"MINIFAT_SECTORS"},
		},
		&cli.UintFlag{
			Name:    "sectors-per-cluster",
			Usage:   "sectors per cluster, a power of two",
			Value:   uint(defaults.SectorsPerCluster),
			EnvVars: []string{"MINIFAT_SECTORS_PER_CLUSTER"},
		},
		&cli.UintFlag{
			Name:    "reserved",
			Usage:   "reserved sectors in front of the FATs",
			Value:   uint(defaults.ReservedSectors),
			EnvVars: []string{"MINIFAT_RESERVED"},
		},
		&cli.UintFlag{
			Name:    "fats",
			Usage:   "number of FAT copies",
			Value:   uint(defaults.FATCount),
			EnvVars: []string{"MINIFAT_FATS"},
		},
		&cli.UintFlag{
			Name:    "fat-size",
			Usage:   "sectors per FAT copy",
			Value:   uint(defaults.FATSize),
			EnvVars: []string{"MINIFAT_FAT_SIZE"},
		},
		&cli.StringFlag{
			Name:    "label",
			Usage:   "volume label, at most 11 characters",
			Value:   strings.TrimRight(string(defaults.VolumeLabel[:]), " "),
			EnvVars: []string{"MINIFAT_LABEL"},
		},
	}
}

func newApp(afs afero.Fs, stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	a := &app{
		afs:   afs,
		level: &slog.LevelVar{},
	}
	a.logger = newLogger(stderr, a.level)

	flags := globalFlags()
	fmtFlags := formatFlags()

	return &cli.App{
		Name:      "minifat",
		Usage:     "create and inspect small FAT32 images",
		Version:   Version,
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     flags,
		Before: func(c *cli.Context) error {
			if path := c.String("config"); path != "" {
				provider := &GodotenvProvider{afs: a.afs}
				config, err := provider.Read(path)
				if err != nil {
					return err
				}
				a.config = config
			}

			if err := applyConfig(c, a.config, flags); err != nil {
				return err
			}

			if c.Bool("debug") {
				a.level.Set(slog.LevelDebug)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "format",
				Usage: "create a new empty image, an existing one is overwritten",
				Flags: fmtFlags,
				Before: func(c *cli.Context) error {
					return applyConfig(c, a.config, fmtFlags)
				},
				Action: a.format,
			},
			{
				Name:   "info",
				Usage:  "show the boot sector and the usage of the volume",
				Action: a.info,
			},
			{
				Name:      "ls",
				Usage:     "list a directory",
				ArgsUsage: "[path]",
				Action:    a.ls,
			},
			{
				Name:   "tree",
				Usage:  "show the whole directory tree",
				Action: a.tree,
			},
			{
				Name:      "mkdir",
				Usage:     "create a directory",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "parents", Aliases: []string{"p"}, Usage: "create missing parents"},
				},
				Action: a.mkdir,
			},
			{
				Name:      "touch",
				Usage:     "create an empty file",
				ArgsUsage: "<path>",
				Action:    a.touch,
			},
			{
				Name:      "rm",
				Usage:     "remove a file or an empty directory",
				ArgsUsage: "<path>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Usage: "remove directories with their content"},
				},
				Action: a.rm,
			},
			{
				Name:   "shell",
				Usage:  "run an interactive shell on the image",
				Action: a.shell,
			},
		},
	}
}

func (a *app) imagePath(c *cli.Context) (string, error) {
	path := c.String("image")
	if path == "" {
		return "", errNoImage
	}
	return path, nil
}

// withVolume opens and locks the image for the duration of fn.
func (a *app) withVolume(c *cli.Context, fn func(vol *minifat.Volume) error) (err error) {
	path, err := a.imagePath(c)
	if err != nil {
		return err
	}

	disk, err := minifat.OpenImage(a.afs, path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := disk.Close(); err == nil {
			err = closeErr
		}
	}()

	unlock, err := lockImage(disk.File())
	if err != nil {
		return err
	}
	defer unlock()

	return fn(minifat.NewVolume(disk, minifat.WithLogger(a.logger)))
}

// uintFlag returns the value of the uint flag name if it is at most max.
func uintFlag(c *cli.Context, name string, max uint64) (uint64, error) {
	value := uint64(c.Uint(name))
	if value > max {
		return 0, fmt.Errorf("--%s must be at most %d, got %d", name, max, value)
	}
	return value, nil
}

func formatOptions(c *cli.Context) (minifat.FormatOptions, error) {
	opts := minifat.DefaultFormatOptions()

	flags := []struct {
		name string
		max  uint64
		set  func(v uint64)
	}{
		{"sectors", math.MaxUint32, func(v uint64) { opts.SizeInSectors = uint32(v) }},
		{"sectors-per-cluster", math.MaxUint8, func(v uint64) { opts.SectorsPerCluster = uint8(v) }},
		{"reserved", math.MaxUint16, func(v uint64) { opts.ReservedSectors = uint16(v) }},
		{"fats", math.MaxUint8, func(v uint64) { opts.FATCount = uint8(v) }},
		{"fat-size", math.MaxUint32, func(v uint64) { opts.FATSize = uint32(v) }},
	}
	for _, flag := range flags {
		value, err := uintFlag(c, flag.name, flag.max)
		if err != nil {
			return opts, err
		}
		flag.set(value)
	}
	opts.VolumeLabel = minifat.LabelBytes(c.String("label"))

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	if opts.DataClusters() == 0 {
		return opts, fmt.Errorf("%w: no sectors left for the cluster heap", minifat.ErrVolumeTooSmall)
	}
	return opts, nil
}

// format checks the options and locks the image before anything of an
// existing image is overwritten.
func (a *app) format(c *cli.Context) error {
	path, err := a.imagePath(c)
	if err != nil {
		return err
	}

	opts, err := formatOptions(c)
	if err != nil {
		return err
	}

	file, err := a.afs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	unlock, err := lockImage(file)
	if err != nil {
		return err
	}
	defer unlock()

	disk, err := minifat.NewImage(file, opts)
	if err != nil {
		return err
	}

	var stats minifat.Stats
	err = minifat.NewVolume(disk, minifat.WithLogger(a.logger)).Session(func(fs *minifat.FileSystem) error {
		if err := fs.Initialize(); err != nil {
			return err
		}
		stats, err = fs.Stats()
		return err
	})
	if err != nil {
		return err
	}

	if err := disk.Sync(); err != nil {
		return err
	}

	a.logger.Info("formatted image", "path", path, "sectors", opts.SizeInSectors)
	fmt.Fprintf(c.App.Writer, "Formatted %s: %d clusters of %s, %s free\n",
		path, stats.TotalClusters, humanize.IBytes(uint64(stats.ClusterSize)), humanize.IBytes(stats.FreeBytes()))
	return nil
}

func (a *app) info(c *cli.Context) error {
	return a.withVolume(c, func(vol *minifat.Volume) error {
		var desc minifat.VolumeDescriptor
		err := vol.Session(func(fs *minifat.FileSystem) error {
			desc = fs.Descriptor()
			return nil
		})
		if err != nil {
			return err
		}

		term, err := shell.New(vol)
		if err != nil {
			return err
		}

		fmt.Fprintln(c.App.Writer, desc.BPB)
		fmt.Fprintln(c.App.Writer, desc.EBR)
		fmt.Fprint(c.App.Writer, term.Execute("info"))
		return nil
	})
}

func (a *app) ls(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		dir = "/"
	}

	return a.withVolume(c, func(vol *minifat.Volume) error {
		infos, err := afero.ReadDir(minifat.NewFs(vol), dir)
		if err != nil {
			return err
		}

		for _, info := range infos {
			name := info.Name()
			if info.IsDir() {
				name += "/"
			}
			fmt.Fprintln(c.App.Writer, name)
		}
		return nil
	})
}

func (a *app) tree(c *cli.Context) error {
	return a.withVolume(c, func(vol *minifat.Volume) error {
		return vol.Session(func(fs *minifat.FileSystem) error {
			tree, err := fs.Tree(fs.RootDirCluster())
			fmt.Fprint(c.App.Writer, tree)
			return err
		})
	})
}

func requireArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s needs exactly one path", c.Command.Name)
	}
	return c.Args().First(), nil
}

func (a *app) mkdir(c *cli.Context) error {
	path, err := requireArg(c)
	if err != nil {
		return err
	}

	return a.withVolume(c, func(vol *minifat.Volume) error {
		fs := minifat.NewFs(vol)
		if c.Bool("parents") {
			return fs.MkdirAll(path, 0o755)
		}
		return fs.Mkdir(path, 0o755)
	})
}

func (a *app) touch(c *cli.Context) error {
	path, err := requireArg(c)
	if err != nil {
		return err
	}

	return a.withVolume(c, func(vol *minifat.Volume) error {
		file, err := minifat.NewFs(vol).Create(path)
		if err != nil {
			return err
		}
		return file.Close()
	})
}

func (a *app) rm(c *cli.Context) error {
	path, err := requireArg(c)
	if err != nil {
		return err
	}

	return a.withVolume(c, func(vol *minifat.Volume) error {
		fs := minifat.NewFs(vol)
		if c.Bool("recursive") {
			return fs.RemoveAll(path)
		}
		return fs.Remove(path)
	})
}

// shell reads commands line by line until "exit" or the end of the input.
func (a *app) shell(c *cli.Context) error {
	return a.withVolume(c, func(vol *minifat.Volume) error {
		term, err := shell.New(vol, shell.WithDebugLevel(a.level))
		if err != nil {
			return err
		}

		out := c.App.Writer
		scanner := bufio.NewScanner(c.App.Reader)
		fmt.Fprint(out, shell.Prompt)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "exit" || line == "quit" {
				break
			}

			fmt.Fprint(out, term.Execute(line))
			fmt.Fprint(out, shell.Prompt)
		}
		fmt.Fprintln(out)

		return scanner.Err()
	})
}

func main() {
	level := &slog.LevelVar{}
	logger := newLogger(os.Stderr, level)

	err := newApp(afero.NewOsFs(), os.Stdin, os.Stdout, os.Stderr).Run(os.Args)
	if err != nil {
		logger.Error("command failed", "error", checkpoint.Message(err))
		os.Exit(1)
	}
}
