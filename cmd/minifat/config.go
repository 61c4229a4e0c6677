package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

// GodotenvProvider reads env files from an afero.Fs.
type GodotenvProvider struct {
	afs afero.Fs
}

// Read merges all files, later files win.
func (p *GodotenvProvider) Read(filenames ...string) (map[string]string, error) {
	result := map[string]string{}
	for _, filename := range filenames {
		file, err := p.afs.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("(config-godotenv) %w", err)
		}

		data, err := godotenv.Parse(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("(config-godotenv) %s: %w", filename, err)
		}

		for key, value := range data {
			result[key] = value
		}
	}
	return result, nil
}

type envFlag interface {
	GetEnvVars() []string
}

// applyConfig sets every flag of flags which was neither given on the command
// line nor by the environment to the value of its env var in config.
func applyConfig(c *cli.Context, config map[string]string, flags []cli.Flag) error {
	for _, flag := range flags {
		withEnv, ok := flag.(envFlag)
		if !ok {
			continue
		}

		name := flag.Names()[0]
		if c.IsSet(name) {
			continue
		}

		for _, env := range withEnv.GetEnvVars() {
			value, ok := config[env]
			if !ok {
				continue
			}
			if err := c.Set(name, value); err != nil {
				return fmt.Errorf("invalid value %q for %s in the config: %w", value, env, err)
			}
			break
		}
	}
	return nil
}
