package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up next to the source file when -config is not
// given.
const ConfigFileName = "hsuc.yaml"

// Config holds build settings shared by the build, run and repl commands.
type Config struct {
	Syntax    string   `yaml:"syntax"`
	Output    string   `yaml:"output"`
	CC        string   `yaml:"cc"`
	NASM      string   `yaml:"nasm"`
	CFlags    []string `yaml:"cflags"`
	KeepTemps bool     `yaml:"keep_temps"`
}

func DefaultConfig() Config {
	return Config{
		Syntax: string(SyntaxGAS),
		CC:     "cc",
		NASM:   "nasm",
	}
}

// ParseConfig decodes a YAML build file over the defaults. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if _, err := ParseSyntax(cfg.Syntax); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads path. An empty path means: use hsuc.yaml from dir if it
// exists, the defaults otherwise.
func LoadConfig(path, dir string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, ConfigFileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) CodegenOptions() (CodegenOptions, error) {
	syntax, err := ParseSyntax(c.Syntax)
	if err != nil {
		return CodegenOptions{}, err
	}
	return CodegenOptions{Syntax: syntax}, nil
}
