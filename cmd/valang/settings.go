package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/krew-solutions/ascetic-valang-go/valang/expression"
)

const defaultSettingsFile = "valang.toml"

type DateFormat struct {
	Pattern string `toml:"pattern" yaml:"pattern"`
	Layout  string `toml:"layout" yaml:"layout"`
}

// Settings are read from valang.toml, or the file given by --config.
// Command line flags take precedence.
type Settings struct {
	ShortCircuit bool         `toml:"short_circuit" yaml:"short_circuit"`
	Contexts     []string     `toml:"contexts" yaml:"contexts"`
	LogLevel     string       `toml:"log_level" yaml:"log_level"`
	DateFormats  []DateFormat `toml:"date_formats" yaml:"date_formats"`
}

func defaultSettings() Settings {
	return Settings{ShortCircuit: true, LogLevel: "warn"}
}

// loadSettings reads path. An empty path reads valang.toml from the working
// directory when it exists.
func loadSettings(path string) (Settings, error) {
	s := defaultSettings()
	if path == "" {
		if _, err := os.Stat(defaultSettingsFile); err != nil {
			return s, nil
		}
		path = defaultSettingsFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s, errors.Wrapf(err, "reading settings %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	default:
		_, err = toml.Decode(string(data), &s)
	}
	if err != nil {
		return s, errors.Wrapf(err, "parsing settings %s", path)
	}
	return s, nil
}

func (s Settings) DateParser() (*expression.DateParser, error) {
	dates := expression.NewDateParser()
	for _, f := range s.DateFormats {
		if err := dates.Register(f.Pattern, f.Layout); err != nil {
			return nil, err
		}
	}
	return dates, nil
}

func (s Settings) Logger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(s.LogLevel))
	if err != nil {
		return zerolog.Nop(), errors.Wrapf(err, "log level %q", s.LogLevel)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger(), nil
}
