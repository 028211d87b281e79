// Package cliconfig layers kiosk configuration the way ottrec-website layers
// its own: environment variables with a fixed prefix set pflag-registered
// flags before the command line is parsed, so an explicit command-line flag
// overrides the environment; an optional TOML file tier sits underneath
// both (a kiosk, unlike a stateless web server, has an on-site config file a
// technician edits by hand).
package cliconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
)

// FlagSet is an extension point over pflag.FlagSet, mirroring the teacher's
// internal/pflagx.FlagSet.
type FlagSet pflag.FlagSet

func Ext(fs *pflag.FlagSet) *FlagSet {
	return (*FlagSet)(fs)
}

func (fs *FlagSet) FlagSet() *pflag.FlagSet {
	return (*pflag.FlagSet)(fs)
}

// LevelP registers a log-level flag backed by a slog.LevelVar.
func LevelP(name, shorthand string, value slog.Level, usage string) *slog.LevelVar {
	return Ext(pflag.CommandLine).LevelP(name, shorthand, value, usage)
}

func (fs *FlagSet) LevelP(name, shorthand string, value slog.Level, usage string) *slog.LevelVar {
	level := new(slog.LevelVar)
	def := new(slog.LevelVar)
	def.Set(value)
	pflag.TextVarP(level, name, shorthand, def, usage)
	return level
}

// ParseEnv applies environment variables with the given prefix onto
// already-registered flags, the same transform as the teacher's
// pflagx.ParseEnv: strip the prefix, lowercase, and turn '_' into '-'. A flag
// set this way is marked Changed, as if it had been given on the command line.
func ParseEnv(prefix string) {
	Ext(pflag.CommandLine).ParseEnv(prefix)
}

func (fs *FlagSet) ParseEnv(prefix string) {
	for _, env := range os.Environ() {
		k, v, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		s, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		n := strings.Map(func(r rune) rune {
			if r == '_' {
				return '-'
			}
			return unicode.ToLower(r)
		}, s)
		f := fs.FlagSet().Lookup(n)
		if f == nil {
			fmt.Fprintf(fs.FlagSet().Output(), "env %s: unknown flag --%s\n", k, n)
			continue
		}
		if err := fs.FlagSet().Set(n, v); err != nil {
			fmt.Fprintf(fs.FlagSet().Output(), "env %s: flag --%s: invalid argument: %v\n", k, n, err)
			os.Exit(2)
		}
	}
}

// LoadFile decodes a TOML config file into dst. A missing path is not an
// error (the kiosk runs fine on defaults + flags + env alone).
func LoadFile(path string, dst any) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat config file %q: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, dst); err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}
	return nil
}
