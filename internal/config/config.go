// Package config parses the engine's pengo.toml configuration file:
// where table files live on disk, a B-tree degree, an external merge sort
// chunk size, and the logger's level. btree_degree and
// merge_sort_chunk_size are parsed and validated only: no caller applies
// them, so indexes use index.DefaultDegree and SELECT sorts with
// sortmerge.DefaultChunkSize whatever the file says. Kept the teacher's BurntSushi/toml decode-into-struct idiom,
// reshaped from its dialect-agnostic DDL schema onto this engine's own
// settings.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"

	"pengobase/internal/storage/index"
)

const defaultMergeSortChunkSize = 1000

// Config is the decoded shape of pengo.toml.
type Config struct {
	DataRoot       string `toml:"data_root"`
	BTreeDegree    int    `toml:"btree_degree"`
	MergeSortChunk int    `toml:"merge_sort_chunk_size"`
	LogLevel       string `toml:"log_level"`
}

// Default returns the configuration used when no pengo.toml is found.
func Default() Config {
	return Config{
		DataRoot:       "./pengodata",
		BTreeDegree:    index.DefaultDegree,
		MergeSortChunk: defaultMergeSortChunkSize,
		LogLevel:       "info",
	}
}

// Parser reads pengo.toml configuration files.
type Parser struct{}

// NewParser creates a new pengo.toml parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile opens the file at path and parses it as pengo.toml. A
// missing file is not an error: Default() is returned instead, so a
// fresh checkout runs with sane defaults before anyone writes a config.
func (p *Parser) ParseFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: open file %q: %w", path, err)
	}
	defer f.Close()

	return p.Parse(f)
}

// Parse reads TOML content from r, applying Default() for any field
// left unset.
func (p *Parser) Parse(r io.Reader) (Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode error: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DataRoot == "" {
		return fmt.Errorf("config: data_root must not be empty")
	}
	if c.BTreeDegree < 2 {
		return fmt.Errorf("config: btree_degree must be at least 2, got %d", c.BTreeDegree)
	}
	if c.MergeSortChunk < 1 {
		return fmt.Errorf("config: merge_sort_chunk_size must be positive, got %d", c.MergeSortChunk)
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("config: invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// ZapLevel parses LogLevel into a zapcore.Level, per validate's check.
func (c Config) ZapLevel() zapcore.Level {
	var lvl zapcore.Level
	_ = lvl.UnmarshalText([]byte(c.LogLevel))
	return lvl
}
