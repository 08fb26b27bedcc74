// Package config loads resfs settings from a YAML file and the
// environment. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"

	"gopkg.in/yaml.v3"

	"resfs/internal/logging"
	"resfs/internal/state"
)

var (
	logger = logging.GetLogger().WithPrefix("config")
)

// DefaultRoot is where the catalog appears when nothing else is configured.
const DefaultRoot = "/resfs"

// MinStreamBase is the lowest accepted stream_base. Real streams are
// numbered below it.
const MinStreamBase = 1 << 16

// Environment overrides.
const (
	EnvRoot     = "RESFS_ROOT"
	EnvLogLevel = "LOG_LEVEL"
	EnvUID      = "PUID"
	EnvGID      = "PGID"
)

var (
	// ErrInvalid wraps every validation failure
	ErrInvalid = errors.New("invalid configuration")
)

// Config is the on-disk configuration.
type Config struct {
	Root     string  `yaml:"root"`
	LogLevel string  `yaml:"log_level"`
	Handles  Handles `yaml:"handles"`
	Owner    Owner   `yaml:"owner"`
	Catalog  Catalog `yaml:"catalog"`
	Mount    Mount   `yaml:"mount"`
}

// Handles sets where virtual handle and inode numbering starts.
type Handles struct {
	DescriptorBase int    `yaml:"descriptor_base"`
	StreamBase     uint64 `yaml:"stream_base"`
	InodeBase      uint64 `yaml:"inode_base"`
}

// Owner overrides the uid and gid reported for virtual entries. Nil means
// the process's own.
type Owner struct {
	UID *uint32 `yaml:"uid"`
	GID *uint32 `yaml:"gid"`
}

// Catalog filters which payload files are embedded into the catalog.
type Catalog struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Mount configures the FUSE presentation.
type Mount struct {
	Point      string `yaml:"point"`
	AllowOther bool   `yaml:"allow_other"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Root:     DefaultRoot,
		LogLevel: "INFO",
		Handles: Handles{
			DescriptorBase: state.DefaultDescriptorBase,
			StreamBase:     state.DefaultStreamBase,
			InodeBase:      state.DefaultInodeBase,
		},
	}
}

// Load reads file over the defaults. An empty name yields the defaults;
// a missing or malformed file is an error.
func Load(file string) (Config, error) {
	cfg := Default()
	if file == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", file, err)
	}
	logger.Debug("Loaded config: %s", file)
	return cfg, nil
}

// ApplyEnv overrides cfg from the environment. lookup is os.LookupEnv in
// production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvRoot); ok && v != "" {
		c.Root = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	var err error
	if c.Owner.UID, err = envID(lookup, EnvUID, c.Owner.UID); err != nil {
		return err
	}
	if c.Owner.GID, err = envID(lookup, EnvGID, c.Owner.GID); err != nil {
		return err
	}
	return nil
}

func envID(lookup func(string) (string, bool), key string, cur *uint32) (*uint32, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return cur, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return cur, fmt.Errorf("%w: %s=%q is not an id", ErrInvalid, key, v)
	}
	id := uint32(n)
	return &id, nil
}

// Validate checks that the configuration can arm a shim.
func (c *Config) Validate() error {
	if !path.IsAbs(c.Root) {
		return fmt.Errorf("%w: root %q must be absolute", ErrInvalid, c.Root)
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.LogLevel)
	}
	h := c.Handles
	if h.DescriptorBase <= 2 {
		return fmt.Errorf("%w: descriptor_base %d collides with standard descriptors", ErrInvalid, h.DescriptorBase)
	}
	if h.StreamBase <= uint64(h.DescriptorBase) {
		return fmt.Errorf("%w: stream_base %d must be above descriptor_base %d", ErrInvalid, h.StreamBase, h.DescriptorBase)
	}
	if h.StreamBase < MinStreamBase {
		return fmt.Errorf("%w: stream_base %d leaves fewer than %d real streams", ErrInvalid, h.StreamBase, MinStreamBase-1)
	}
	if h.InodeBase == 0 {
		return fmt.Errorf("%w: inode_base must be positive", ErrInvalid)
	}
	if c.Mount.Point != "" && !path.IsAbs(c.Mount.Point) {
		return fmt.Errorf("%w: mount point %q must be absolute", ErrInvalid, c.Mount.Point)
	}
	return nil
}

// TableOptions converts the handle and owner settings for state.NewTable.
func (c *Config) TableOptions() state.Options {
	opts := state.DefaultOptions()
	opts.DescriptorBase = c.Handles.DescriptorBase
	opts.StreamBase = c.Handles.StreamBase
	opts.InodeBase = c.Handles.InodeBase
	if c.Owner.UID != nil {
		opts.Uid = *c.Owner.UID
	}
	if c.Owner.GID != nil {
		opts.Gid = *c.Owner.GID
	}
	return opts
}
