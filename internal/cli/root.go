// Package cli defines the resfs command-line interface using cobra.
//
// Every subcommand reaches the catalog through an armed shim, so the CLI
// doubles as a consumer of the intercepted entry points.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"resfs/internal/catalog"
	"resfs/internal/config"
	"resfs/internal/logging"
	"resfs/internal/shim"
)

var (
	logger = logging.GetLogger().WithPrefix("cli")
)

// Version is set via ldflags at build time.
var Version = "dev"

// ErrNoPayload is returned when neither an embedded payload nor --source
// provides content.
var ErrNoPayload = errors.New("no payload: build with an embedded payload or pass --source")

type options struct {
	configFile string
	root       string
	source     string
	chdir      string
	verbose    bool
}

// session is the state shared by a command invocation.
type session struct {
	cfg  config.Config
	cat  *catalog.Catalog
	shim *shim.Shim
}

func bindPersistentFlags(pf *pflag.FlagSet, o *options) {
	pf.StringVar(&o.configFile, "config", "", "YAML config file")
	pf.StringVar(&o.root, "root", "", "Absolute path the catalog appears at (default "+config.DefaultRoot+")")
	pf.StringVar(&o.source, "source", "", "Load the catalog from this directory instead of the embedded payload")
	pf.StringVarP(&o.chdir, "chdir", "C", "", "Change to directory before running (may be inside the catalog)")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "Enable debug logging")
}

// NewRootCommand builds the resfs command tree serving payload.
func NewRootCommand(payload fs.FS) *cobra.Command {
	opts := &options{}
	sess := &session{}

	cmd := &cobra.Command{
		Use:   "resfs",
		Short: "Serve an embedded resource tree as a read-only filesystem",
		Long: `resfs presents a build-time resource tree at a fixed absolute path.
Reads through the intercepted file API are served from memory; anything
outside the tree goes to the real filesystem untouched.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return sess.open(opts, payload)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return sess.shim.Teardown()
		},
	}
	cmd.SetVersionTemplate("resfs v{{.Version}}\n")
	bindPersistentFlags(cmd.PersistentFlags(), opts)

	cmd.AddCommand(newLsCommand(sess))
	cmd.AddCommand(newCatCommand(sess))
	cmd.AddCommand(newStatCommand(sess))
	cmd.AddCommand(newCatalogCommand(sess))
	cmd.AddCommand(newMountCommand(sess))
	return cmd
}

// open loads configuration, builds the catalog and arms a shim.
func (s *session) open(o *options, payload fs.FS) error {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if o.root != "" {
		cfg.Root = o.root
	}
	if o.verbose {
		cfg.LogLevel = logging.LevelDebug.String()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.GetLogger().SetLevel(level)

	fsys := payload
	if o.source != "" {
		logger.Debug("Loading catalog from %s", o.source)
		fsys = os.DirFS(o.source)
	}
	if fsys == nil {
		return ErrNoPayload
	}
	cat, err := catalog.FromFS(fsys, catalog.LoadOptions{
		Include: cfg.Catalog.Include,
		Exclude: cfg.Catalog.Exclude,
	})
	if err != nil {
		return fmt.Errorf("failed to build catalog: %w", err)
	}

	sh := shim.New(shim.WithTableOptions(cfg.TableOptions()))
	if err := sh.Arm(cat, cfg.Root); err != nil {
		return fmt.Errorf("failed to arm: %w", err)
	}
	if o.chdir != "" {
		if err := sh.Chdir(o.chdir); err != nil {
			return fmt.Errorf("chdir %s: %w", o.chdir, err)
		}
	}

	s.cfg, s.cat, s.shim = cfg, cat, sh
	return nil
}

// Execute runs the root command and exits on error.
func Execute(payload fs.FS) {
	if err := NewRootCommand(payload).Execute(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}
