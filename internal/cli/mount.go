package cli

import (
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	vfs "resfs/internal/fs"
)

func newMountCommand(sess *session) *cobra.Command {
	var allowOther bool
	cmd := &cobra.Command{
		Use:   "mount [dir]",
		Short: "Serve the catalog over FUSE until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			point := sess.cfg.Mount.Point
			if len(args) == 1 {
				point = args[0]
			}
			if point == "" {
				return errors.New("mount point required: pass a directory or set mount.point")
			}
			return sess.mount(filepath.Clean(point), allowOther || sess.cfg.Mount.AllowOther)
		},
	}
	cmd.Flags().BoolVar(&allowOther, "allow-other", false, "Let other users access the mount")
	return cmd
}

func (s *session) mount(point string, allowOther bool) error {
	fsys := vfs.NewResFS(s.shim.Table(), vfs.Options{AllowOther: allowOther})

	logger.Debug("Setting up signal handlers...")
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := fsys.Mount(point); err != nil {
		return err
	}
	logger.Info("Serving %d files at %s, press Ctrl+C to unmount", s.cat.Len(), point)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal %v, unmounting...", sig)
		if err := fsys.Unmount(point); err != nil {
			return err
		}
		return <-fsys.Served()
	case err := <-fsys.Served():
		logger.Info("Filesystem was unmounted externally")
		return err
	}
}
