package cli

import (
	"fmt"
	"io"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func newStatCommand(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "stat path...",
		Short: "Show the attributes the shim reports for each path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				if err := sess.stat(cmd.OutOrStdout(), p); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (s *session) stat(w io.Writer, p string) error {
	var st unix.Stat_t
	if err := s.shim.Stat(p, &st); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	mode := uint32(st.Mode)
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render("  File:"), p)
	fmt.Fprintf(w, "  Size: %-10d (%s)  Blocks: %-6d IO Block: %-6d %s\n",
		st.Size, units.BytesSize(float64(st.Size)), st.Blocks, st.Blksize, fileType(mode))
	fmt.Fprintf(w, "Device: %xh  Inode: %-10d Links: %d\n",
		uint64(st.Dev), uint64(st.Ino), uint64(st.Nlink))
	fmt.Fprintf(w, "Access: (%04o/%s)  Uid: %d  Gid: %d\n",
		mode&0o7777, fileMode(mode), st.Uid, st.Gid)
	return nil
}
