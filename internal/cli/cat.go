package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func newCatCommand(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "cat path...",
		Short: "Print files through the intercepted read path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				if err := sess.catFile(cmd.OutOrStdout(), p); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (s *session) catFile(w io.Writer, p string) error {
	fd, err := s.shim.Open(p, unix.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	defer s.shim.Close(fd)

	buf := make([]byte, 32*1024)
	for {
		n, err := s.shim.Read(fd, buf)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		if n == 0 {
			return nil
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
	}
}
