package cli

import (
	"fmt"
	"io"
	"path"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func newLsCommand(sess *session) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory (defaults to the catalog root)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := sess.shim.Root()
			if len(args) == 1 {
				target = args[0]
			}
			return sess.list(cmd.OutOrStdout(), target, long)
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show mode, owner, size and inode")
	return cmd
}

type listing struct {
	name string
	st   unix.Stat_t
	dir  bool
}

func (s *session) list(w io.Writer, target string, long bool) error {
	var st unix.Stat_t
	if err := s.shim.Stat(target, &st); err != nil {
		return fmt.Errorf("%s: %w", target, err)
	}
	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		printEntry(w, listing{name: target, st: st}, long)
		return nil
	}

	d, err := s.shim.Opendir(target)
	if err != nil {
		return fmt.Errorf("%s: %w", target, err)
	}
	defer s.shim.Closedir(d)

	var entries []listing
	for {
		e, err := s.shim.Readdir(d)
		if err != nil {
			return fmt.Errorf("%s: %w", target, err)
		}
		if e == nil {
			break
		}
		if e.Name == "." || e.Name == ".." {
			continue
		}
		l := listing{name: e.Name, dir: e.Type == unix.DT_DIR}
		if long {
			if err := s.shim.Lstat(path.Join(target, e.Name), &l.st); err != nil {
				return fmt.Errorf("%s: %w", e.Name, err)
			}
		}
		entries = append(entries, l)
	}

	for _, l := range entries {
		printEntry(w, l, long)
	}
	return nil
}

func printEntry(w io.Writer, l listing, long bool) {
	name := l.name
	if l.dir || l.st.Mode&unix.S_IFMT == unix.S_IFDIR {
		name = dirStyle.Render(name)
	}
	if !long {
		fmt.Fprintln(w, name)
		return
	}
	fmt.Fprintf(w, "%s %3d %5d %5d %9s %s %s\n",
		fileMode(uint32(l.st.Mode)), uint64(l.st.Nlink), l.st.Uid, l.st.Gid,
		units.HumanSize(float64(l.st.Size)),
		dimStyle.Render(fmt.Sprintf("%8d", uint64(l.st.Ino))), name)
}
