package cli

import (
	"fmt"
	"io"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func newCatalogCommand(sess *session) *cobra.Command {
	var glob string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the embedded files and their sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sess.listCatalog(cmd.OutOrStdout(), glob)
		},
	}
	cmd.Flags().StringVarP(&glob, "glob", "g", "", "Only list files matching a doublestar pattern (e.g. **/*.json)")
	return cmd
}

func (s *session) listCatalog(w io.Writer, glob string) error {
	files := s.cat.Files()
	if glob != "" {
		var err error
		if files, err = s.cat.Match(glob); err != nil {
			return err
		}
	}

	var count int
	var total int64
	for _, p := range files {
		data, ok := s.cat.File(p)
		if !ok {
			continue // directory matched by the pattern
		}
		count++
		total += int64(len(data))
		fmt.Fprintf(w, "%9s  %s\n", units.HumanSize(float64(len(data))), p)
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d file(s), %s, at %s",
		count, units.HumanSize(float64(total)), s.shim.Root())))
	return nil
}
