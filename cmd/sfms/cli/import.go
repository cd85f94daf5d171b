package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/konorlevich/sfms/internal/container"
	"github.com/konorlevich/sfms/internal/sample"
)

func newImportCommand(a *app) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "import <sample.json>",
		Short: "Write every file of a JSON sample tree",
		Long: `Write every file of a JSON sample tree into the container.

The sample maps absolute paths to contents:

  {"files": {"/aa/bb/a.1": "abc", "/aa/cc/a.2": ""}}

Existing files are overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: a.withContainer(func(cmd *cobra.Command, args []string, c *container.Container) error {
			tree, err := sample.LoadFile(args[0])
			if err != nil {
				return err
			}
			if err := tree.Populate(cmd.Context(), c, concurrency); err != nil {
				return err
			}
			a.log.WithField("sample", args[0]).WithField("files", len(tree.Files)).Info("imported")
			return nil
		}),
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", sample.DefaultConcurrency, "files written at once")

	return cmd
}

func isNotFound(err error) bool {
	return errors.Is(err, container.ErrNotFound)
}
