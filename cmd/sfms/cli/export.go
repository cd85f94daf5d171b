package cli

import (
	"github.com/spf13/cobra"

	"github.com/konorlevich/sfms/internal/container"
	"github.com/konorlevich/sfms/internal/export"
)

func newExportCommand(a *app) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "export <dir> <host-dir>",
		Short: "Copy every file under a directory to the host filesystem",
		Args:  cobra.ExactArgs(2),
		RunE: a.withContainer(func(cmd *cobra.Command, args []string, c *container.Container) error {
			e, err := export.NewExporter(args[1], a.log.WithField("command", cmd.Name()))
			if err != nil {
				return err
			}
			n, err := e.Export(cmd.Context(), c, args[0], concurrency)
			if err != nil {
				return err
			}
			a.log.WithField("dir", args[0]).WithField("files", n).Info("exported")
			return nil
		}),
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "files written at once")

	return cmd
}
