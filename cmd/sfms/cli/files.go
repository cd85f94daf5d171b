package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/konorlevich/sfms/internal/container"
)

func newListCommand(a *app) *cobra.Command {
	var long, human bool

	cmd := &cobra.Command{
		Use:   "ls [dir]",
		Short: "List the files under a directory at any depth",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.withContainer(func(cmd *cobra.Command, args []string, c *container.Container) error {
			dir := "/"
			if len(args) == 1 {
				dir = args[0]
			}
			files, err := c.ListFiles(cmd.Context(), dir)
			if err != nil {
				return err
			}
			if long {
				printFileTable(cmd.OutOrStdout(), files, human)
				return nil
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f.FilePath)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&long, "long", "l", false, "show id, size, modification time and meta")
	cmd.Flags().BoolVarP(&human, "human-readable", "H", false, "print sizes like 1.0 KiB")

	return cmd
}

func newStatCommand(a *app) *cobra.Command {
	var format string
	var human bool

	cmd := &cobra.Command{
		Use:   "stat <path>",
		Short: "Show the record of a file",
		Args:  cobra.ExactArgs(1),
		RunE: a.withContainer(func(cmd *cobra.Command, args []string, c *container.Container) error {
			f, err := c.GetFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if f == nil {
				return fmt.Errorf("%w: %s", container.ErrNotFound, args[0])
			}
			return printFile(cmd.OutOrStdout(), f, format, human)
		}),
	}

	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format (table, json, yaml)")
	cmd.Flags().BoolVarP(&human, "human-readable", "H", false, "print sizes like 1.0 KiB")

	return cmd
}

func newTouchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "touch <path>...",
		Short: "Create empty files or update their modification time",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withContainer(func(cmd *cobra.Command, args []string, c *container.Container) error {
			for _, p := range args {
				if _, err := c.Touch(cmd.Context(), p); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func newWriteCommand(a *app) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "write <path>",
		Short: "Replace the content of a file with stdin or a local file",
		Args:  cobra.ExactArgs(1),
		RunE: a.withContainer(func(cmd *cobra.Command, args []string, c *container.Container) error {
			r := cmd.InOrStdin()
			if from != "" {
				f, err := os.Open(from)
				if err != nil {
					return fmt.Errorf("can't open %s: %w", from, err)
				}
				defer f.Close()
				r = f
			}
			f, err := c.Write(cmd.Context(), args[0], r)
			if err != nil {
				return err
			}
			a.log.WithField("path", f.FilePath).WithField("size", f.OriginalFileSize).Info("written")
			return nil
		}),
	}

	cmd.Flags().StringVarP(&from, "file", "f", "", "read the content from a local file instead of stdin")

	return cmd
}

func newCatCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print the content of a file",
		Args:  cobra.ExactArgs(1),
		RunE: a.withContainer(func(cmd *cobra.Command, args []string, c *container.Container) error {
			f, err := c.GetFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if f == nil {
				return fmt.Errorf("%w: %s", container.ErrNotFound, args[0])
			}
			content, err := c.ReadContent(cmd.Context(), f)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(content.Data)
			return err
		}),
	}
}

func newMoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <src> <dst>",
		Short: "Move a file to a new path",
		Args:  cobra.ExactArgs(2),
		RunE: a.withContainer(func(cmd *cobra.Command, args []string, c *container.Container) error {
			_, err := c.Move(cmd.Context(), args[0], args[1])
			return err
		}),
	}
}

func newRemoveCommand(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rm <path>...",
		Short: "Delete files and their contents",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withContainer(func(cmd *cobra.Command, args []string, c *container.Container) error {
			for _, p := range args {
				_, err := c.Delete(cmd.Context(), p)
				if err != nil && !(force && isNotFound(err)) {
					return err
				}
			}
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "ignore missing files")

	return cmd
}

func newMetaCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "meta <path> [meta]",
		Short: "Print or set the meta annotation of a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: a.withContainer(func(cmd *cobra.Command, args []string, c *container.Container) error {
			if len(args) == 2 {
				_, err := c.SetMeta(cmd.Context(), args[0], args[1])
				return err
			}
			f, err := c.GetFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if f == nil {
				return fmt.Errorf("%w: %s", container.ErrNotFound, args[0])
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), f.Meta)
			return err
		}),
	}
}
