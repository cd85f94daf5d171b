package cli

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/konorlevich/sfms/internal/config"
	"github.com/konorlevich/sfms/internal/container"
	"github.com/konorlevich/sfms/internal/logging"
)

type VersionInfo struct {
	Version string
	Commit  string
}

// app carries what the subcommands share once the configuration is loaded.
type app struct {
	info VersionInfo
	cfg  *config.Config
	log  *log.Logger
}

func NewRootCommand(info VersionInfo) *cobra.Command {
	var path string
	a := &app{info: info}

	cmd := &cobra.Command{
		Use:           "sfms",
		Short:         "Single file managed storage",
		Long:          "sfms keeps a whole file tree, metadata and contents, inside one SQLite database.",
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(path)
		},
	}

	cmd.PersistentFlags().StringVar(&path, "config", "", "config file (default is ./config.yaml)")
	cmd.PersistentFlags().String("db", config.GetDefault().Database.Location, "database file, or a name with --memory")
	cmd.PersistentFlags().Bool("memory", false, "use a private in-memory database that lives for this one command, e.g. to check an import")
	cmd.PersistentFlags().Bool("trace", false, "log every SQL statement")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().Bool("no-color", false, "disables colored log output")

	_ = viper.BindPFlag("database.location", cmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("database.in_memory", cmd.PersistentFlags().Lookup("memory"))
	_ = viper.BindPFlag("database.trace", cmd.PersistentFlags().Lookup("trace"))
	_ = viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.no_color", cmd.PersistentFlags().Lookup("no-color"))

	cmd.Version = fmt.Sprintf("%s.%s", info.Version, info.Commit)

	cmd.AddCommand(
		newListCommand(a),
		newStatCommand(a),
		newTouchCommand(a),
		newWriteCommand(a),
		newCatCommand(a),
		newMoveCommand(a),
		newRemoveCommand(a),
		newMetaCommand(a),
		newImportCommand(a),
		newExportCommand(a),
		newConfigCommand(),
		newVersionCommand(a),
	)

	return cmd
}

func (a *app) init(path string) error {
	if err := config.Init(path); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	l, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, l
	return nil
}

// withContainer opens the configured container around run and logs its failure.
func (a *app) withContainer(run func(cmd *cobra.Command, args []string, c *container.Container) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		l := a.log.WithFields(log.Fields{
			"command":  cmd.Name(),
			"location": a.cfg.Database.Location,
		})
		c, err := container.New(a.cfg.Database.Location, a.cfg.Database.InMemory,
			container.WithLogger(logging.NewGormLogger(a.log, a.cfg.Database.Trace)))
		if err != nil {
			l.WithError(err).Error("failed to open container")
			return err
		}
		defer func() {
			if err := c.Close(); err != nil {
				l.WithError(err).Error("failed to close container")
			}
		}()

		if err := run(cmd, args, c); err != nil {
			l.WithError(err).Error("command failed")
			return err
		}
		l.Debug("command done")
		return nil
	}
}
