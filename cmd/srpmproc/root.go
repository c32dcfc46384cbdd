package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/srpmproc/cmd/srpmproc/commands"
	"github.com/walteh/srpmproc/cmd/srpmproc/opts"
	"github.com/walteh/srpmproc/pkg/config"
	"github.com/walteh/srpmproc/pkg/fsutil"
	"github.com/walteh/srpmproc/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// defaultSettingsFile is read when present and no --config is given.
const defaultSettingsFile = ".srpmproc.yaml"

type rootFlags struct {
	configFile string
	debug      bool
	jsonLog    bool
}

func newRootCmd() (*cobra.Command, *opts.RootOpts) {
	flags := &rootFlags{}
	ro := &opts.RootOpts{}

	rootCmd := &cobra.Command{
		Use:   "srpmproc",
		Short: "Apply declarative patch configs to unpacked rpm packages",
		Long: `srpmproc edits an unpacked source rpm (spec file, SOURCES, lookaside
manifest) by running YAML patch configs. Configs are picked from a patch
repository by branch and package name, or run directly with "patch".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := setupLogging(cmd.Context(), flags)
			ro.Console = log.New(cmd.ErrOrStderr(), *zerolog.Ctx(ctx))
			ro.Out = cmd.OutOrStdout()
			ctx = log.NewContext(ctx, ro.Console)

			settings, err := loadSettings(ctx, flags.configFile)
			if err != nil {
				return err
			}
			ro.Settings = settings

			cmd.SetContext(ctx)
			return nil
		},
	}

	addRootFlags(rootCmd, flags)

	rootCmd.AddCommand(
		commands.NewPatchCmd(ro),
		commands.NewImportCmd(ro),
		commands.NewValidateCmd(ro),
		commands.NewPlanCmd(ro),
		commands.NewVerifyCmd(ro),
		commands.NewVersionCmd(ro),
	)

	return rootCmd, ro
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, flags *rootFlags) {
	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "settings file path (yaml, json or hcl)")
	cmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&flags.jsonLog, "json-log", false, "write raw JSON log records to stderr")
}

// setupLogging installs a zerolog logger in ctx based on flags
func setupLogging(ctx context.Context, flags *rootFlags) context.Context {
	level := zerolog.InfoLevel
	if flags.debug {
		level = zerolog.DebugLevel
	}

	var logger zerolog.Logger
	if flags.jsonLog {
		logger = zerolog.New(os.Stderr)
	} else {
		// the console logger already covers info output for humans
		if !flags.debug {
			level = zerolog.WarnLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	logger = logger.Level(level).With().Timestamp().Logger()
	return logger.WithContext(ctx)
}

func loadSettings(ctx context.Context, path string) (*config.Settings, error) {
	if path == "" {
		if !fsutil.Exists(defaultSettingsFile) {
			return &config.Settings{}, nil
		}
		path = defaultSettingsFile
	}
	s, err := config.Load(ctx, path)
	if err != nil {
		return nil, errors.Errorf("loading settings: %w", err)
	}
	return s, nil
}
