package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"

	"github.com/MufengNiu/Paradisec/internal/config"
	"github.com/MufengNiu/Paradisec/internal/ingest"
	"github.com/MufengNiu/Paradisec/internal/logger"
	"github.com/MufengNiu/Paradisec/internal/mapping"
	"github.com/MufengNiu/Paradisec/internal/platform/paradisec"
	"github.com/MufengNiu/Paradisec/internal/store"
)

// app holds what a subcommand needs once the root has loaded config.
type app struct {
	cfg *config.Config
	log *slog.Logger
	fs  afero.Fs
	// openStore is swapped in tests.
	openStore func(ctx context.Context, cfg config.DB) (store.Gateway, error)
}

func newRootCmd(a *app) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "paradisec",
		Short: "Import the PARADISEC catalog into TLCMap",
		Long: `paradisec copies the PARADISEC collection catalog into the TLCMap
dataset, user_dataset and dataitem tables.

import creates everything and writes the mapping files, update refreshes
what the mapping files point at and adds anything new, undo deletes what
the mapping files point at.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return withCode(exitUsage, fmt.Errorf("unknown command %q", args[0]))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return withCode(exitUsage, fmt.Errorf("a command is required: import, update, undo or status"))
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd == cmd.Root() || cmd.Name() == "help" {
				return nil
			}
			return a.setup(cfgFile)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withCode(exitUsage, err)
	})
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")

	root.AddCommand(
		newImportCmd(a),
		newUpdateCmd(a),
		newUndoCmd(a),
		newStatusCmd(a),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	return run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{fs: afero.NewOsFs(), openStore: openStore}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func (a *app) setup(cfgFile string) error {
	config.LoadEnvFiles()

	cfg, err := config.Load(viper.New(), cfgFile)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("load config: %w", err))
	}
	a.cfg = cfg
	a.log = logger.New(cfg.Env, cfg.LogLevel)
	return nil
}

func openStore(ctx context.Context, cfg config.DB) (store.Gateway, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		gw, err := store.OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return gw, nil
	default:
		gw, err := store.OpenPG(ctx, cfg.DSN, 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.RedactDSN(cfg.DSN), err)
		}
		return gw, nil
	}
}

// service wires the synchronizer. A nil gateway is fine for commands that
// only read the mapping files.
func (a *app) service(gw store.Gateway) *ingest.Service {
	client := paradisec.NewClient(paradisec.Options{
		BaseURL:   a.cfg.Feed.BaseURL,
		Suffix:    a.cfg.Feed.Suffix,
		UserAgent: a.cfg.Feed.UserAgent,
		Timeout:   a.cfg.Feed.Timeout,
		RPS:       a.cfg.Feed.RPS,
	})
	files := mapping.NewFileStore(a.fs, a.cfg.Sync.MappingDir, a.log)
	return ingest.NewService(client, gw, files, ingest.Config{
		OwnerID:   a.cfg.Sync.OwnerID,
		RootName:  a.cfg.Sync.RootName,
		UIDPrefix: a.cfg.Sync.UIDPrefix,
	}, a.log)
}

// withStore opens the gateway for the duration of fn.
func (a *app) withStore(ctx context.Context, fn func(*ingest.Service) error) error {
	gw, err := a.openStore(ctx, a.cfg.DB)
	if err != nil {
		return withCode(exitStore, fmt.Errorf("open store: %w", err))
	}
	defer gw.Close()

	a.log.Debug("store opened", slog.String("driver", a.cfg.DB.Driver), slog.String("dsn", config.RedactDSN(a.cfg.DB.DSN)))
	return fn(a.service(gw))
}
