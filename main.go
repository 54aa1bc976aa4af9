package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
)

var (
	conf    = newViper()
	cfg     Config
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:           "updatebench",
	Short:         "Measure row update latency by commit strategy",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the table and reset its rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := Connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := seed(cmd.Context(), db); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d rows into %s\n", cfg.Rows, cfg.Table)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:       "run [row|batch|parallel|all]...",
	Short:     "Time the update of every row",
	ValidArgs: []string{"row", "batch", "parallel", "all"},
	Args:      cobra.OnlyValidArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := parseStrategies(args)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if conf.GetBool("seed") {
			if err := withDB(ctx, seed); err != nil {
				return err
			}
		}

		bench := &Bench{
			Connect: func(ctx context.Context) (*DB, error) {
				return Connect(ctx, cfg)
			},
			Driver:      cfg.Driver,
			Keys:        cfg.Keys(),
			Workers:     cfg.Workers,
			SkipMissing: cfg.SkipMissing,
		}

		for _, s := range list {
			report, err := bench.Run(ctx, s)
			// 部分失败时已提交的结果也要输出
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), report)
			}
			if err != nil {
				return fmt.Errorf("run %s, %w", s, err)
			}
		}

		if conf.GetBool("verify") {
			return withDB(ctx, verifyTo(cmd.OutOrStdout()))
		}
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every row holds key+2",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), verifyTo(cmd.OutOrStdout()))
	},
}

var sqliteMatrixCmd = &cobra.Command{
	Use:   "sqlite-matrix",
	Short: "Compare strategies across sqlite drivers and pragmas on temporary databases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sqliteUpdateMatrix(cmd.Context(), cfg.Keys(), cfg.Workers)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (yaml, toml or json)")
	flags.String("driver", "mysql", "database driver: pgx, postgres, mysql, sqlite, sqlite3")
	flags.String("host", "localhost", "database host")
	flags.Int("port", 0, "database port, 0 uses the driver default")
	flags.String("user", "root", "database user")
	flags.String("password", "", "database password")
	flags.String("database", "bench", "database name")
	flags.String("file", "updatebench.db", "sqlite database file")
	flags.String("table", defaultTable, "table name")
	flags.Int64("rows", defaultRows, "number of rows, keys are 0..rows-1")
	flags.Int("workers", defaultWorkers, "partitions for the parallel strategy")
	flags.Bool("skip-missing", false, "count keys without a row instead of failing")
	flags.Bool("debug", false, "enable debug logging")
	flags.Int("sqlite-busy-timeout", 5000, "sqlite busy timeout in milliseconds")
	flags.String("sqlite-txlock", "immediate", "sqlite transaction lock mode")
	flags.String("sqlite-journal-mode", "", "sqlite journal mode")
	flags.String("sqlite-synchronous", "", "sqlite synchronous mode")

	bind(flags, map[string]string{
		"driver":              "driver",
		"host":                "host",
		"port":                "port",
		"user":                "user",
		"password":            "password",
		"database":            "database",
		"file":                "file",
		"table":               "table",
		"rows":                "rows",
		"workers":             "workers",
		"skip-missing":        "skip_missing",
		"debug":               "debug",
		"sqlite-busy-timeout": "sqlite.busy_timeout",
		"sqlite-txlock":       "sqlite.txlock",
		"sqlite-journal-mode": "sqlite.journal_mode",
		"sqlite-synchronous":  "sqlite.synchronous",
	})

	runCmd.Flags().Bool("seed", false, "seed rows before running")
	runCmd.Flags().Bool("verify", false, "verify rows after running")
	bind(runCmd.Flags(), map[string]string{
		"seed":   "seed",
		"verify": "verify",
	})

	rootCmd.AddCommand(seedCmd, runCmd, verifyCmd, sqliteMatrixCmd)
}

func bind(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := conf.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Errorf("bind flag %s, %w", name, err))
		}
	}
}

func initConfig() error {
	if cfgFile != "" {
		conf.SetConfigFile(cfgFile)
		if err := conf.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("load config file %s, %w", cfgFile, err)
			}
		}
	}

	var err error
	if cfg, err = newConfig(conf); err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.HandlerOptions{
		Level: level,
	}.NewTextHandler(os.Stderr)))

	slog.Debug("config loaded", slog.String("driver", cfg.Driver), slog.String("addr", cfg.Addr()), slog.String("table", cfg.Table))
	return nil
}

func withDB(ctx context.Context, fn func(context.Context, *DB) error) error {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, db)
}

func seed(ctx context.Context, db *DB) error {
	if err := prepareSchema(ctx, db); err != nil {
		return fmt.Errorf("prepare schema, %w", err)
	}
	return seedRows(ctx, db, cfg.Keys())
}

func verifyTo(w io.Writer) func(context.Context, *DB) error {
	return func(ctx context.Context, db *DB) error {
		result, err := verifyRows(ctx, db, cfg.Keys())
		if err != nil {
			return err
		}

		fmt.Fprintln(w, result)
		if !result.OK() {
			return errors.New("verify failed")
		}
		return nil
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		slog.Error("updatebench failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
