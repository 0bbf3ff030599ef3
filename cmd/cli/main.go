package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/tradeledger/internal/adapter/ratesource"
	"github.com/iho/tradeledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/tradeledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/tradeledger/internal/adapter/repository/redis"
	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/infrastructure/config"
	"github.com/iho/tradeledger/internal/infrastructure/logger"
	"github.com/iho/tradeledger/internal/infrastructure/postgres"
	"github.com/iho/tradeledger/internal/infrastructure/redis"
	"github.com/iho/tradeledger/internal/usecase"
)

// errUnreconciled makes reconcile exit non-zero when balances drift.
var errUnreconciled = errors.New("ledger has unreconciled balances")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "tradeledger-cli",
		Short:         "TradeLedger operations tool",
		Long:          `Schema migrations, balance reconciliation and exchange rate lookups for TradeLedger.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if url, _ := cmd.Flags().GetString("database-url"); url != "" {
				cfg.DatabaseURL = url
			}
			c.cfg = cfg
			c.log = logger.New(logger.Config{Level: cfg.LogLevel, Format: "console", Output: cmd.ErrOrStderr()})
			return nil
		},
	}
	rootCmd.PersistentFlags().String("database-url", "", "Overrides DATABASE_URL")

	rootCmd.AddCommand(c.migrateCmd(), c.reconcileCmd(), c.rateCmd())
	return rootCmd
}

func (c *cli) migrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	migrator := func() *postgres.Migrator {
		return postgres.NewMigrator(c.cfg.DatabaseURL, c.cfg.MigrationsPath, c.log)
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrator().Up()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrator().Down()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				version, dirty, err := migrator().Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %v\n", version, dirty)
				return nil
			},
		},
	)
	return migrateCmd
}

func (c *cli) reconcileCmd() *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare every stored balance with its movement journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := postgres.NewPool(ctx, c.cfg.DatabaseURL, 2, 0)
			if err != nil {
				return err
			}
			defer pool.Close()

			uc := usecase.NewReconciliationUseCase(
				postgresRepo.NewTxManager(pool, c.cfg.DBLockTimeout),
				postgresRepo.NewPartyRepository(pool),
				postgresRepo.NewMovementRepository(pool),
				nil,
			)
			report, err := uc.ReconcileAll(ctx)
			if err != nil {
				return err
			}
			if tenant != "" {
				report = report.ForTenant(tenant)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Only report this tenant")
	return cmd
}

func printReport(w io.Writer, report *usecase.ReconciliationReport) error {
	fmt.Fprintf(w, "checked %d balances at %s\n", report.Checked, report.CheckedAt.Format("2006-01-02 15:04:05Z07:00"))
	if report.Healthy() {
		fmt.Fprintln(w, "all balances reconciled")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tRECORDED\tJOURNAL\tDIFFERENCE")
	for _, m := range report.Mismatches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			m.Target,
			m.RecordedBalance.StringFixed(domain.MoneyPlaces),
			m.CalculatedBalance.StringFixed(domain.MoneyPlaces),
			m.Difference.StringFixed(domain.MoneyPlaces),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return fmt.Errorf("%w: %d", errUnreconciled, len(report.Mismatches))
}

func (c *cli) rateCmd() *cobra.Command {
	var (
		manual  string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "rate FROM TO",
		Short: "Resolve the exchange rate between two currencies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var override *decimal.Decimal
			if manual != "" {
				d, err := decimal.NewFromString(manual)
				if err != nil {
					return fmt.Errorf("invalid --manual rate %q: %w", manual, err)
				}
				override = &d
			}

			cache, closeCache, err := c.rateCache(ctx)
			if err != nil {
				return err
			}
			defer closeCache()

			resolver := usecase.NewRateResolver(
				cache,
				ratesource.NewClient(ratesource.Config{BaseURL: c.cfg.RateAPIURL, APIKey: c.cfg.RateAPIKey, Timeout: c.cfg.RateFetchTimeout}),
				usecase.RateResolverConfig{FetchTimeout: c.cfg.RateFetchTimeout, CacheTTL: c.cfg.RateCacheTTL, StaleTTL: c.cfg.RateStaleTTL},
				c.log, nil,
			)

			if refresh {
				if err := resolver.Invalidate(ctx, args[0], args[1]); err != nil {
					return fmt.Errorf("invalidate cached rate: %w", err)
				}
			}

			rate, err := resolver.Resolve(ctx, args[0], args[1], override)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rate.StringFixed(domain.RatePlaces))
			return nil
		},
	}
	cmd.Flags().StringVar(&manual, "manual", "", "Rate to use when the live source is unavailable")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Drop the cached rate before resolving")
	return cmd
}

// rateCache shares the server's Redis cache when configured so lookups see
// the same fresh and stale entries.
func (c *cli) rateCache(ctx context.Context) (usecase.Cache, func(), error) {
	if c.cfg.RedisURL == "" {
		return memory.NewCache(), func() {}, nil
	}
	client, err := redis.NewClient(ctx, c.cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return redisRepo.NewCache(client, ""), func() { _ = client.Close() }, nil
}
