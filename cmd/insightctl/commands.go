package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ledgerinsight/internal/backend"
	"ledgerinsight/internal/cli"
	"ledgerinsight/internal/config"
	"ledgerinsight/internal/core"
	"ledgerinsight/internal/insight"
	"ledgerinsight/internal/log"
	"ledgerinsight/internal/metrics"
)

// flags shared by every ledger command.
type options struct {
	configFile string
	backend    string
	dbPath     string
	seed       string
	now        string
	mode       string
	year       int
	month      int
	weekStart  string
	factor     float64
	logLevel   string
}

// session is what a ledger command needs once flags are resolved.
type session struct {
	engine  *insight.Engine
	request insight.PeriodRequest
	ledger  *backend.BackendResult
	logger  *log.Logger
	out     io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "insightctl",
		Short: "Inspect ledger insights",
		Long: `insightctl reads the ledger and prints period, installment, recurring
and outlier views as JSON. Configuration is taken from the environment
(and CONFIG_FILE) and may be overridden by flags.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "TOML config file, defaults to $CONFIG_FILE")
	pf.StringVar(&opts.backend, "backend", "", "Ledger backend: memory or sqlite")
	pf.StringVar(&opts.dbPath, "db", "", "SQLite database path")
	pf.StringVar(&opts.seed, "seed", "", "JSON file with seed transactions")
	pf.StringVar(&opts.now, "now", "", "Evaluate at this date (YYYY-MM-DD) instead of today")
	pf.StringVar(&opts.mode, "mode", "", "Period mode: month or week")
	pf.IntVar(&opts.year, "year", 0, "Year of the month period")
	pf.IntVar(&opts.month, "month", 0, "Month of the month period (1-12)")
	pf.StringVar(&opts.weekStart, "week-start", "", "First day of the week: mon or sun")
	pf.StringVar(&opts.logLevel, "log-level", "error", "Log level written to stderr")

	outliers := viewCmd(opts, "outliers", "Expenses well above their category baseline", func(s *session, txs []core.Transaction) any {
		return s.engine.WithOutlierFactor(opts.factor).Outliers(txs, s.engine.Period(s.request), 0)
	})
	outliers.Flags().Float64Var(&opts.factor, "factor", 0, "Outlier factor, overrides the configured one")

	root.AddCommand(
		periodCmd(opts),
		viewCmd(opts, "installments", "Installment payments due in the period", func(s *session, txs []core.Transaction) any {
			return s.engine.Installments(txs, s.engine.Period(s.request))
		}),
		viewCmd(opts, "active", "Installment plans still running", func(s *session, txs []core.Transaction) any {
			return s.engine.ActiveInstallments(txs)
		}),
		viewCmd(opts, "recurring", "Recurring transactions in the period", func(s *session, txs []core.Transaction) any {
			return s.engine.Recurring(txs, s.engine.Period(s.request))
		}),
		outliers,
		reportCmd(opts),
		feeCmd(),
	)
	return root
}

func periodCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "period",
		Short: "Resolve the reporting period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, req, err := opts.engine()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), engine.Period(req))
		},
	}
}

func viewCmd(opts *options, use, short string, view func(*session, []core.Transaction) any) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.ledger.Close()

			txs, err := s.ledger.Backend.Transactions(cmd.Context())
			if err != nil {
				return fmt.Errorf("load ledger: %w", err)
			}
			return writeJSON(s.out, view(s, txs))
		},
	}
}

func reportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Every view for the period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.ledger.Close()

			started := time.Now()
			txs, err := s.ledger.Backend.Transactions(cmd.Context())
			if err != nil {
				metrics.LedgerLoadErrors.Inc()
				return fmt.Errorf("load ledger: %w", err)
			}
			report := s.engine.Report(txs, s.request)
			metrics.ObserveReport(metrics.SourceCLI, started, report)
			s.logger.Debug("Report computed", log.FieldTxCount, len(txs), log.FieldDuration, time.Since(started).Milliseconds())
			return writeJSON(s.out, report)
		},
	}
}

type feeResult struct {
	Principal      string `json:"principal"`
	Months         int    `json:"months"`
	InterestFree   bool   `json:"interestFree"`
	Fee            string `json:"fee"`
	Stored         string `json:"stored"`
	MonthlyPayment string `json:"monthlyPayment"`
}

func feeCmd() *cobra.Command {
	var (
		months       int
		interestFree bool
	)
	cmd := &cobra.Command{
		Use:   "fee AMOUNT",
		Short: "Show the entry-time fee for an installment purchase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			principal, err := core.ParseAmount(args[0])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[0], err)
			}
			if months < 1 {
				return core.ErrInvalidInstallmentMonths
			}
			fee, stored := core.InstallmentFee(principal, months, interestFree)
			return writeJSON(cmd.OutOrStdout(), feeResult{
				Principal:      principal.String(),
				Months:         months,
				InterestFree:   interestFree,
				Fee:            fee.String(),
				Stored:         stored.String(),
				MonthlyPayment: core.MonthlyPayment(stored, months).String(),
			})
		},
	}
	cmd.Flags().IntVar(&months, "months", 1, "Number of monthly installments")
	cmd.Flags().BoolVar(&interestFree, "interest-free", false, "Plan carries no fee")
	return cmd
}

// config layers flags over the environment configuration.
func (o *options) config() (*config.Config, error) {
	path := o.configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if o.backend != "" {
		cfg.LedgerBackend = o.backend
	}
	if o.dbPath != "" {
		cfg.SQLiteDBPath = o.dbPath
	}
	if o.seed != "" {
		cfg.LedgerSeedFile = o.seed
	}
	if o.mode != "" {
		cfg.PeriodMode = o.mode
	}
	if o.weekStart != "" {
		cfg.WeekStart = o.weekStart
	}
	cfg.LogLevel = o.logLevel
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *options) engine() (*insight.Engine, insight.PeriodRequest, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, insight.PeriodRequest{}, err
	}
	return o.engineFrom(cfg)
}

func (o *options) engineFrom(cfg *config.Config) (*insight.Engine, insight.PeriodRequest, error) {
	var clock insight.Clock
	if o.now != "" {
		d, err := core.ParseDate(o.now)
		if err != nil {
			return nil, insight.PeriodRequest{}, fmt.Errorf("--now: %w", err)
		}
		clock = insight.FixedClock(d.Time)
	}
	if o.month < 0 || o.month > 12 {
		return nil, insight.PeriodRequest{}, fmt.Errorf("--month %d: must be between 1 and 12", o.month)
	}
	if o.year < 0 || o.year > 9999 {
		return nil, insight.PeriodRequest{}, fmt.Errorf("--year %d: must be between 1 and 9999", o.year)
	}

	engine := insight.NewEngine(cfg.InsightOptions(), clock)
	req := engine.DefaultRequest()
	req.Year = o.year
	req.Month = time.Month(o.month)
	return engine, req, nil
}

func (o *options) open(cmd *cobra.Command) (*session, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	engine, req, err := o.engineFrom(cfg)
	if err != nil {
		return nil, err
	}
	logger := cli.NewLogger(cfg, log.ComponentCLI, cmd.ErrOrStderr())
	res, err := cli.OpenBackend(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	return &session{engine: engine, request: req, ledger: res, logger: logger, out: cmd.OutOrStdout()}, nil
}

func writeJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
