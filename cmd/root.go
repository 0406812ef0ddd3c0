package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/defenseunicorns/uds-cxone-report/internal/auth"
	"github.com/defenseunicorns/uds-cxone-report/internal/checkmarx"
	"github.com/defenseunicorns/uds-cxone-report/internal/config"
	"github.com/defenseunicorns/uds-cxone-report/internal/log"
	"github.com/defenseunicorns/uds-cxone-report/internal/metrics"
	"github.com/defenseunicorns/uds-cxone-report/internal/sql"
	"github.com/defenseunicorns/uds-cxone-report/pkg/types"
	"github.com/defenseunicorns/uds-cxone-report/pkg/version"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "cxone_report"

// errFlagRetrieval is the error message for when a flag cannot be retrieved.
var errFlagRetrieval = errors.New("error getting flag")

// errInvalidFlagValue is the error message for a flag whose value is not one of the accepted options.
var errInvalidFlagValue = errors.New("has an invalid value")

// Execute is the main entry point for the report requester.
func Execute(args []string) {
	ctx := context.Background()
	execute(ctx, log.NewLogger(ctx), args)
}

// execute runs the root command with logger in its context.
// Any error is logged through Fatalf, which exits the process with status 1.
func execute(ctx context.Context, logger types.Logger, args []string) {
	rootCmd := newRootCmd()
	rootCmd.Version = fmt.Sprintf(`{"version": "%s", "commit": "%s"}`, version.Version, version.CommitSHA)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.SilenceErrors = true
	rootCmd.SetArgs(args) // Set the arguments
	if err := rootCmd.ExecuteContext(log.WithLogger(ctx, logger)); err != nil {
		logger.Fatalf("Error executing command", zap.Error(err))
	}
}

// newRootCmd creates the root command for the report requester.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cxone-report <scan-id>",
		Short: "Generate and send Checkmarx security scan reports",
		Long: `cxone-report exchanges a Checkmarx One API key for an access token and asks
Checkmarx One to email an improved scan report (PDF) for the given scan ID.`,
		Args:         cobra.ExactArgs(1),
		RunE:         runReport, // Use RunE instead of Run to handle errors
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return fmt.Errorf("%w: output: %w", errFlagRetrieval, err)
			}
			if !isOneOf(output, outputNone, outputJSON, outputYAML) {
				return fmt.Errorf("output %w: %s (options: none|json|yaml)", errInvalidFlagValue, output)
			}
			dbType, err := cmd.Flags().GetString("history-db-type")
			if err != nil {
				return fmt.Errorf("%w: history-db-type: %w", errFlagRetrieval, err)
			}
			if !isOneOf(dbType, sql.TypeNone, sql.TypeSQLite, sql.TypePostgres, sql.TypeCloudSQL) {
				return fmt.Errorf("history-db-type %w: %s (options: none|sqlite|postgres|cloudsql)",
					errInvalidFlagValue, dbType)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultPath, "Path to the JSON (or YAML) configuration file")
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional .env file exporting CXONE_* overrides")
	rootCmd.PersistentFlags().Bool("list-projects", false,
		"Also fetch the most recently scanned projects and log how many were returned (diagnostic only)")
	rootCmd.PersistentFlags().StringP("output", "o", outputNone,
		"Print the report creation response to stdout. options: none|json|yaml")
	rootCmd.PersistentFlags().String("metrics-file", "",
		"Write request metrics to this file in the Prometheus text format")
	rootCmd.PersistentFlags().String("history-db-type", sql.TypeNone,
		"Record submitted report requests. options: none|sqlite|postgres|cloudsql")
	rootCmd.PersistentFlags().String("history-db-path", "cxone-report.db", "SQLite database path")
	rootCmd.PersistentFlags().String("history-db-dsn", "",
		"Postgres DSN (e.g. host=localhost user=u password=p dbname=d port=5432 sslmode=disable)")
	rootCmd.PersistentFlags().String("history-db-instance", "", "Cloud SQL instance connection name (project:region:instance)")
	rootCmd.PersistentFlags().String("history-db-user", "", "Cloud SQL database user")
	rootCmd.PersistentFlags().String("history-db-password", "", "Cloud SQL database password")
	rootCmd.PersistentFlags().String("history-db-name", "", "Cloud SQL database name")

	return rootCmd
}

// Options are the settings taken from the command line.
type Options struct {
	History      sql.Options
	ConfigPath   string
	EnvFile      string
	Output       string
	MetricsFile  string
	ListProjects bool
}

// getOptionsFromFlags gets the options from the command line flags.
func getOptionsFromFlags(cmd *cobra.Command) *Options {
	configPath, _ := cmd.Flags().GetString("config")              //nolint:errcheck
	envFile, _ := cmd.Flags().GetString("env-file")               //nolint:errcheck
	listProjects, _ := cmd.Flags().GetBool("list-projects")       //nolint:errcheck
	output, _ := cmd.Flags().GetString("output")                  //nolint:errcheck
	metricsFile, _ := cmd.Flags().GetString("metrics-file")       //nolint:errcheck
	dbType, _ := cmd.Flags().GetString("history-db-type")         //nolint:errcheck
	dbPath, _ := cmd.Flags().GetString("history-db-path")         //nolint:errcheck
	dbDSN, _ := cmd.Flags().GetString("history-db-dsn")           //nolint:errcheck
	dbInstance, _ := cmd.Flags().GetString("history-db-instance") //nolint:errcheck
	dbUser, _ := cmd.Flags().GetString("history-db-user")         //nolint:errcheck
	dbPassword, _ := cmd.Flags().GetString("history-db-password") //nolint:errcheck
	dbName, _ := cmd.Flags().GetString("history-db-name")         //nolint:errcheck

	return &Options{
		ConfigPath:   configPath,
		EnvFile:      envFile,
		ListProjects: listProjects,
		Output:       output,
		MetricsFile:  metricsFile,
		History: sql.Options{
			Type:                   dbType,
			Path:                   dbPath,
			DSN:                    dbDSN,
			InstanceConnectionName: dbInstance,
			User:                   dbUser,
			Password:               dbPassword,
			Name:                   dbName,
		},
	}
}

// runReport loads the configuration, obtains a token and requests the report.
// Configuration problems fail the command; token and API failures are logged and the command still succeeds.
func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.NewLogger(ctx)
	opts := getOptionsFromFlags(cmd)
	scanID := args[0]

	if opts.EnvFile != "" {
		if err := config.LoadDotEnv(opts.EnvFile); err != nil {
			return fmt.Errorf("error loading env file: %w", err)
		}
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	history, err := openHistory(ctx, opts.History)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	collector := metrics.FromContext(ctx, metricsNamespace)
	if opts.MetricsFile != "" {
		defer func() {
			if err := collector.WriteToTextfile(opts.MetricsFile); err != nil {
				logger.Error("Failed to write metrics", zap.Error(err))
			}
		}()
	}

	// the identity service gets no client timeout; only ctx bounds it
	issuerClient, err := metrics.InstrumentClient(collector, types.NewRealHTTPClientWithTimeout(0))
	if err != nil {
		return fmt.Errorf("error instrumenting HTTP client: %w", err)
	}
	token, err := auth.NewIssuer(issuerClient).Issue(ctx, cfg)
	if err != nil {
		logTokenFailure(logger, err)
		return nil
	}
	logger.Info("OAuth token obtained", zap.String("token", auth.Redact(token.AccessToken)))
	logger.Info("Generating report", zap.String("scanID", scanID))

	apiClient, err := metrics.InstrumentClient(collector, checkmarx.NewAuthenticatedHTTPClient(ctx, token, nil))
	if err != nil {
		return fmt.Errorf("error instrumenting HTTP client: %w", err)
	}
	client := checkmarx.NewClient(cfg.APIURL, apiClient, logger)

	if opts.ListProjects {
		projects, err := client.ListRecentProjects(ctx, checkmarx.DefaultProjectLimit)
		if err == nil {
			logger.Info("Recent projects fetched", zap.Int("count", len(projects)))
		}
	}

	report := checkmarx.NewImprovedScanReport(scanID, cfg.EmailTo)
	stop, err := collector.MeasureFunctionExecutionTime("create_customized_report")
	if err != nil {
		return fmt.Errorf("error registering metrics: %w", err)
	}
	response, reportErr := client.CreateCustomizedReport(ctx, report)
	stop()
	logger.Info("Report creation response", zap.Any("response", response))

	if history != nil {
		if err := history.Record(report, response, reportErr); err != nil {
			logger.Error("Failed to record report request", zap.Error(err))
		}
	}

	return writeResponse(cmd.OutOrStdout(), opts.Output, response)
}

// logTokenFailure logs why no token could be obtained.
func logTokenFailure(logger types.Logger, err error) {
	var reqErr *auth.RequestError
	switch {
	case errors.As(err, &reqErr):
		logger.Error("Could not obtain OAuth token",
			zap.Int("status", reqErr.StatusCode), zap.String("response", reqErr.Body))
	case errors.Is(err, auth.ErrTokenNotFound):
		logger.Error("Could not obtain OAuth token: access token not found in response")
	default:
		logger.Error("Could not obtain OAuth token", zap.Error(err))
	}
}

func isOneOf(value string, options ...string) bool {
	for _, o := range options {
		if value == o {
			return true
		}
	}
	return false
}
