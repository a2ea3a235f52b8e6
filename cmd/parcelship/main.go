package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bdalabs/parcelship/internal/cliconfig"
)

const helpDescription = `
Upload validated shipment rows to the GLS Label Service in size-bounded
batches, at most once per row.

Highlights:
  - Remembers what was already uploaded: re-running a file never creates
    duplicate shipments, even after crashes or timeouts.
  - Retries transient service faults with exponential backoff; terminal
    faults (bad credentials, validation) fail fast.
  - Configure via file (~/.parcelship/config.toml), environment
    (PARCELSHIP_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  parcelship upload consegne.csv --site MI --client-code C001 --contract-code K123
  parcelship upload --watch incoming/ --close-day
  parcelship ledger status --dir ./consegne
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	root := &cobra.Command{
		Use:           "parcelship",
		Short:         "Upload shipment batches to the GLS Label Service, at most once per row",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first, then env, then flag overrides.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			cmd.Root().PersistentFlags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			return cliconfig.ApplyEnvConfig(&cfg, changed)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default ~/.parcelship/config.toml)")
	pf.StringVar(&cfg.SiteID, "site", cfg.SiteID, "GLS branch (sede) identifier")
	pf.StringVar(&cfg.ClientCode, "client-code", cfg.ClientCode, "GLS client code")
	pf.StringVar(&cfg.Secret, "secret", cfg.Secret, "GLS API password")
	pf.StringVar(&cfg.ContractCode, "contract-code", cfg.ContractCode, "GLS contract code")
	pf.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "service endpoint URL")
	pf.StringVar(&cfg.LedgerDir, "ledger-dir", cfg.LedgerDir, "ledger directory (default: source file directory)")
	pf.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout per call")
	pf.IntVar(&cfg.RetryAttempts, "retry-attempts", cfg.RetryAttempts, "attempts per remote operation")
	pf.DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "initial retry backoff delay")
	pf.DurationVar(&cfg.RetryMaxDelay, "retry-max-delay", cfg.RetryMaxDelay, "maximum retry backoff delay")
	pf.IntVar(&cfg.MaxBatch, "max-batch", cfg.MaxBatch, "maximum parcels per submission")

	root.AddCommand(
		newUploadCmd(&cfg, logger),
		newCloseDayCmd(&cfg, logger),
		newListCmd(&cfg, logger),
		newDeleteCmd(&cfg, logger),
		newLedgerCmd(&cfg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
