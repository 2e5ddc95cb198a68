// Package commands implements the flightctl CLI.
package commands

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dharmasatrya/flightfinder/internal/app"
	"github.com/dharmasatrya/flightfinder/internal/config"
	"github.com/dharmasatrya/flightfinder/internal/fallback"
	"github.com/dharmasatrya/flightfinder/internal/logging"
	"github.com/dharmasatrya/flightfinder/internal/models"
)

type Service interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)
	BookingURL(req models.SearchRequest) (*models.BookingURLResponse, error)
	Providers() []fallback.ProviderInfo
	SearchDateRange(ctx context.Context, req models.DateRangeRequest) (*models.DateRangeResponse, error)
	CompareNearbyAirports(ctx context.Context, req models.NearbyAirportsRequest) (*models.NearbyAirportsResponse, error)
	CompareTickets(ctx context.Context, req models.TicketComparisonRequest) (*models.TicketComparisonResponse, error)
	TravelDates(daysFromNow, tripLength int) (*models.TravelDates, error)
}

// OpenFunc builds the service for one command run. The returned func
// releases it.
type OpenFunc func(ctx context.Context, opts *GlobalOptions) (Service, func() error, error)

type GlobalOptions struct {
	ConfigPath string
	Output     string
	LogLevel   string
}

// NewRootCmd assembles the command tree. A nil open uses the configured
// providers.
func NewRootCmd(open OpenFunc) *cobra.Command {
	if open == nil {
		open = openApp
	}
	opts := &GlobalOptions{}

	root := &cobra.Command{
		Use:   "flightctl",
		Short: "Search flights across providers with automatic fallback",
		Long: `flightctl searches one-way, round-trip and multi-city flights through the
configured providers, falling back to the next provider when one fails.

Configuration comes from config.yaml, a .env file and FLIGHTS_* environment
variables.`,
		Example: `  # Round trip, two adults
  flightctl search --from SFO --to LAX --depart 2025-12-15 --return 2025-12-22 --adults 2

  # Multi-city as YAML
  flightctl search --leg SFO,JFK,2025-12-15 --leg JFK,LHR,2025-12-20 -o yaml

  # Google Flights link without searching
  flightctl url --from SFO --to LAX --depart 2025-12-15

  # Cheapest dates for a 3 to 5 night stay
  flightctl date-range --from JFK --to MIA --start 2025-09-10 --end 2025-09-20 --min-stay 3 --max-stay 5`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.Output {
			case "json", "yaml":
				return nil
			}
			return errors.Newf("unsupported output format %q (want json or yaml)", opts.Output)
		},
	}

	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVarP(&opts.Output, "output", "o", "json", "output format: json, yaml")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		newSearchCmd(opts, open),
		newURLCmd(opts, open),
		newProvidersCmd(opts, open),
		newDateRangeCmd(opts, open),
		newNearbyCmd(opts, open),
		newCompareCmd(opts, open),
		newDatesCmd(opts, open),
	)
	return root
}

func openApp(ctx context.Context, opts *GlobalOptions) (Service, func() error, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Config{Level: opts.LogLevel, Development: true})
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a.Service, func() error {
		_ = logger.Sync()
		return a.Close()
	}, nil
}
