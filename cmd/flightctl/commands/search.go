package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dharmasatrya/flightfinder/internal/fallback"
	"github.com/dharmasatrya/flightfinder/internal/models"
)

func newSearchCmd(opts *GlobalOptions, open OpenFunc) *cobra.Command {
	var (
		rf        requestFlags
		sortBy    string
		sortOrder string
		cheapest  bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search flights",
		Long: `Search flights through the configured providers in fallback order.

Results always come from a single provider, named by data_source. When every
provider fails, the per-provider failures are printed and the command exits
non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := rf.request()
			if err != nil {
				return err
			}
			req.SortBy = sortBy
			req.SortOrder = sortOrder
			req.CheapestOnly = cheapest

			svc, closeFn, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			resp, err := svc.Search(cmd.Context(), req)
			if err != nil {
				var se *fallback.SearchError
				if errors.As(err, &se) {
					_ = render(cmd.OutOrStdout(), opts.Output, models.ErrorResponse{Error: se})
				}
				return err
			}
			return render(cmd.OutOrStdout(), opts.Output, resp)
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVar(&sortBy, "sort-by", "price", "sort key: price, duration, departure, arrival, stops, best_value")
	cmd.Flags().StringVar(&sortOrder, "sort-order", "asc", "sort order: asc, desc")
	cmd.Flags().BoolVar(&cheapest, "cheapest", false, "return only the cheapest option")
	return cmd
}

func newURLCmd(opts *GlobalOptions, open OpenFunc) *cobra.Command {
	var rf requestFlags

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the Google Flights search URL for a trip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := rf.request()
			if err != nil {
				return err
			}
			svc, closeFn, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			resp, err := svc.BookingURL(req)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.Output, resp)
		},
	}

	rf.register(cmd)
	return cmd
}

func newProvidersCmd(opts *GlobalOptions, open OpenFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured providers in fallback order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			return render(cmd.OutOrStdout(), opts.Output, map[string]any{
				"providers": svc.Providers(),
			})
		},
	}
}
