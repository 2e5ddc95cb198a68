package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dharmasatrya/flightfinder/internal/models"
)

// printFailure renders the body of a request error before returning it, the
// same way search does for provider failures.
func printFailure(cmd *cobra.Command, opts *GlobalOptions, err error) error {
	var ve models.ValidationError
	if errors.As(err, &ve) {
		_ = render(cmd.OutOrStdout(), opts.Output, models.ErrorResponse{
			Error: models.ErrorDetail{Kind: "validation_error", Message: ve.Error()},
		})
	}
	return err
}

func newDateRangeCmd(opts *GlobalOptions, open OpenFunc) *cobra.Command {
	var (
		fare    fareFlags
		req     models.DateRangeRequest
		minStay int
		maxStay int
	)

	cmd := &cobra.Command{
		Use:   "date-range",
		Short: "Find the cheapest round trip across a window of dates",
		Long: `Search every departure/return pair between --start and --end whose stay
length fits --min-stay and --max-stay. Each pair is one round-trip search, so
at most 30 pairs may be requested.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.FareOptions = fare.options()
			if minStay >= 0 {
				req.MinStayDays = &minStay
			}
			if maxStay >= 0 {
				req.MaxStayDays = &maxStay
			}

			svc, closeFn, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			resp, err := svc.SearchDateRange(cmd.Context(), req)
			if err != nil {
				return printFailure(cmd, opts, err)
			}
			return render(cmd.OutOrStdout(), opts.Output, resp)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&req.Origin, "from", "", "origin airport code")
	fs.StringVar(&req.Destination, "to", "", "destination airport code")
	fs.StringVar(&req.StartDate, "start", "", "first departure date (YYYY-MM-DD)")
	fs.StringVar(&req.EndDate, "end", "", "last return date (YYYY-MM-DD)")
	fs.IntVar(&minStay, "min-stay", -1, "minimum nights away (-1 for any)")
	fs.IntVar(&maxStay, "max-stay", -1, "maximum nights away (-1 for any)")
	fs.BoolVar(&req.CheapestOnly, "cheapest", false, "keep only the cheapest option per pair")
	fare.register(cmd)
	return cmd
}

func newNearbyCmd(opts *GlobalOptions, open OpenFunc) *cobra.Command {
	var (
		fare fareFlags
		req  models.NearbyAirportsRequest
	)

	cmd := &cobra.Command{
		Use:     "nearby",
		Short:   "Compare one-way prices across nearby airports",
		Example: `  flightctl nearby --from SFO,OAK,SJC --to JFK,EWR,LGA --date 2025-07-20`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.FareOptions = fare.options()

			svc, closeFn, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			resp, err := svc.CompareNearbyAirports(cmd.Context(), req)
			if err != nil {
				return printFailure(cmd, opts, err)
			}
			return render(cmd.OutOrStdout(), opts.Output, resp)
		},
	}

	fs := cmd.Flags()
	fs.StringSliceVar(&req.Origins, "from", nil, "origin airport codes, comma separated")
	fs.StringSliceVar(&req.Destinations, "to", nil, "destination airport codes, comma separated")
	fs.StringVar(&req.Date, "date", "", "departure date (YYYY-MM-DD)")
	fare.register(cmd)
	return cmd
}

func newCompareCmd(opts *GlobalOptions, open OpenFunc) *cobra.Command {
	var (
		fare fareFlags
		req  models.TicketComparisonRequest
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a round-trip ticket with two one-way tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.FareOptions = fare.options()

			svc, closeFn, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			resp, err := svc.CompareTickets(cmd.Context(), req)
			if err != nil {
				return printFailure(cmd, opts, err)
			}
			return render(cmd.OutOrStdout(), opts.Output, resp)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&req.Origin, "from", "", "origin airport code")
	fs.StringVar(&req.Destination, "to", "", "destination airport code")
	fs.StringVar(&req.DepartureDate, "depart", "", "departure date (YYYY-MM-DD)")
	fs.StringVar(&req.ReturnDate, "return", "", "return date (YYYY-MM-DD)")
	fare.register(cmd)
	return cmd
}

func newDatesCmd(opts *GlobalOptions, open OpenFunc) *cobra.Command {
	var daysFromNow, tripLength int

	cmd := &cobra.Command{
		Use:   "dates",
		Short: "Suggest departure and return dates relative to today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			resp, err := svc.TravelDates(daysFromNow, tripLength)
			if err != nil {
				return printFailure(cmd, opts, err)
			}
			return render(cmd.OutOrStdout(), opts.Output, resp)
		},
	}

	cmd.Flags().IntVar(&daysFromNow, "days-from-now", 30, "days until departure")
	cmd.Flags().IntVar(&tripLength, "trip-length", 7, "nights away")
	return cmd
}
