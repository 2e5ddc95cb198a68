package commands

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dharmasatrya/flightfinder/internal/models"
)

// fareFlags are the passenger and fare settings every search command takes.
type fareFlags struct {
	adults        int
	children      int
	infantsInSeat int
	infantsOnLap  int
	cabin         string
	maxStops      int
	currency      string
}

func (f *fareFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.adults, "adults", 1, "number of adults")
	fs.IntVar(&f.children, "children", 0, "number of children")
	fs.IntVar(&f.infantsInSeat, "infants-seat", 0, "number of infants in seat")
	fs.IntVar(&f.infantsOnLap, "infants-lap", 0, "number of infants on lap")
	fs.StringVar(&f.cabin, "cabin", "economy", "cabin class: economy, premium_economy, business, first")
	fs.IntVar(&f.maxStops, "max-stops", -1, "maximum stops per leg (-1 for any)")
	fs.StringVar(&f.currency, "currency", "", "ISO currency code")
}

func (f *fareFlags) options() models.FareOptions {
	opts := models.FareOptions{
		Passengers: models.Passengers{
			Adults:        f.adults,
			Children:      f.children,
			InfantsInSeat: f.infantsInSeat,
			InfantsOnLap:  f.infantsOnLap,
		},
		CabinClass: models.CabinClass(f.cabin),
		Currency:   f.currency,
	}
	if f.maxStops >= 0 {
		stops := f.maxStops
		opts.MaxStops = &stops
	}
	return opts
}

// requestFlags are the search parameters shared by search and url.
type requestFlags struct {
	fareFlags
	tripType string
	from     string
	to       string
	depart   string
	ret      string
	legs     []string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.tripType, "trip", "", "trip type: one-way, round-trip, multi-city (inferred when empty)")
	fs.StringVar(&f.from, "from", "", "origin airport code")
	fs.StringVar(&f.to, "to", "", "destination airport code")
	fs.StringVar(&f.depart, "depart", "", "departure date (YYYY-MM-DD)")
	fs.StringVar(&f.ret, "return", "", "return date for round trips (YYYY-MM-DD)")
	fs.StringArrayVar(&f.legs, "leg", nil, "multi-city leg as ORIGIN,DESTINATION,DATE (repeatable)")
	f.fareFlags.register(cmd)
}

func (f *requestFlags) request() (models.SearchRequest, error) {
	fare := f.options()
	req := models.SearchRequest{
		TripType:      models.TripType(f.tripType),
		Origin:        f.from,
		Destination:   f.to,
		DepartureDate: f.depart,
		Passengers:    fare.Passengers,
		CabinClass:    fare.CabinClass,
		MaxStops:      fare.MaxStops,
		Currency:      fare.Currency,
	}
	if f.ret != "" {
		ret := f.ret
		req.ReturnDate = &ret
	}
	for _, raw := range f.legs {
		parts := strings.Split(raw, ",")
		if len(parts) != 3 {
			return req, errors.Newf("--leg %q must be ORIGIN,DESTINATION,DATE", raw)
		}
		req.Legs = append(req.Legs, models.Leg{
			Origin:      strings.TrimSpace(parts[0]),
			Destination: strings.TrimSpace(parts[1]),
			Date:        strings.TrimSpace(parts[2]),
		})
	}
	return req, nil
}
