package normalize

import (
	"sort"

	"golang.org/x/text/language"

	"github.com/dharmasatrya/flightfinder/internal/models"
	"github.com/dharmasatrya/flightfinder/internal/providers"
	"github.com/dharmasatrya/flightfinder/pkg/currency"
)

// Normalizer maps provider records onto the public FlightOption schema.
// Values a provider did not report stay nil; nothing is derived by guessing.
type Normalizer struct {
	formatter *currency.Formatter
}

func New(formatter *currency.Formatter) *Normalizer {
	if formatter == nil {
		formatter = currency.NewFormatter(language.English)
	}
	return &Normalizer{formatter: formatter}
}

// Normalize converts every record produced by source for req. The output
// order is the record order.
func (n *Normalizer) Normalize(source string, req models.SearchRequest, records []providers.Record) []models.FlightOption {
	fallbackURL := BookingURL(req)
	options := make([]models.FlightOption, 0, len(records))
	for _, rec := range records {
		options = append(options, n.option(source, rec, fallbackURL))
	}
	return options
}

func (n *Normalizer) option(source string, rec providers.Record, fallbackURL string) models.FlightOption {
	opt := models.FlightOption{
		Segments:             normalizeSegments(rec.Segments),
		Airlines:             airlines(rec),
		IsBest:               rec.IsBest,
		TotalDurationMinutes: rec.TotalDurationMinutes,
		Stops:                rec.Stops,
		BookingURL:           fallbackURL,
		DataSource:           source,
	}
	if rec.Price != nil {
		opt.Price = &models.Price{
			Amount:    rec.Price.Amount,
			Currency:  rec.Price.Currency,
			Formatted: n.formatter.Format(rec.Price.Amount, rec.Price.Currency),
		}
	}
	if rec.Carbon != nil {
		c := *rec.Carbon
		opt.CarbonEmissions = &c
	}
	if rec.BookingURL != nil && *rec.BookingURL != "" {
		opt.BookingURL = *rec.BookingURL
	}
	return opt
}

// normalizeSegments copies segments with all outbound-leg hops ahead of the
// return-leg ones, keeping provider order within a leg.
func normalizeSegments(in []models.Segment) []models.Segment {
	out := make([]models.Segment, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Leg < out[j].Leg
	})
	return out
}

func airlines(rec providers.Record) []string {
	names := rec.Airlines
	if len(names) == 0 {
		for _, s := range rec.Segments {
			if s.Airline != nil {
				names = append(names, *s.Airline)
			}
		}
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
