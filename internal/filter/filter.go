package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/dharmasatrya/flightfinder/internal/models"
	"github.com/dharmasatrya/flightfinder/internal/ranking"
)

// Apply filters and orders options. The input slice is not modified. An
// option whose value for a filtered field is unknown is kept, and unknown
// values sort after known ones in either order.
func Apply(options []models.FlightOption, filters *models.SearchFilters, sortBy, sortOrder string) []models.FlightOption {
	filtered := applyFilters(options, filters)
	return applySort(filtered, sortBy, sortOrder)
}

func applyFilters(options []models.FlightOption, filters *models.SearchFilters) []models.FlightOption {
	result := make([]models.FlightOption, 0, len(options))
	for _, o := range options {
		if filters == nil || matchesFilters(o, filters) {
			result = append(result, o)
		}
	}
	return result
}

func matchesFilters(o models.FlightOption, filters *models.SearchFilters) bool {
	if o.Price != nil {
		if filters.PriceMin != nil && o.Price.Amount < *filters.PriceMin {
			return false
		}
		if filters.PriceMax != nil && o.Price.Amount > *filters.PriceMax {
			return false
		}
	}

	if filters.MaxStops != nil && o.Stops != nil && *o.Stops > *filters.MaxStops {
		return false
	}

	if len(filters.Airlines) > 0 && len(o.Airlines) > 0 && !anyAirline(o.Airlines, filters.Airlines) {
		return false
	}

	if dep, ok := o.FirstDeparture(); ok {
		if !withinWindow(dep, filters.DepartureTimeMin, filters.DepartureTimeMax) {
			return false
		}
	}
	if arr, ok := o.FinalArrival(); ok {
		if !withinWindow(arr, filters.ArrivalTimeMin, filters.ArrivalTimeMax) {
			return false
		}
	}

	if filters.MaxDuration != nil && o.TotalDurationMinutes != nil && *o.TotalDurationMinutes > *filters.MaxDuration {
		return false
	}

	return true
}

// anyAirline matches airline names case-insensitively.
func anyAirline(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(w)) {
				return true
			}
		}
	}
	return false
}

// withinWindow checks the local time of day of t against optional "HH:MM"
// bounds. Unparseable bounds are ignored.
func withinWindow(t time.Time, from, to *string) bool {
	minutes := t.Hour()*60 + t.Minute()
	if from != nil {
		if lo, err := parseTimeOfDay(*from); err == nil && minutes < lo {
			return false
		}
	}
	if to != nil {
		if hi, err := parseTimeOfDay(*to); err == nil && minutes > hi {
			return false
		}
	}
	return true
}

func parseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// key extracts the sort value of an option; ok is false when it is unknown.
type key func(o models.FlightOption) (float64, bool)

func priceKey(o models.FlightOption) (float64, bool) {
	if o.Price == nil {
		return 0, false
	}
	return o.Price.Amount, true
}

func durationKey(o models.FlightOption) (float64, bool) {
	if o.TotalDurationMinutes == nil {
		return 0, false
	}
	return float64(*o.TotalDurationMinutes), true
}

func stopsKey(o models.FlightOption) (float64, bool) {
	if o.Stops == nil {
		return 0, false
	}
	return float64(*o.Stops), true
}

func departureKey(o models.FlightOption) (float64, bool) {
	t, ok := o.FirstDeparture()
	return float64(t.Unix()), ok
}

func arrivalKey(o models.FlightOption) (float64, bool) {
	t, ok := o.FinalArrival()
	return float64(t.Unix()), ok
}

func applySort(options []models.FlightOption, sortBy, sortOrder string) []models.FlightOption {
	if len(options) == 0 {
		return options
	}

	ascending := strings.ToLower(sortOrder) != "desc"

	type entry struct {
		option models.FlightOption
		value  float64
		known  bool
	}
	entries := make([]entry, len(options))

	switch strings.ToLower(sortBy) {
	case "best_value":
		for i, s := range ranking.Scores(options) {
			entries[i] = entry{option: options[i]}
			if s != nil {
				entries[i].value, entries[i].known = *s, true
			}
		}
	default:
		k := sortKey(sortBy)
		for i, o := range options {
			v, ok := k(o)
			entries[i] = entry{option: o, value: v, known: ok}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case !a.known || !b.known:
			return a.known && !b.known
		case ascending:
			return a.value < b.value
		default:
			return a.value > b.value
		}
	})

	for i, e := range entries {
		options[i] = e.option
	}
	return options
}

func sortKey(sortBy string) key {
	switch strings.ToLower(sortBy) {
	case "duration":
		return durationKey
	case "departure":
		return departureKey
	case "arrival":
		return arrivalKey
	case "stops":
		return stopsKey
	default:
		return priceKey
	}
}
