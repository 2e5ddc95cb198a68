package providers

import (
	"regexp"
	"strconv"

	"github.com/dharmasatrya/flightfinder/internal/models"
	"github.com/dharmasatrya/flightfinder/internal/timezone"
)

// legSpanMinutes sums first-departure to last-arrival per leg, layovers
// included. It is nil when any endpoint airport has no known zone, since the
// wall-clock difference would then be meaningless.
func legSpanMinutes(segments []models.Segment) *int {
	if len(segments) == 0 {
		return nil
	}
	total := 0
	start := 0
	for i := range segments {
		if i+1 < len(segments) && segments[i+1].Leg == segments[i].Leg {
			continue
		}
		first, last := segments[start], segments[i]
		if _, ok := timezone.LocationByAirport(first.Origin.Code); !ok {
			return nil
		}
		if _, ok := timezone.LocationByAirport(last.Destination.Code); !ok {
			return nil
		}
		total += int(last.Arrival.Sub(first.Departure).Minutes())
		start = i + 1
	}
	return &total
}

// countStops counts intermediate landings for segment-level data: one fewer
// than the number of hops in each leg.
func countStops(segments []models.Segment) *int {
	if len(segments) == 0 {
		return nil
	}
	legs := map[int]struct{}{}
	for _, s := range segments {
		legs[s.Leg] = struct{}{}
	}
	n := len(segments) - len(legs)
	return &n
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:\d+S)?)?$`)

// parseISODuration reads the PT5H30M durations used by GDS-style APIs.
func parseISODuration(s string) *int {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return nil
	}
	total := 0
	for i, mult := range []int{24 * 60, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		v, _ := strconv.Atoi(m[i+1])
		total += v * mult
	}
	return &total
}
