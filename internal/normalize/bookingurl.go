package normalize

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dharmasatrya/flightfinder/internal/models"
)

const googleFlightsSearchURL = "https://www.google.com/travel/flights/search?q="

// BookingQuery renders the natural-language Google Flights query for req,
// e.g. "flights from SFO to LAX on 2025-12-15 through 2025-12-22 1 adult
// economy class".
func BookingQuery(req models.SearchRequest) string {
	var b strings.Builder
	switch req.TripType {
	case models.TripMultiCity:
		for i, leg := range req.Legs {
			if i == 0 {
				fmt.Fprintf(&b, "flights from %s to %s on %s", leg.Origin, leg.Destination, leg.Date)
				continue
			}
			fmt.Fprintf(&b, " then from %s to %s on %s", leg.Origin, leg.Destination, leg.Date)
		}
	case models.TripRoundTrip:
		ret := ""
		if req.ReturnDate != nil {
			ret = *req.ReturnDate
		}
		fmt.Fprintf(&b, "flights from %s to %s on %s through %s", req.Origin, req.Destination, req.DepartureDate, ret)
	default:
		fmt.Fprintf(&b, "flights from %s to %s on %s oneway", req.Origin, req.Destination, req.DepartureDate)
	}

	b.WriteString(" ")
	b.WriteString(passengerPhrase(req.Passengers))

	cabin := req.CabinClass
	if cabin == "" {
		cabin = models.CabinEconomy
	}
	b.WriteString(" ")
	b.WriteString(strings.ReplaceAll(string(cabin), "_", " "))
	b.WriteString(" class")
	return b.String()
}

// BookingURL is the deterministic Google Flights search link for req.
func BookingURL(req models.SearchRequest) string {
	return googleFlightsSearchURL + url.QueryEscape(BookingQuery(req))
}

func passengerPhrase(p models.Passengers) string {
	var parts []string
	add := func(n int, one, many string) {
		switch {
		case n == 1:
			parts = append(parts, "1 "+one)
		case n > 1:
			parts = append(parts, fmt.Sprintf("%d %s", n, many))
		}
	}
	add(p.Adults, "adult", "adults")
	add(p.Children, "child", "children")
	add(p.InfantsInSeat, "infant in seat", "infants in seat")
	add(p.InfantsOnLap, "infant on lap", "infants on lap")
	if len(parts) == 0 {
		return "1 adult"
	}
	return strings.Join(parts, " ")
}
