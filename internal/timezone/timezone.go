package timezone

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

var airportZones = map[string]string{
	// United States
	"ATL": "America/New_York",
	"BOS": "America/New_York",
	"JFK": "America/New_York",
	"LGA": "America/New_York",
	"EWR": "America/New_York",
	"IAD": "America/New_York",
	"DCA": "America/New_York",
	"MIA": "America/New_York",
	"MCO": "America/New_York",
	"CLT": "America/New_York",
	"DTW": "America/Detroit",
	"ORD": "America/Chicago",
	"MDW": "America/Chicago",
	"DFW": "America/Chicago",
	"IAH": "America/Chicago",
	"AUS": "America/Chicago",
	"MSP": "America/Chicago",
	"DEN": "America/Denver",
	"SLC": "America/Denver",
	"PHX": "America/Phoenix",
	"LAS": "America/Los_Angeles",
	"LAX": "America/Los_Angeles",
	"SFO": "America/Los_Angeles",
	"SJC": "America/Los_Angeles",
	"OAK": "America/Los_Angeles",
	"SAN": "America/Los_Angeles",
	"SEA": "America/Los_Angeles",
	"PDX": "America/Los_Angeles",
	"BNA": "America/Chicago",
	"MSY": "America/Chicago",
	"STL": "America/Chicago",
	"MCI": "America/Chicago",
	"SAT": "America/Chicago",
	"HOU": "America/Chicago",
	"PHL": "America/New_York",
	"PIT": "America/New_York",
	"BWI": "America/New_York",
	"FLL": "America/New_York",
	"TPA": "America/New_York",
	"RDU": "America/New_York",
	"CLE": "America/New_York",
	"IND": "America/Indiana/Indianapolis",
	"SMF": "America/Los_Angeles",
	"BUR": "America/Los_Angeles",
	"SNA": "America/Los_Angeles",
	"ONT": "America/Los_Angeles",
	"BOI": "America/Boise",
	"ABQ": "America/Denver",
	"TUS": "America/Phoenix",
	"HNL": "Pacific/Honolulu",
	"OGG": "Pacific/Honolulu",
	"KOA": "Pacific/Honolulu",
	"LIH": "Pacific/Honolulu",
	"ITO": "Pacific/Honolulu",
	"ANC": "America/Anchorage",
	"FAI": "America/Anchorage",
	"SJU": "America/Puerto_Rico",

	// Canada and Mexico
	"YYZ": "America/Toronto",
	"YUL": "America/Toronto",
	"YVR": "America/Vancouver",
	"YYC": "America/Edmonton",
	"YEG": "America/Edmonton",
	"YOW": "America/Toronto",
	"YHZ": "America/Halifax",
	"GDL": "America/Mexico_City",
	"SJD": "America/Mazatlan",
	"PVR": "America/Mexico_City",
	"MEX": "America/Mexico_City",
	"CUN": "America/Cancun",

	// Europe
	"LHR": "Europe/London",
	"LGW": "Europe/London",
	"DUB": "Europe/Dublin",
	"CDG": "Europe/Paris",
	"ORY": "Europe/Paris",
	"AMS": "Europe/Amsterdam",
	"FRA": "Europe/Berlin",
	"MUC": "Europe/Berlin",
	"MAD": "Europe/Madrid",
	"BCN": "Europe/Madrid",
	"FCO": "Europe/Rome",
	"ZRH": "Europe/Zurich",
	"LIS": "Europe/Lisbon",
	"IST": "Europe/Istanbul",
	"STN": "Europe/London",
	"MAN": "Europe/London",
	"EDI": "Europe/London",
	"NCE": "Europe/Paris",
	"BRU": "Europe/Brussels",
	"BER": "Europe/Berlin",
	"DUS": "Europe/Berlin",
	"HAM": "Europe/Berlin",
	"VIE": "Europe/Vienna",
	"CPH": "Europe/Copenhagen",
	"ARN": "Europe/Stockholm",
	"OSL": "Europe/Oslo",
	"HEL": "Europe/Helsinki",
	"KEF": "Atlantic/Reykjavik",
	"WAW": "Europe/Warsaw",
	"PRG": "Europe/Prague",
	"BUD": "Europe/Budapest",
	"ATH": "Europe/Athens",
	"MXP": "Europe/Rome",
	"VCE": "Europe/Rome",
	"GVA": "Europe/Zurich",
	"OPO": "Europe/Lisbon",
	"PMI": "Europe/Madrid",
	"AGP": "Europe/Madrid",

	// Middle East, Asia, Oceania
	"DXB": "Asia/Dubai",
	"AUH": "Asia/Dubai",
	"TLV": "Asia/Jerusalem",
	"CAI": "Africa/Cairo",
	"JNB": "Africa/Johannesburg",
	"CPT": "Africa/Johannesburg",
	"NBO": "Africa/Nairobi",
	"ADD": "Africa/Addis_Ababa",
	"LOS": "Africa/Lagos",
	"CMN": "Africa/Casablanca",
	"GRU": "America/Sao_Paulo",
	"GIG": "America/Sao_Paulo",
	"EZE": "America/Argentina/Buenos_Aires",
	"SCL": "America/Santiago",
	"LIM": "America/Lima",
	"BOG": "America/Bogota",
	"PTY": "America/Panama",
	"SJO": "America/Costa_Rica",
	"DOH": "Asia/Qatar",
	"DEL": "Asia/Kolkata",
	"BOM": "Asia/Kolkata",
	"SIN": "Asia/Singapore",
	"HKG": "Asia/Hong_Kong",
	"TPE": "Asia/Taipei",
	"MNL": "Asia/Manila",
	"SGN": "Asia/Ho_Chi_Minh",
	"HAN": "Asia/Ho_Chi_Minh",
	"KIX": "Asia/Tokyo",
	"CAN": "Asia/Shanghai",
	"PKX": "Asia/Shanghai",
	"BLR": "Asia/Kolkata",
	"CMB": "Asia/Colombo",
	"MLE": "Indian/Maldives",
	"NRT": "Asia/Tokyo",
	"HND": "Asia/Tokyo",
	"ICN": "Asia/Seoul",
	"PEK": "Asia/Shanghai",
	"PVG": "Asia/Shanghai",
	"BKK": "Asia/Bangkok",
	"KUL": "Asia/Kuala_Lumpur",
	"CGK": "Asia/Jakarta",
	"SUB": "Asia/Jakarta",
	"DPS": "Asia/Makassar",
	"UPG": "Asia/Makassar",
	"DJJ": "Asia/Jayapura",
	"SYD": "Australia/Sydney",
	"MEL": "Australia/Melbourne",
	"BNE": "Australia/Brisbane",
	"PER": "Australia/Perth",
	"ADL": "Australia/Adelaide",
	"NAN": "Pacific/Fiji",
	"PPT": "Pacific/Tahiti",
	"AKL": "Pacific/Auckland",
}

var (
	locCache   = map[string]*time.Location{}
	locCacheMu sync.RWMutex
)

// ZoneName returns the IANA zone name of an airport, or nil when the airport
// is not in the table.
func ZoneName(code string) *string {
	if _, ok := LocationByAirport(code); !ok {
		return nil
	}
	name := airportZones[strings.ToUpper(code)]
	return &name
}

// LocationByAirport returns the IANA zone of an airport. The second result
// is false for airports missing from the table, in which case UTC is
// returned and wall-clock times parsed with it carry no real offset.
func LocationByAirport(code string) (*time.Location, bool) {
	name, ok := airportZones[strings.ToUpper(code)]
	if !ok {
		return time.UTC, false
	}

	locCacheMu.RLock()
	loc, cached := locCache[name]
	locCacheMu.RUnlock()
	if cached {
		return loc, true
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, false
	}
	locCacheMu.Lock()
	locCache[name] = loc
	locCacheMu.Unlock()
	return loc, true
}

// ParseLocal parses a provider timestamp for the given airport. Timestamps
// with an explicit offset are converted to the airport's zone, or keep their
// own offset when the airport is unknown. Bare wall-clock timestamps are
// interpreted in the airport's zone.
func ParseLocal(value, airport string) (time.Time, error) {
	value = strings.TrimSpace(value)
	loc, known := LocationByAirport(airport)

	offsetFormats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05-0700",
		"2006-01-02T15:04-07:00",
	}
	for _, format := range offsetFormats {
		if t, err := time.Parse(format, value); err == nil {
			if !known {
				return t, nil
			}
			return t.In(loc), nil
		}
	}

	localFormats := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
	for _, format := range localFormats {
		if t, err := time.ParseInLocation(format, value, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &time.ParseError{
		Value:   value,
		Message: ": unable to parse time string",
	}
}

// ParseClock parses the scraper's "8:30 AM on Mon, Dec 15" form. The year is
// taken from ref, rolling forward when the month/day would otherwise land
// well before ref (a December search returning January flights).
func ParseClock(value string, ref time.Time, airport string) (time.Time, error) {
	value = strings.Join(strings.Fields(strings.NewReplacer("\u202f", " ", "\u00a0", " ").Replace(value)), " ")
	loc, _ := LocationByAirport(airport)

	layouts := []string{
		"3:04 PM on Mon, Jan 2",
		"3:04 PM on Mon, January 2",
		"3:04PM on Mon, Jan 2",
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		year := ref.Year()
		candidate := time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		if candidate.Before(ref.AddDate(0, -6, 0)) {
			candidate = candidate.AddDate(1, 0, 0)
		}
		return candidate, nil
	}

	return time.Time{}, &time.ParseError{
		Value:   value,
		Message: ": unable to parse clock time",
	}
}

// FromParts builds a wall-clock time at an airport from date and time tuples.
func FromParts(year, month, day, hour, minute int, airport string) time.Time {
	loc, _ := LocationByAirport(airport)
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
}
