package ranking

import (
	"math"

	"github.com/dharmasatrya/flightfinder/internal/models"
)

const (
	PriceWeight    = 0.5
	DurationWeight = 0.3
	StopsWeight    = 0.2
)

// Scores computes a best-value score for each option, aligned by index. Nil
// entries mark options whose price or duration is unknown; they cannot be
// scored and sort after every scored option.
func Scores(options []models.FlightOption) []*float64 {
	maxPrice := findMaxPrice(options)
	maxDuration := findMaxDuration(options)

	scores := make([]*float64, len(options))
	for i, o := range options {
		if o.Price == nil || o.TotalDurationMinutes == nil {
			continue
		}
		s := BestValue(o, maxPrice, maxDuration)
		scores[i] = &s
	}
	return scores
}

// BestValue scores one option against the maxima of its result set. Lower
// score = better value. An unknown stop count is not penalized.
func BestValue(o models.FlightOption, maxPrice, maxDuration float64) float64 {
	priceScore := 0.0
	if maxPrice > 0 && o.Price != nil {
		priceScore = (o.Price.Amount / maxPrice) * 100
	}

	durationScore := 0.0
	if maxDuration > 0 && o.TotalDurationMinutes != nil {
		durationScore = (float64(*o.TotalDurationMinutes) / maxDuration) * 100
	}

	stopsScore := 0.0
	if o.Stops != nil {
		stopsScore = float64(*o.Stops) * 15
	}
	score := (priceScore * PriceWeight) + (durationScore * DurationWeight) + (stopsScore * StopsWeight)

	return math.Round(score*100) / 100
}

// Cheapest returns the lowest-priced option. Options without a price are
// never picked; ok is false when no option has one.
func Cheapest(options []models.FlightOption) (models.FlightOption, bool) {
	var (
		best  models.FlightOption
		found bool
	)
	for _, o := range options {
		if o.Price == nil {
			continue
		}
		if !found || o.Price.Amount < best.Price.Amount {
			best, found = o, true
		}
	}
	return best, found
}

func findMaxPrice(options []models.FlightOption) float64 {
	maxPrice := 0.0
	for _, o := range options {
		if o.Price != nil && o.Price.Amount > maxPrice {
			maxPrice = o.Price.Amount
		}
	}
	return maxPrice
}

func findMaxDuration(options []models.FlightOption) float64 {
	maxDuration := 0.0
	for _, o := range options {
		if o.TotalDurationMinutes == nil {
			continue
		}
		if dur := float64(*o.TotalDurationMinutes); dur > maxDuration {
			maxDuration = dur
		}
	}
	return maxDuration
}
