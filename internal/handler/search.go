package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dharmasatrya/flightfinder/internal/fallback"
	"github.com/dharmasatrya/flightfinder/internal/models"
)

const maxRequestBytes = 1 << 20

// Error kinds of request-level failures. Provider exhaustion uses
// fallback.KindAllProvidersFailed.
const (
	KindInvalidRequest  = "invalid_request"
	KindValidationError = "validation_error"
	KindInternal        = "internal_error"
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

type SearchHandler struct {
	service Service
	logger  *zap.Logger
}

func NewSearchHandler(service Service, logger *zap.Logger) *SearchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchHandler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the API routes on e.
func (h *SearchHandler) Register(e *echo.Echo) {
	api := e.Group("/api/v1")
	api.POST("/flights/search", h.Search)
	api.GET("/flights/url", h.BookingURL)
	api.GET("/providers", h.Providers)
	api.POST("/flights/date-range", h.DateRange)
	api.POST("/flights/nearby-airports", h.NearbyAirports)
	api.POST("/flights/compare-tickets", h.CompareTickets)
	api.GET("/travel-dates", h.TravelDates)
	e.GET("/health", HealthHandler)
}

type schemaErrorDetail struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (h *SearchHandler) Search(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxRequestBytes))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, KindInvalidRequest, "Failed to read request body: "+err.Error())
	}

	problems, err := validateSearchBody(body)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, KindInvalidRequest, "Failed to parse request body: "+err.Error())
	}
	if len(problems) > 0 {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: schemaErrorDetail{
			Kind:    KindInvalidRequest,
			Message: "Request body does not match the search schema",
			Details: problems,
		}})
	}

	var req models.SearchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return errorJSON(c, http.StatusBadRequest, KindInvalidRequest, "Failed to parse request body: "+err.Error())
	}

	resp, err := h.service.Search(c.Request().Context(), req)
	if err != nil {
		return h.searchError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SearchHandler) searchError(c echo.Context, err error) error {
	var ve models.ValidationError
	if errors.As(err, &ve) {
		return errorJSON(c, http.StatusBadRequest, KindValidationError, ve.Error())
	}

	var se *fallback.SearchError
	if errors.As(err, &se) {
		h.logger.Warn("all providers failed",
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Int("providers_tried", len(se.ProvidersTried)))
		return c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: se})
	}

	h.logger.Error("search failed", zap.Error(err))
	return errorJSON(c, http.StatusInternalServerError, KindInternal, "Failed to search flights")
}

// BookingURL builds the search URL from query parameters. Multi-city legs
// are passed as repeated leg=ORIGIN,DESTINATION,DATE values.
func (h *SearchHandler) BookingURL(c echo.Context) error {
	req, err := bookingRequest(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, KindInvalidRequest, err.Error())
	}

	resp, err := h.service.BookingURL(req)
	if err != nil {
		var ve models.ValidationError
		if errors.As(err, &ve) {
			return errorJSON(c, http.StatusBadRequest, KindValidationError, ve.Error())
		}
		h.logger.Error("building booking url failed", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, KindInternal, "Failed to build booking URL")
	}
	return c.JSON(http.StatusOK, resp)
}

func bookingRequest(c echo.Context) (models.SearchRequest, error) {
	req := models.SearchRequest{
		TripType:      models.TripType(c.QueryParam("trip_type")),
		Origin:        c.QueryParam("origin"),
		Destination:   c.QueryParam("destination"),
		DepartureDate: c.QueryParam("departure_date"),
		CabinClass:    models.CabinClass(c.QueryParam("cabin_class")),
	}
	if ret := c.QueryParam("return_date"); ret != "" {
		req.ReturnDate = &ret
	}

	counts := []struct {
		name string
		dst  *int
	}{
		{"adults", &req.Passengers.Adults},
		{"children", &req.Passengers.Children},
		{"infants_in_seat", &req.Passengers.InfantsInSeat},
		{"infants_on_lap", &req.Passengers.InfantsOnLap},
	}
	for _, p := range counts {
		v := c.QueryParam(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, errors.Newf("%s must be an integer", p.name)
		}
		*p.dst = n
	}

	for _, raw := range c.QueryParams()["leg"] {
		parts := strings.Split(raw, ",")
		if len(parts) != 3 {
			return req, errors.Newf("leg %q must be ORIGIN,DESTINATION,DATE", raw)
		}
		req.Legs = append(req.Legs, models.Leg{
			Origin:      strings.TrimSpace(parts[0]),
			Destination: strings.TrimSpace(parts[1]),
			Date:        strings.TrimSpace(parts[2]),
		})
	}
	return req, nil
}

func (h *SearchHandler) Providers(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"providers": h.service.Providers(),
	})
}

func errorJSON(c echo.Context, status int, kind, message string) error {
	return c.JSON(status, models.ErrorResponse{Error: models.ErrorDetail{
		Kind:    kind,
		Message: message,
	}})
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
