package handler

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightfinder/internal/models"
)

func (h *SearchHandler) DateRange(c echo.Context) error {
	var req models.DateRangeRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, KindInvalidRequest, "Failed to parse request body")
	}
	resp, err := h.service.SearchDateRange(c.Request().Context(), req)
	if err != nil {
		return h.searchError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SearchHandler) NearbyAirports(c echo.Context) error {
	var req models.NearbyAirportsRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, KindInvalidRequest, "Failed to parse request body")
	}
	resp, err := h.service.CompareNearbyAirports(c.Request().Context(), req)
	if err != nil {
		return h.searchError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SearchHandler) CompareTickets(c echo.Context) error {
	var req models.TicketComparisonRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, KindInvalidRequest, "Failed to parse request body")
	}
	resp, err := h.service.CompareTickets(c.Request().Context(), req)
	if err != nil {
		return h.searchError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// TravelDates takes days_from_now (default 30) and trip_length (default 7).
func (h *SearchHandler) TravelDates(c echo.Context) error {
	days, err := intQuery(c, "days_from_now", 30)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, KindInvalidRequest, err.Error())
	}
	length, err := intQuery(c, "trip_length", 7)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, KindInvalidRequest, err.Error())
	}
	resp, err := h.service.TravelDates(days, length)
	if err != nil {
		return h.searchError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func intQuery(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Newf("%s must be an integer", name)
	}
	return n, nil
}
