package sources

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// RecordAPIServer serves stored validation runs over HTTP. It is read only.
type RecordAPIServer struct {
	store *RecordStore
	log   zerolog.Logger
}

// NewRecordAPIServer creates a new record API server.
func NewRecordAPIServer(store *RecordStore, log zerolog.Logger) *RecordAPIServer {
	return &RecordAPIServer{
		store: store,
		log:   log,
	}
}

// SetupRouter configures the Echo router with all record API routes.
func (s *RecordAPIServer) SetupRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.log.Info()
			if v.Error != nil {
				event = s.log.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Int64("latency_ms", v.Latency.Milliseconds()).
				Msg("Request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(corsMiddleware)

	api := e.Group("/api/v1")
	api.GET("/runs", s.HandleListRuns)
	api.GET("/runs/latest", s.HandleLatestRun)
	api.GET("/runs/:id", s.HandleGetRun)
	api.GET("/runs/:id/records", s.HandleListRecords)

	return e
}

func corsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request().Method == http.MethodOptions {
			return c.NoContent(http.StatusOK)
		}
		return next(c)
	}
}

// ListRunsResponse represents the response for GET /api/v1/runs.
type ListRunsResponse struct {
	Runs  []Run `json:"runs"`
	Total int   `json:"total"`
}

// ListRecordsResponse represents the response for GET
// /api/v1/runs/{id}/records.
type ListRecordsResponse struct {
	RunID   uuid.UUID `json:"run_id"`
	Records []Record  `json:"records"`
	Total   int       `json:"total"`
}

// ErrorDetail is the body of an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps every non 2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

func errorResponse(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// handleError maps domain errors to HTTP responses.
func (s *RecordAPIServer) handleError(c echo.Context, err error) error {
	if errors.Is(err, ErrRunNotFound) {
		return errorResponse(c, http.StatusNotFound, "not_found", err.Error())
	}
	s.log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("Request failed")
	return errorResponse(c, http.StatusInternalServerError, "internal_error", "Failed to process request")
}

// HandleListRuns handles GET /api/v1/runs.
func (s *RecordAPIServer) HandleListRuns(c echo.Context) error {
	runs, err := s.store.ListRuns()
	if err != nil {
		return s.handleError(c, err)
	}
	if runs == nil {
		runs = []Run{}
	}

	return c.JSON(http.StatusOK, ListRunsResponse{Runs: runs, Total: len(runs)})
}

// HandleLatestRun handles GET /api/v1/runs/latest.
func (s *RecordAPIServer) HandleLatestRun(c echo.Context) error {
	run, err := s.store.LatestRun()
	if err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// HandleGetRun handles GET /api/v1/runs/{id}.
func (s *RecordAPIServer) HandleGetRun(c echo.Context) error {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "bad_request", "Invalid run ID")
	}

	run, err := s.store.GetRun(runID)
	if err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// HandleListRecords handles GET /api/v1/runs/{id}/records. Query parameters
// usable, country and limit narrow the listing.
func (s *RecordAPIServer) HandleListRecords(c echo.Context) error {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "bad_request", "Invalid run ID")
	}

	if _, err := s.store.GetRun(runID); err != nil {
		return s.handleError(c, err)
	}

	filter := RecordFilter{}
	if usableParam := c.QueryParam("usable"); usableParam != "" {
		usable, err := strconv.ParseBool(usableParam)
		if err != nil {
			return errorResponse(c, http.StatusBadRequest, "validation_error", "usable must be true or false")
		}
		filter.Usable = &usable
	}
	if country := c.QueryParam("country"); country != "" {
		filter.Country = &country
	}
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			return errorResponse(c, http.StatusBadRequest, "validation_error", "limit must be a non negative integer")
		}
		filter.Limit = limit
	}

	records, err := s.store.ListRecords(runID, filter)
	if err != nil {
		return s.handleError(c, err)
	}
	if records == nil {
		records = []Record{}
	}

	return c.JSON(http.StatusOK, ListRecordsResponse{
		RunID:   runID,
		Records: records,
		Total:   len(records),
	})
}
