package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cadence/internal/orchestrator"
	"github.com/fyrsmithlabs/cadence/internal/profile"
	"github.com/fyrsmithlabs/cadence/internal/sanitize"
	"github.com/fyrsmithlabs/cadence/internal/schedule"
)

var (
	errBadBody = errors.New("invalid request body")
	errBadDate = errors.New("date must be YYYY-MM-DD")
)

var badRequest = []error{
	errBadBody,
	errBadDate,
	orchestrator.ErrInvalidPurpose,
	orchestrator.ErrEmptyUserID,
	schedule.ErrEmptyUserID,
	schedule.ErrInvalidDate,
	schedule.ErrEmptyUpdate,
	schedule.ErrInvalidUpdate,
	schedule.ErrFutureDay,
	profile.ErrEmptyUserID,
	profile.ErrInvalidDate,
	sanitize.ErrInvalidUserID,
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, schedule.ErrScheduleConflict),
		errors.Is(err, schedule.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, schedule.ErrDayNotFound),
		errors.Is(err, schedule.ErrPlanNotFound),
		errors.Is(err, profile.ErrProfileNotFound):
		return http.StatusNotFound
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// fail converts err into an echo error. Server errors are logged and their
// detail is not sent to the client.
func (s *Server) fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return echo.NewHTTPError(status, http.StatusText(status))
	}
	return echo.NewHTTPError(status, err.Error())
}
