package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cadence/internal/orchestrator"
	"github.com/fyrsmithlabs/cadence/internal/plan"
	"github.com/fyrsmithlabs/cadence/internal/profile"
	"github.com/fyrsmithlabs/cadence/internal/schedule"
)

// handleHealth reports liveness plus the state of each registered
// component.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	if len(s.config.Components) > 0 {
		resp.Components = make(map[string]string, len(s.config.Components))
		for name, status := range s.config.Components {
			resp.Components[name] = status()
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// handleDecision serves GET /api/v1/users/:user/decision?date=&purpose=.
//
// A decision whose plan side effect failed is still a 200; the header
// tells the client what did not stick.
func (s *Server) handleDecision(c echo.Context) error {
	purpose := orchestrator.PurposeDashboard
	if p := c.QueryParam("purpose"); p != "" {
		purpose = orchestrator.Purpose(p)
	}
	var date time.Time
	if q := c.QueryParam("date"); q != "" {
		d, err := plan.ParseDate(q, time.UTC)
		if err != nil {
			return s.fail(c, errBadDate)
		}
		date = d
	}

	ctx := c.Request().Context()
	d, err := s.svc.GetDailyDecision(ctx, purpose, c.Param("user"), date)
	if err != nil {
		if d == nil {
			return s.fail(c, err)
		}
		switch {
		case errors.Is(err, orchestrator.ErrPersistence):
			c.Response().Header().Set(DegradedHeader, DegradedPersistence)
		case errors.Is(err, schedule.ErrScheduleConflict):
			c.Response().Header().Set(DegradedHeader, DegradedConflict)
		default:
			return s.fail(c, err)
		}
		s.logger.Warn(ctx, "decision served without plan update", zap.Error(err))
	}
	return c.JSON(http.StatusOK, d)
}

func (s *Server) handlePlan(c echo.Context) error {
	p, err := s.svc.GetWeeklyPlan(c.Request().Context(), c.Param("user"))
	return s.planResponse(c, p, err)
}

func (s *Server) handleRegenerate(c echo.Context) error {
	p, err := s.svc.RegeneratePlan(c.Request().Context(), c.Param("user"))
	return s.planResponse(c, p, err)
}

// handleComplete accepts an optional feedback body.
func (s *Server) handleComplete(c echo.Context) error {
	var fb plan.Feedback
	if err := c.Bind(&fb); err != nil {
		return s.fail(c, errBadBody)
	}
	p, err := s.svc.MarkWorkoutComplete(c.Request().Context(), c.Param("user"), c.Param("date"), fb)
	return s.planResponse(c, p, err)
}

func (s *Server) handleMiss(c echo.Context) error {
	p, err := s.svc.MarkWorkoutMissed(c.Request().Context(), c.Param("user"), c.Param("date"))
	return s.planResponse(c, p, err)
}

func (s *Server) handleEditDay(c echo.Context) error {
	var upd plan.DayUpdate
	if err := c.Bind(&upd); err != nil {
		return s.fail(c, errBadBody)
	}
	p, err := s.svc.EditDay(c.Request().Context(), c.Param("user"), c.Param("date"), upd)
	return s.planResponse(c, p, err)
}

// handleSaveProfile upserts the profile. The path user wins over any
// user_id in the body.
func (s *Server) handleSaveProfile(c echo.Context) error {
	var p profile.Profile
	if err := c.Bind(&p); err != nil {
		return s.fail(c, errBadBody)
	}
	p.UserID = c.Param("user")
	if err := s.svc.SaveProfile(c.Request().Context(), p); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRecordLog(c echo.Context) error {
	var l profile.DailyLog
	if err := c.Bind(&l); err != nil {
		return s.fail(c, errBadBody)
	}
	l.UserID = c.Param("user")
	if err := s.svc.RecordLog(c.Request().Context(), l); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) planResponse(c echo.Context, p *plan.WeeklyPlan, err error) error {
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, PlanResponse{Plan: p})
}
