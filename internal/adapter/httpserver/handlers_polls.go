package httpserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/pollpulse/internal/domain"
	apperrors "github.com/pscheid92/pollpulse/internal/platform/errors"
)

// pollResponse decorates a poll with its lifecycle status at response
// time. Status is derived, never stored, so it is attached here and
// nowhere else.
type pollResponse struct {
	*domain.Poll
	Status domain.PollStatus `json:"status"`
}

func (s *Server) presentPoll(poll *domain.Poll) pollResponse {
	return pollResponse{Poll: poll, Status: poll.StatusAt(s.clock.Now())}
}

func (s *Server) presentPolls(polls []*domain.Poll) []pollResponse {
	out := make([]pollResponse, len(polls))
	for i, poll := range polls {
		out[i] = s.presentPoll(poll)
	}
	return out
}

type createPollRequest struct {
	Title     string    `json:"title"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Options   []string  `json:"options"`
}

type updatePollRequest struct {
	Title     *string    `json:"title"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	Options   []string   `json:"options"`
}

func (s *Server) handleListPolls(c echo.Context) error {
	polls, err := s.app.ListPolls(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.presentPolls(polls))
}

func (s *Server) handleGetPoll(c echo.Context) error {
	id, err := parsePollID(c)
	if err != nil {
		return err
	}

	poll, err := s.app.GetPoll(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.presentPoll(poll))
}

func (s *Server) handleCreatePoll(c echo.Context) error {
	var req createPollRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	poll, err := s.app.CreatePoll(c.Request().Context(), req.Title, req.StartDate, req.EndDate, req.Options)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s.presentPoll(poll))
}

func (s *Server) handleUpdatePoll(c echo.Context) error {
	id, err := parsePollID(c)
	if err != nil {
		return err
	}

	var req updatePollRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	poll, err := s.app.UpdatePoll(c.Request().Context(), id, domain.PollUpdate{
		Title:     req.Title,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Options:   req.Options,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.presentPoll(poll))
}

func (s *Server) handleDeletePoll(c echo.Context) error {
	id, err := parsePollID(c)
	if err != nil {
		return err
	}

	if err := s.app.DeletePoll(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func parsePollID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid poll id")
	}
	return id, nil
}
