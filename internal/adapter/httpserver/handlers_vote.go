package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/pscheid92/pollpulse/internal/domain"
	apperrors "github.com/pscheid92/pollpulse/internal/platform/errors"
)

type voteRequest struct {
	OptionID uuid.UUID `json:"optionId"`
}

type resultsResponse struct {
	PollID  uuid.UUID      `json:"pollId"`
	Results domain.Results `json:"results"`
}

func (s *Server) handleVote(c echo.Context) error {
	pollID, err := parsePollID(c)
	if err != nil {
		return err
	}

	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.OptionID == uuid.Nil {
		return apperrors.ValidationError("optionId is required")
	}

	results, err := s.app.Vote(c.Request().Context(), pollID, req.OptionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resultsResponse{PollID: pollID, Results: results})
}

// pollResultsResponse pairs the poll with its tallies, mirroring what
// the votesUpdated notification carries plus the poll itself.
type pollResultsResponse struct {
	Poll    pollResponse   `json:"poll"`
	Results domain.Results `json:"results"`
}

func (s *Server) handleResults(c echo.Context) error {
	pollID, err := parsePollID(c)
	if err != nil {
		return err
	}

	poll, results, err := s.app.Results(c.Request().Context(), pollID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pollResultsResponse{Poll: s.presentPoll(poll), Results: results})
}

// voteRateLimiter throttles vote submissions per client IP. It guards
// against scripted vote flooding, not against repeat voters: voting
// more than once is allowed.
func (s *Server) voteRateLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:  rate.Limit(s.config.VoteRateLimit),
			Burst: s.config.VoteRateBurst,
		}),
	})
}
