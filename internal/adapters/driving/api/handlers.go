package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
	"github.com/custodia-labs/compliance-engine/internal/logger"
)

// handleTrigger runs a pending session. With ?async=true the run continues
// in the background after a 202 reply and callers poll the status route.
func (s *Server) handleTrigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validationDetailId must be a positive integer"})
		return
	}
	if s.cfg.Orchestrator == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "validation is not configured"})
		return
	}

	async, _ := strconv.ParseBool(c.Query("async"))
	if async {
		s.triggerAsync(c, req.ValidationDetailID)
		return
	}

	// A started session runs to completion even if the client goes away.
	summary, err := s.cfg.Orchestrator.Validate(context.WithoutCancel(c.Request.Context()), req.ValidationDetailID)
	if summary == nil {
		if err == nil {
			err = errors.New("no summary returned")
		}
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}

	resp := TriggerResponse{Summary: summary}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) triggerAsync(c *gin.Context, id int64) {
	session, err := s.cfg.Sessions.Session(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	if session.Status != domain.SessionPending {
		c.JSON(http.StatusConflict, ErrorResponse{Error: domain.ErrSessionNotPending.Error()})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		if _, err := s.cfg.Orchestrator.Validate(ctx, id); err != nil {
			logger.Warn("Session %d: background run: %v", id, err)
		}
	}()

	c.JSON(http.StatusAccepted, AcceptedResponse{ValidationDetailID: id, Status: "accepted"})
}

func (s *Server) handleStatus(c *gin.Context) {
	id, ok := sessionParam(c)
	if !ok {
		return
	}

	session, err := s.cfg.Sessions.Session(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, NewSessionView(session))
}

func (s *Server) handleResults(c *gin.Context) {
	id, ok := sessionParam(c)
	if !ok {
		return
	}

	results, err := s.cfg.Sessions.Results(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	if status := c.Query("status"); status != "" {
		want := domain.ParseResultStatus(status)
		filtered := results[:0:0]
		for i := range results {
			if results[i].Status == want {
				filtered = append(filtered, results[i])
			}
		}
		results = filtered
	}
	if results == nil {
		results = []domain.ValidationResult{}
	}
	c.JSON(http.StatusOK, ResultsResponse{ValidationDetailID: id, Results: results, Count: len(results)})
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.cfg.Ready != nil {
		if err := s.cfg.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func sessionParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid validation detail id"})
		return 0, false
	}
	return id, true
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionNotPending), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoDocuments), errors.Is(err, domain.ErrNoRequirements):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
