package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetwise/meetwise/internal/daytime"
	apperrors "github.com/meetwise/meetwise/internal/errors"
	"github.com/meetwise/meetwise/internal/extract"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"google":    s.service.Connected(),
		"timestamp": s.now().Unix(),
	})
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(ErrorResponse{Error: "invalid request body"})
	}

	ref := s.now().In(s.location)
	if req.Reference != "" {
		parsed, err := time.Parse(time.RFC3339, req.Reference)
		if err != nil {
			return c.Status(400).JSON(ErrorResponse{Error: "reference must be RFC 3339"})
		}
		ref = parsed.In(s.location)
	}

	meeting, err := s.extractor.Extract(req.Message, ref)
	if err != nil {
		return s.extractionError(c, err)
	}
	s.metrics.RecordExtraction(string(meeting.Action), true)

	outcome, err := s.service.Apply(c.Context(), meeting)
	if err != nil {
		if errors.Is(err, apperrors.ErrEventNotFound) {
			return c.Status(404).JSON(ErrorResponse{
				Error: "no matching meeting found",
				Code:  apperrors.ErrEventNotFound.Code,
			})
		}
		s.logger.Error("Failed to apply meeting request",
			zap.String("action", string(meeting.Action)), zap.Error(err))
		return c.Status(500).JSON(ErrorResponse{
			Error: "failed to apply request",
			Code:  apperrors.GetCode(err),
		})
	}

	return c.JSON(ChatResponse{Request: meeting, Outcome: outcome})
}

func (s *Server) extractionError(c *fiber.Ctx, err error) error {
	var exErr *extract.ExtractionError
	if errors.As(err, &exErr) {
		s.metrics.RecordExtraction("", false)
		s.metrics.RecordParseFailure(apperrors.GetCode(exErr))
		return c.Status(422).JSON(ErrorResponse{
			Error:   exErr.Error(),
			Code:    apperrors.GetCode(exErr),
			Missing: exErr.Missing,
			Prompt:  exErr.Prompt,
		})
	}
	if errors.Is(err, apperrors.ErrEmptySentence) {
		return c.Status(400).JSON(ErrorResponse{
			Error: "message is required",
			Code:  apperrors.ErrEmptySentence.Code,
		})
	}

	s.logger.Error("Extraction failed", zap.Error(err))
	return c.Status(500).JSON(ErrorResponse{
		Error: "extraction failed",
		Code:  apperrors.GetCode(err),
	})
}

func (s *Server) handleListEvents(c *fiber.Ctx) error {
	when := c.Query("when")
	if when == "" {
		limit := c.QueryInt("limit", 10)
		events, err := s.service.UpcomingEvents(limit)
		if err != nil {
			return c.Status(500).JSON(ErrorResponse{Error: "failed to list events"})
		}
		return c.JSON(fiber.Map{"events": events, "total": len(events)})
	}

	ref := s.now().In(s.location)
	expr, err := daytime.New(ref).Parse(when)
	if err != nil {
		var clarify *daytime.ClarificationError
		if errors.As(err, &clarify) {
			return c.Status(422).JSON(ErrorResponse{
				Error:  err.Error(),
				Code:   apperrors.GetCode(err),
				Prompt: clarify.Prompt,
			})
		}
		return c.Status(400).JSON(ErrorResponse{
			Error: "could not understand that date",
			Code:  apperrors.GetCode(err),
		})
	}

	events, err := s.service.EventsForDay(expr.Start)
	if err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: "failed to list events"})
	}
	return c.JSON(fiber.Map{
		"day":    expr.Start.Format("2006-01-02"),
		"events": events,
		"total":  len(events),
	})
}

func (s *Server) handleGoogleAuth(c *fiber.Ctx) error {
	state := uuid.NewString()
	url, err := s.service.ConnectURL(state)
	if err != nil {
		return c.Status(503).JSON(ErrorResponse{
			Error: "google oauth is not configured",
			Code:  apperrors.GetCode(err),
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     "oauth_state",
		Value:    state,
		HTTPOnly: true,
		MaxAge:   300,
	})
	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

func (s *Server) handleGoogleCallback(c *fiber.Ctx) error {
	if errParam := c.Query("error"); errParam != "" {
		return c.Status(400).JSON(ErrorResponse{Error: "google denied access: " + errParam})
	}

	if state := c.Query("state"); state == "" || state != c.Cookies("oauth_state") {
		return c.Status(400).JSON(ErrorResponse{Error: "oauth state mismatch"})
	}

	code := c.Query("code")
	if code == "" {
		return c.Status(400).JSON(ErrorResponse{Error: "missing authorization code"})
	}

	if err := s.service.CompleteConnect(c.Context(), code); err != nil {
		s.logger.Error("OAuth exchange failed", zap.Error(err))
		return c.Status(502).JSON(ErrorResponse{
			Error: "failed to complete google connection",
			Code:  apperrors.GetCode(err),
		})
	}

	// Prime the local cache in the background.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		_, err := s.service.SyncFromGoogle(ctx)
		s.metrics.RecordSyncRun(err)
		if err != nil {
			s.logger.Warn("Initial sync failed", zap.Error(err))
		}
	}()

	return c.JSON(fiber.Map{"connected": true})
}
