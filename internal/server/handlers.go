package server

import (
	"fmt"
	"net/http"
	"time"

	apperrors "hub-connectors/internal/common/errors"
	"hub-connectors/internal/common/metrics"
	"hub-connectors/internal/connectors"
	"hub-connectors/internal/dedup"
	"hub-connectors/pkg/card"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type commentRequest struct {
	Comment string `json:"comment" form:"comment"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(c echo.Context) error {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"status": "not ready",
				"error":  err.Error(),
				"time":   time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDiscovery(c echo.Context) error {
	if s.deps.Discovery == nil {
		return echo.NewHTTPError(http.StatusNotFound, "discovery metadata not configured")
	}
	doc := s.deps.Discovery
	if s.baseURL != "" {
		resolved, err := doc.Resolve(s.baseURL)
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		doc = resolved
	}
	return c.JSON(http.StatusOK, doc)
}

// handleCardRequest runs a connector and returns its cards. Each card's
// fingerprint is recorded; repeats are still returned so the hub can update
// in place. Cards that break the contract are dropped.
func (s *Server) handleCardRequest(c echo.Context) error {
	ctx := c.Request().Context()

	name := c.Param("connector")
	if name == "" {
		name = s.deps.DefaultConnector
	}
	conn, err := s.deps.Connectors.Get(name)
	if err != nil {
		return err
	}

	var req connectors.CardRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.NewInvalidCardRequestError(fmt.Sprintf("malformed card request: %v", err))
	}

	start := time.Now()
	cards, err := conn.Cards(ctx, &req)
	if err != nil {
		return err
	}

	cards = s.validCards(name, cards)
	s.remember(c, name, cards)
	s.deps.Observability.RecordCardsBuilt(ctx, name, len(cards), time.Since(start))

	return c.JSON(http.StatusOK, card.NewCards(cards...))
}

func (s *Server) validCards(connector string, cards []*card.Card) []*card.Card {
	out := make([]*card.Card, 0, len(cards))
	for _, cd := range cards {
		if cd == nil {
			continue
		}
		if s.deps.Validator == nil {
			out = append(out, cd)
			continue
		}
		result, err := s.deps.Validator.ValidateCard(cd)
		if err != nil {
			s.logger.Error("Card validation errored", map[string]interface{}{"connector": connector, "error": err})
			continue
		}
		if !result.Valid {
			metrics.CardValidationFailures.WithLabelValues(connector).Inc()
			s.logger.Warn("Dropping invalid card", map[string]interface{}{
				"connector": connector,
				"cardId":    cd.ID().String(),
				"errors":    result.Summary(),
			})
			continue
		}
		out = append(out, cd)
	}
	return out
}

// remember records fingerprints. A store failure is logged and does not fail
// the request.
func (s *Server) remember(c echo.Context, connector string, cards []*card.Card) {
	if !s.deps.Dedup.Enabled() {
		return
	}
	results, err := s.deps.Dedup.RememberAll(c.Request().Context(), cards)
	if err != nil {
		s.logger.Warn("Fingerprint store unavailable", map[string]interface{}{"connector": connector, "error": err})
	}

	duplicates := 0
	for _, r := range results {
		if r.Outcome == dedup.Duplicate {
			duplicates++
		}
	}
	if duplicates > 0 {
		metrics.CardDuplicates.WithLabelValues(connector).Add(float64(duplicates))
	}
	s.logger.Debug("Fingerprints recorded", map[string]interface{}{
		"connector":  connector,
		"cards":      len(cards),
		"duplicates": duplicates,
	})
}

func (s *Server) handleComment(c echo.Context) error {
	if s.deps.Actions == nil {
		return echo.NewHTTPError(http.StatusNotFound, "actions not configured")
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.NewInvalidCardRequestError(fmt.Sprintf("malformed comment: %v", err))
	}
	if err := s.deps.Actions.Comment(c.Request().Context(), c.Param("key"), req.Comment); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (s *Server) handleWatch(c echo.Context) error {
	if s.deps.Actions == nil {
		return echo.NewHTTPError(http.StatusNotFound, "actions not configured")
	}
	if err := s.deps.Actions.Watch(c.Request().Context(), c.Param("key")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// handleError renders application errors as {"code","message","details"}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		status int
		body   errorResponse
	)
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		body = errorResponse{Code: httpCode(he.Code), Message: fmt.Sprint(he.Message)}
	} else {
		stdErr := apperrors.AsStandardError(err)
		status = apperrors.HTTPStatus(stdErr.Code)
		body = errorResponse{Code: string(stdErr.Code), Message: stdErr.Message, Details: stdErr.Details}
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		s.logger.Error("Failed to write error response", map[string]interface{}{"error": writeErr})
	}
}

func httpCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusUnsupportedMediaType:
		return "UNSUPPORTED_MEDIA_TYPE"
	case http.StatusBadRequest:
		return string(apperrors.ErrCodeInvalidCardRequest)
	default:
		return string(apperrors.ErrCodeInternal)
	}
}
