// Package server exposes the receipt splitting engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tallysplit/tally/internal/extract"
	"github.com/tallysplit/tally/internal/models"
	"github.com/tallysplit/tally/internal/service"
	"github.com/tallysplit/tally/internal/storage"
)

// Extractor turns a receipt image into a structured payload.
type Extractor interface {
	Extract(ctx context.Context, image []byte, contentType string) (extract.Payload, error)
}

// Handler holds the session service behind the HTTP endpoints.
type Handler struct {
	sessions  *service.SessionService
	extractor Extractor
}

// NewHandler creates a Handler over the given session service and
// extraction client.
func NewHandler(sessions *service.SessionService, extractor Extractor) *Handler {
	return &Handler{sessions: sessions, extractor: extractor}
}

// sessionResponse is the wire shape of a session with its allocation.
type sessionResponse struct {
	SessionID       string                 `json:"session_id"`
	State           *models.ReceiptState   `json:"state"`
	Summaries       []models.PersonSummary `json:"summaries"`
	UnassignedTotal float64                `json:"unassigned_total"`
	CreatedAt       int64                  `json:"created_at"`
	UpdatedAt       int64                  `json:"updated_at"`
}

func toSessionResponse(v *service.View) sessionResponse {
	return sessionResponse{
		SessionID:       v.Session.ID,
		State:           v.Session.State,
		Summaries:       v.Summaries,
		UnassignedTotal: v.UnassignedTotal,
		CreatedAt:       v.Session.CreatedAt,
		UpdatedAt:       v.Session.UpdatedAt,
	}
}

// outcomeResponse is the wire shape of an applied command batch.
type outcomeResponse struct {
	Reset       bool             `json:"reset"`
	Session     *sessionResponse `json:"session,omitempty"`
	Skipped     []string         `json:"skipped,omitempty"`
	Explanation string           `json:"explanation,omitempty"`
}

func toOutcomeResponse(o *service.Outcome) outcomeResponse {
	resp := outcomeResponse{
		Reset:       o.ResetRequested,
		Skipped:     o.Skipped,
		Explanation: o.Explanation,
	}
	if o.View != nil {
		sr := toSessionResponse(o.View)
		resp.Session = &sr
	}
	return resp
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

//
// POST /v1/sessions
//

// CreateSession hydrates an extraction payload into a new session and
// returns it with its session token.
func (h *Handler) CreateSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload extract.Payload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid extraction payload"})
			return
		}

		view, token, err := h.sessions.CreateSession(c.Request.Context(), payload)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"session": toSessionResponse(view),
			"token":   token,
		})
	}
}

//
// POST /v1/sessions/from-image
//

// CreateSessionFromImage runs an uploaded receipt image through the
// extraction service, then opens a session from the result.
func (h *Handler) CreateSessionFromImage() gin.HandlerFunc {
	return func(c *gin.Context) {
		file, header, err := c.Request.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
			return
		}
		defer file.Close()

		image, err := io.ReadAll(file)
		if err != nil || len(image) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image"})
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		payload, err := h.extractor.Extract(c.Request.Context(), image, contentType)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "extraction failed"})
			return
		}

		view, token, err := h.sessions.CreateSession(c.Request.Context(), payload)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"session": toSessionResponse(view),
			"token":   token,
		})
	}
}

//
// GET /v1/sessions/:id
//

// GetSession returns the session state with its freshly computed
// allocation.
func (h *Handler) GetSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := h.sessions.GetSession(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toSessionResponse(view))
	}
}

//
// POST /v1/sessions/:id/commands
//

type applyCommandsRequest struct {
	Commands []json.RawMessage `json:"commands"`
}

// ApplyCommands applies a structured command batch to the session.
func (h *Handler) ApplyCommands() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req applyCommandsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		outcome, err := h.sessions.ApplyCommands(c.Request.Context(), c.Param("id"), req.Commands)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toOutcomeResponse(outcome))
	}
}

//
// POST /v1/sessions/:id/interpret
//

type interpretRequest struct {
	Utterance string `json:"utterance"`
}

// Interpret translates a natural-language utterance into commands and
// applies them, returning the translator's explanation alongside the
// result.
func (h *Handler) Interpret() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req interpretRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Utterance == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "utterance required"})
			return
		}

		outcome, err := h.sessions.Interpret(c.Request.Context(), c.Param("id"), req.Utterance)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toOutcomeResponse(outcome))
	}
}

//
// DELETE /v1/sessions/:id
//

// DeleteSession discards a session.
func (h *Handler) DeleteSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.sessions.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}
