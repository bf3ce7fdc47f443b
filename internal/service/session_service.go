// Package service orchestrates receipt sessions: it owns the single
// stored state per session, feeds command batches to the engine, and
// re-derives person summaries after every change.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tallysplit/tally/internal/auth"
	"github.com/tallysplit/tally/internal/engine"
	"github.com/tallysplit/tally/internal/extract"
	"github.com/tallysplit/tally/internal/models"
	"github.com/tallysplit/tally/internal/storage"
	"github.com/tallysplit/tally/internal/translate"
)

// View is a session with its freshly computed allocation. Summaries are
// recomputed from scratch on every read; they are never stored.
type View struct {
	Session         *models.Session
	Summaries       []models.PersonSummary
	UnassignedTotal float64
}

// Outcome is the result of applying a command batch (or an interpreted
// utterance) to a session.
type Outcome struct {
	// View is nil when ResetRequested is set; the session is gone.
	View *View

	// ResetRequested reports that the batch asked for a full reset. The
	// session and its state have been deleted.
	ResetRequested bool

	// Skipped lists commands and assignment pairs that could not be
	// applied, for the caller to surface as warnings.
	Skipped []string

	// Explanation is the translation service's display string. Only set
	// by Interpret; never parsed.
	Explanation string
}

// SessionService implements the receipt session operations.
type SessionService struct {
	store      storage.Store
	tokens     *auth.TokenManager
	translator translate.Translator
}

// NewSessionService creates a session service over the given storage,
// token manager and translator.
func NewSessionService(store storage.Store, tokens *auth.TokenManager, translator translate.Translator) *SessionService {
	return &SessionService{store: store, tokens: tokens, translator: translator}
}

// CreateSession hydrates an extraction payload into a new stored session
// and mints the session token the caller must present on later requests.
func (s *SessionService) CreateSession(ctx context.Context, payload extract.Payload) (*View, string, error) {
	session := &models.Session{State: extract.Hydrate(payload)}
	if err := s.store.CreateSession(ctx, session); err != nil {
		slog.Error("CreateSession failed", "error", err)
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.tokens.Generate(session.ID)
	if err != nil {
		slog.Error("Failed to generate session token", "session_id", session.ID, "error", err)
		return nil, "", err
	}

	slog.Info("Session created",
		"session_id", session.ID,
		"items", len(session.State.Items),
		"total", session.State.Total,
	)
	return s.view(session), token, nil
}

// GetSession loads a session and recomputes its allocation.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*View, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(session), nil
}

// ApplyCommands decodes and applies a raw command batch, persists the new
// state and returns the recomputed allocation. Malformed commands are
// dropped and reported, never fatal. A reset_receipt in the batch deletes
// the session and discards every other mutation in the batch.
func (s *SessionService) ApplyCommands(ctx context.Context, sessionID string, raw []json.RawMessage) (*Outcome, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cmds, skipped := engine.DecodeCommands(raw)
	result := engine.Apply(session.State, cmds)
	skipped = append(skipped, result.Skipped...)

	if result.ResetRequested {
		return s.reset(ctx, sessionID, skipped)
	}

	session.State = result.State
	if err := s.store.UpdateSession(ctx, session); err != nil {
		slog.Error("Failed to persist session", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	slog.Info("Commands applied",
		"session_id", sessionID,
		"commands", len(cmds),
		"skipped", len(skipped),
	)
	return &Outcome{View: s.view(session), Skipped: skipped}, nil
}

// Interpret sends an utterance to the translation service and applies the
// resulting commands. The translator's explanation string is passed
// through untouched; a translator-level reset flag behaves exactly like a
// reset_receipt command.
func (s *SessionService) Interpret(ctx context.Context, sessionID, utterance string) (*Outcome, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	batch, err := s.translator.Translate(ctx, utterance, session.State)
	if err != nil {
		slog.Error("Translation failed", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("translation failed: %w", err)
	}

	if batch.Reset {
		outcome, err := s.reset(ctx, sessionID, nil)
		if err != nil {
			return nil, err
		}
		outcome.Explanation = batch.Explanation
		return outcome, nil
	}

	outcome, err := s.ApplyCommands(ctx, sessionID, batch.Commands)
	if err != nil {
		return nil, err
	}
	outcome.Explanation = batch.Explanation
	return outcome, nil
}

// DeleteSession removes a session outright.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	return s.store.DeleteSession(ctx, sessionID)
}

func (s *SessionService) reset(ctx context.Context, sessionID string, skipped []string) (*Outcome, error) {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		slog.Error("Failed to delete session on reset", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to reset session: %w", err)
	}
	slog.Info("Session reset", "session_id", sessionID)
	return &Outcome{ResetRequested: true, Skipped: skipped}, nil
}

func (s *SessionService) view(session *models.Session) *View {
	alloc := engine.Allocate(session.State)
	return &View{
		Session:         session,
		Summaries:       alloc.Summaries,
		UnassignedTotal: alloc.UnassignedTotal,
	}
}
