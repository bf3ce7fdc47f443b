package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallysplit/tally/internal/auth"
	"github.com/tallysplit/tally/internal/extract"
	"github.com/tallysplit/tally/internal/models"
	"github.com/tallysplit/tally/internal/storage"
	"github.com/tallysplit/tally/internal/storage/sqlite"
	"github.com/tallysplit/tally/internal/translate"
)

// stubTranslator returns a canned batch without calling anything external.
type stubTranslator struct {
	batch translate.Batch
	err   error
}

func (s *stubTranslator) Translate(_ context.Context, _ string, _ *models.ReceiptState) (translate.Batch, error) {
	return s.batch, s.err
}

func newTestService(t *testing.T, translator translate.Translator) (*SessionService, *auth.TokenManager) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens := auth.NewTokenManager("test-secret-key-32-bytes-long!!!", time.Hour)
	return NewSessionService(store, tokens, translator), tokens
}

func pizzaPayload() extract.Payload {
	return extract.Payload{
		Items: []extract.PayloadItem{
			{Name: "Pizza", Price: 20},
		},
		Subtotal: 20,
		Tax:      2,
		Total:    22,
	}
}

func TestCreateSession(t *testing.T) {
	svc, tokens := newTestService(t, &stubTranslator{})
	ctx := context.Background()

	view, token, err := svc.CreateSession(ctx, pizzaPayload())
	require.NoError(t, err)

	require.NotEmpty(t, view.Session.ID)
	require.Len(t, view.Session.State.Items, 1)
	assert.NotEmpty(t, view.Session.State.Items[0].ID)
	assert.Empty(t, view.Session.State.Items[0].AssignedTo)
	assert.Equal(t, "$", view.Session.State.CurrencySymbol)

	// Nothing assigned yet: no summaries, everything unaccounted for.
	assert.Empty(t, view.Summaries)
	assert.InDelta(t, 20, view.UnassignedTotal, 1e-6)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, view.Session.ID, claims.SessionID)
}

func TestApplyCommands(t *testing.T) {
	svc, _ := newTestService(t, &stubTranslator{})
	ctx := context.Background()

	view, _, err := svc.CreateSession(ctx, pizzaPayload())
	require.NoError(t, err)
	id := view.Session.ID

	outcome, err := svc.ApplyCommands(ctx, id, []json.RawMessage{
		json.RawMessage(`{"type":"assign_items","assignments":[{"item_name":"pizza","people":["Alice","Bob"]}]}`),
		json.RawMessage(`{"type":"set_fixed_contribution","name":"Bob","amount":15}`),
	})
	require.NoError(t, err)
	require.False(t, outcome.ResetRequested)
	assert.Empty(t, outcome.Skipped)

	// netBill=22, Bob fixed at 15, Alice takes the remaining pool of 7.
	require.Len(t, outcome.View.Summaries, 2)
	byName := map[string]models.PersonSummary{}
	for _, s := range outcome.View.Summaries {
		byName[s.Name] = s
	}
	assert.Equal(t, 15.0, byName["Bob"].TotalOwed)
	assert.True(t, byName["Bob"].IsFixed)
	assert.InDelta(t, 7, byName["Alice"].TotalOwed, 1e-6)
	assert.InDelta(t, 0, outcome.View.UnassignedTotal, 1e-6)

	// The new state is persisted, not just returned.
	reloaded, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, reloaded.Session.State.Items[0].AssignedTo)
	require.Len(t, reloaded.Session.State.FixedContributions, 1)
	assert.Equal(t, 15.0, reloaded.Session.State.FixedContributions[0].Amount)
}

func TestApplyCommands_SkipsBadEntries(t *testing.T) {
	svc, _ := newTestService(t, &stubTranslator{})
	ctx := context.Background()

	view, _, err := svc.CreateSession(ctx, pizzaPayload())
	require.NoError(t, err)

	outcome, err := svc.ApplyCommands(ctx, view.Session.ID, []json.RawMessage{
		json.RawMessage(`{"type":"no_such_command"}`),
		json.RawMessage(`{"type":"assign_items","assignments":[{"item_name":"sushi","people":["Alice"]}]}`),
		json.RawMessage(`{"type":"update_tip","amount":3}`),
	})
	require.NoError(t, err)

	// Bad command and unresolvable item both noted; tip still applied.
	assert.Len(t, outcome.Skipped, 2)
	assert.Equal(t, 3.0, outcome.View.Session.State.Tip)
	assert.InDelta(t, 25, outcome.View.Session.State.Total, 1e-6)
}

func TestApplyCommands_ResetDeletesSession(t *testing.T) {
	svc, _ := newTestService(t, &stubTranslator{})
	ctx := context.Background()

	view, _, err := svc.CreateSession(ctx, pizzaPayload())
	require.NoError(t, err)
	id := view.Session.ID

	outcome, err := svc.ApplyCommands(ctx, id, []json.RawMessage{
		json.RawMessage(`{"type":"update_tip","amount":100}`),
		json.RawMessage(`{"type":"reset_receipt"}`),
	})
	require.NoError(t, err)
	assert.True(t, outcome.ResetRequested)
	assert.Nil(t, outcome.View)

	_, err = svc.GetSession(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInterpret(t *testing.T) {
	translator := &stubTranslator{batch: translate.Batch{
		Commands: []json.RawMessage{
			json.RawMessage(`{"type":"assign_items","assignments":[{"item_name":"Pizza","people":["Alice"]}]}`),
		},
		Explanation: "Assigned the pizza to Alice.",
	}}
	svc, _ := newTestService(t, translator)
	ctx := context.Background()

	view, _, err := svc.CreateSession(ctx, pizzaPayload())
	require.NoError(t, err)

	outcome, err := svc.Interpret(ctx, view.Session.ID, "alice had the pizza")
	require.NoError(t, err)
	assert.Equal(t, "Assigned the pizza to Alice.", outcome.Explanation)
	require.Len(t, outcome.View.Summaries, 1)
	assert.Equal(t, "Alice", outcome.View.Summaries[0].Name)
	assert.InDelta(t, 22, outcome.View.Summaries[0].TotalOwed, 1e-6)
}

func TestInterpret_ResetFlag(t *testing.T) {
	translator := &stubTranslator{batch: translate.Batch{
		Explanation: "Starting over.",
		Reset:       true,
	}}
	svc, _ := newTestService(t, translator)
	ctx := context.Background()

	view, _, err := svc.CreateSession(ctx, pizzaPayload())
	require.NoError(t, err)

	outcome, err := svc.Interpret(ctx, view.Session.ID, "start over")
	require.NoError(t, err)
	assert.True(t, outcome.ResetRequested)
	assert.Equal(t, "Starting over.", outcome.Explanation)

	_, err = svc.GetSession(ctx, view.Session.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInterpret_TranslatorFailure(t *testing.T) {
	translator := &stubTranslator{err: errors.New("model unavailable")}
	svc, _ := newTestService(t, translator)
	ctx := context.Background()

	view, _, err := svc.CreateSession(ctx, pizzaPayload())
	require.NoError(t, err)

	_, err = svc.Interpret(ctx, view.Session.ID, "alice had the pizza")
	require.Error(t, err)

	// A failed translation must leave the session untouched.
	reloaded, err := svc.GetSession(ctx, view.Session.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Session.State.Items[0].AssignedTo)
}

func TestGetSession_NotFound(t *testing.T) {
	svc, _ := newTestService(t, &stubTranslator{})

	_, err := svc.GetSession(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
