package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oversightlab/missiondesk/internal/database/testutil"
	"github.com/oversightlab/missiondesk/internal/models"
)

func newDraftFixture(t *testing.T) (*DraftService, *models.User, *models.User) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewDraftService(db)
	require.NoError(t, err)

	alice := &models.User{Username: "alice", Email: "alice@x.example", Password: "x"}
	bob := &models.User{Username: "bob", Email: "bob@x.example", Password: "x"}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)
	return svc, alice, bob
}

func TestDraftSaveLoadClear(t *testing.T) {
	svc, alice, _ := newDraftFixture(t)
	ctx := context.Background()

	_, err := svc.Load(ctx, alice.ID, "mission")
	require.ErrorIs(t, err, ErrDraftNotFound)

	saved, err := svc.Save(ctx, alice.ID, "mission", []byte(`{"location":"Quai Nord"}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"location":"Quai Nord"}`, string(saved.Payload))

	// a later save replaces the payload in place
	saved, err = svc.Save(ctx, alice.ID, "mission", []byte(`{"location":"Quai Sud","agents":2}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"location":"Quai Sud","agents":2}`, string(saved.Payload))

	var count int64
	require.NoError(t, svc.db.Model(&models.FormDraft{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	require.NoError(t, svc.Clear(ctx, alice.ID, "mission"))
	_, err = svc.Load(ctx, alice.ID, "mission")
	require.ErrorIs(t, err, ErrDraftNotFound)

	// clearing again stays silent
	require.NoError(t, svc.Clear(ctx, alice.ID, "mission"))
}

func TestDraftScopedPerUserAndForm(t *testing.T) {
	svc, alice, bob := newDraftFixture(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, alice.ID, "mission", []byte(`{"who":"alice"}`))
	require.NoError(t, err)
	_, err = svc.Save(ctx, bob.ID, "mission", []byte(`{"who":"bob"}`))
	require.NoError(t, err)
	_, err = svc.Save(ctx, alice.ID, "project", []byte(`{"kind":"project"}`))
	require.NoError(t, err)

	draft, err := svc.Load(ctx, alice.ID, "mission")
	require.NoError(t, err)
	require.JSONEq(t, `{"who":"alice"}`, string(draft.Payload))

	draft, err = svc.Load(ctx, bob.ID, "mission")
	require.NoError(t, err)
	require.JSONEq(t, `{"who":"bob"}`, string(draft.Payload))
}

func TestDraftRejectsInvalidPayload(t *testing.T) {
	svc, alice, _ := newDraftFixture(t)

	_, err := svc.Save(context.Background(), alice.ID, "mission", []byte(`{broken`))
	require.Error(t, err)
	_, err = svc.Save(context.Background(), alice.ID, "", []byte(`{}`))
	require.Error(t, err)
}
