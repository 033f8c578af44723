package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"permit-agent/internal/model"
	"permit-agent/internal/platform/sqlite"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Session{}, &model.Message{}, &model.Document{}))
	return db
}

func TestSessionUpsertRefreshesExistingRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)

	require.NoError(t, repo.Upsert(&model.Session{
		SessionID:  "session-1",
		BaseURL:    "http://localhost:8321",
		VectorDBID: "permit-db-old",
	}))
	require.NoError(t, repo.Upsert(&model.Session{
		SessionID:  "session-1",
		BaseURL:    "http://stack.internal:8321",
		VectorDBID: "permit-db-new",
	}))

	sessions, err := repo.ListAll()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "http://stack.internal:8321", sessions[0].BaseURL)
	assert.Equal(t, "permit-db-new", sessions[0].VectorDBID)
}

func TestSessionGetReturnsNilWhenMissing(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))

	session, err := repo.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, session)

	session, err = repo.GetWithChildren("missing")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSessionGetWithChildrenOrdersRelations(t *testing.T) {
	db := newTestDB(t)
	sessionRepo := NewSessionRepository(db)
	messageRepo := NewMessageRepository(db)
	documentRepo := NewDocumentRepository(db)

	require.NoError(t, sessionRepo.Upsert(&model.Session{
		SessionID:  "session-1",
		BaseURL:    "http://localhost:8321",
		VectorDBID: "permit-db-test",
	}))

	base := time.Now().Add(-time.Hour)
	require.NoError(t, messageRepo.Append(&model.Message{
		SessionID: "session-1", Role: "system", Content: "prompt", CreatedAt: base,
	}))
	require.NoError(t, messageRepo.Append(&model.Message{
		SessionID: "session-1", Role: "user", Content: "question", CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, documentRepo.Record(&model.Document{
		SessionID: "session-1", DocumentType: "menu", OriginalName: "old.pdf",
		StoredName: "old.pdf", RelativePath: "users/session-1/old.pdf", CreatedAt: base,
	}))
	require.NoError(t, documentRepo.Record(&model.Document{
		SessionID: "session-1", DocumentType: "menu", OriginalName: "new.pdf",
		StoredName: "new.pdf", RelativePath: "users/session-1/new.pdf", CreatedAt: base.Add(time.Minute),
	}))

	session, err := sessionRepo.GetWithChildren("session-1")
	require.NoError(t, err)
	require.NotNil(t, session)

	require.Len(t, session.Messages, 2)
	assert.Equal(t, "system", session.Messages[0].Role)
	assert.Equal(t, "user", session.Messages[1].Role)

	require.Len(t, session.Documents, 2)
	assert.Equal(t, "new.pdf", session.Documents[0].OriginalName)
	assert.Equal(t, "old.pdf", session.Documents[1].OriginalName)
}

func TestSessionDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	sessionRepo := NewSessionRepository(db)
	messageRepo := NewMessageRepository(db)
	documentRepo := NewDocumentRepository(db)

	require.NoError(t, sessionRepo.Upsert(&model.Session{
		SessionID:  "session-1",
		BaseURL:    "http://localhost:8321",
		VectorDBID: "permit-db-test",
	}))
	require.NoError(t, messageRepo.Append(&model.Message{SessionID: "session-1", Role: "system", Content: "prompt"}))
	require.NoError(t, documentRepo.Record(&model.Document{
		SessionID: "session-1", DocumentType: "menu", OriginalName: "menu.pdf",
		StoredName: "menu.pdf", RelativePath: "users/session-1/menu.pdf",
	}))

	require.NoError(t, sessionRepo.Delete("session-1"))

	session, err := sessionRepo.Get("session-1")
	require.NoError(t, err)
	assert.Nil(t, session)

	messages, err := messageRepo.ListBySession("session-1")
	require.NoError(t, err)
	assert.Empty(t, messages)

	documents, err := documentRepo.ListBySession("session-1")
	require.NoError(t, err)
	assert.Empty(t, documents)
}

func seedTestSession(t *testing.T, db *gorm.DB, sessionID string) {
	t.Helper()
	require.NoError(t, NewSessionRepository(db).Upsert(&model.Session{
		SessionID:  sessionID,
		BaseURL:    "http://localhost:8321",
		VectorDBID: "permit-db-test",
	}))
}

func TestReplaceAllSwapsHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepository(db)
	seedTestSession(t, db, "session-1")

	require.NoError(t, repo.Append(&model.Message{SessionID: "session-1", Role: "user", Content: "old"}))
	require.NoError(t, repo.ReplaceAll("session-1", []model.Message{
		{Role: "system", Content: "prompt"},
		{Role: "user", Content: "new"},
	}))

	messages, err := repo.ListBySession("session-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "prompt", messages[0].Content)
	assert.Equal(t, "new", messages[1].Content)
}

func TestReplaceAllRollsBackOnFailure(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepository(db)
	seedTestSession(t, db, "session-1")

	require.NoError(t, repo.Append(&model.Message{SessionID: "session-1", Role: "user", Content: "keep me"}))

	// Duplicate explicit primary keys force the second insert to fail, so the
	// whole transaction must roll back.
	err := repo.ReplaceAll("session-1", []model.Message{
		{ID: 42, Role: "system", Content: "first"},
		{ID: 42, Role: "user", Content: "second"},
	})
	require.Error(t, err)

	messages, err := repo.ListBySession("session-1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "keep me", messages[0].Content)
}

func TestDocumentDeleteIsScopedBySession(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	seedTestSession(t, db, "session-1")

	doc := &model.Document{
		SessionID: "session-1", DocumentType: "menu", OriginalName: "menu.pdf",
		StoredName: "menu.pdf", RelativePath: "users/session-1/menu.pdf",
	}
	require.NoError(t, repo.Record(doc))
	require.NotZero(t, doc.ID)

	// A different session cannot delete the row.
	require.NoError(t, repo.Delete(doc.ID, "session-2"))
	documents, err := repo.ListBySession("session-1")
	require.NoError(t, err)
	require.Len(t, documents, 1)

	require.NoError(t, repo.Delete(doc.ID, "session-1"))
	documents, err = repo.ListBySession("session-1")
	require.NoError(t, err)
	assert.Empty(t, documents)
}
