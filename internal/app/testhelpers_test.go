package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"permit-agent/internal/ai"
	"permit-agent/internal/model"
	"permit-agent/internal/platform/sqlite"
	"permit-agent/internal/repository"
)

type testEnv struct {
	db           *gorm.DB
	sessionRepo  *repository.SessionRepository
	messageRepo  *repository.MessageRepository
	documentRepo *repository.DocumentRepository
	registry     *Registry
	uploads      *UploadService
	publicDir    string
}

func newTestEnv(t *testing.T, baseURL string) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db, err := sqlite.New(context.Background(), filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Session{}, &model.Message{}, &model.Document{}))

	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	registry := NewRegistry(sessionRepo, messageRepo, ai.Auth{}, baseURL)
	publicDir := filepath.Join(dir, "public")
	uploads := NewUploadService(sessionRepo, documentRepo, publicDir)

	return &testEnv{
		db:           db,
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		documentRepo: documentRepo,
		registry:     registry,
		uploads:      uploads,
		publicDir:    publicDir,
	}
}

// fakeStack is a scriptable stand-in for a Llama Stack instance. Response
// bodies can be overridden per test; requests that carry payloads are
// captured for assertions.
type fakeStack struct {
	Server *httptest.Server

	mu                 sync.Mutex
	modelsStatus       int
	providersBody      string
	queryBody          string
	completionBody     string
	insertPayloads     []map[string]any
	registrations      []map[string]any
	completionPayloads []map[string]any
}

func newFakeStack(t *testing.T) *fakeStack {
	t.Helper()

	stack := &fakeStack{
		providersBody:  `[{"api":"vector_io","provider_id":"faiss"}]`,
		queryBody:      `{"content":[]}`,
		completionBody: `{"completion_message":{"content":"ok"}}`,
	}
	stack.Server = httptest.NewServer(http.HandlerFunc(stack.handle))
	t.Cleanup(stack.Server.Close)
	return stack
}

func (s *fakeStack) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v1/models":
		if s.modelsStatus != 0 {
			w.WriteHeader(s.modelsStatus)
			w.Write([]byte(`{"error":"unavailable"}`))
			return
		}
		w.Write([]byte(`[]`))
	case "/v1/providers":
		w.Write([]byte(s.providersBody))
	case "/v1/vector-dbs":
		s.registrations = append(s.registrations, decodeBody(r))
		w.Write([]byte(`{}`))
	case "/v1/tool-runtime/rag-tool/insert":
		s.insertPayloads = append(s.insertPayloads, decodeBody(r))
		w.Write([]byte(`{}`))
	case "/v1/tool-runtime/rag-tool/query":
		w.Write([]byte(s.queryBody))
	case "/v1/inference/chat-completion":
		s.completionPayloads = append(s.completionPayloads, decodeBody(r))
		w.Write([]byte(s.completionBody))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"unknown path"}`))
	}
}

func (s *fakeStack) setModelsStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelsStatus = status
}

func (s *fakeStack) setProvidersBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providersBody = body
}

func (s *fakeStack) setQueryBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryBody = body
}

func (s *fakeStack) setCompletionBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completionBody = body
}

func (s *fakeStack) insertedPayloads() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.insertPayloads...)
}

func (s *fakeStack) vectorDBRegistrations() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.registrations...)
}

func (s *fakeStack) completions() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.completionPayloads...)
}

func decodeBody(r *http.Request) map[string]any {
	var payload map[string]any
	_ = json.NewDecoder(r.Body).Decode(&payload)
	return payload
}
