package app

import (
	"fmt"
	"sync"

	"permit-agent/internal/ai"
	"permit-agent/internal/model"
	"permit-agent/internal/repository"
)

// Session is the in-memory working state for one agent session: a gateway
// client bound to the session's base URL plus the accumulated conversation.
// The message list and its durable twin in the store are advanced together by
// every mutation path.
type Session struct {
	ID         string
	BaseURL    string
	VectorDBID string
	Client     *ai.Client
	Messages   []ai.ChatMessage
}

// Registry reconciles the in-memory session cache with the relational store.
// The cache does not survive restarts; on a miss the registry rehydrates the
// session from its persisted row before answering.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	sessionRepo    *repository.SessionRepository
	messageRepo    *repository.MessageRepository
	auth           ai.Auth
	defaultBaseURL string
}

func NewRegistry(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	auth ai.Auth,
	defaultBaseURL string,
) *Registry {
	return &Registry{
		sessions:       make(map[string]*Session),
		sessionRepo:    sessionRepo,
		messageRepo:    messageRepo,
		auth:           auth,
		defaultBaseURL: defaultBaseURL,
	}
}

// Resolve returns the cached session, rehydrating from the store on a miss.
// A session absent from both yields ErrSessionNotFound.
func (r *Registry) Resolve(sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	r.mu.Lock()
	if session, ok := r.sessions[sessionID]; ok {
		r.mu.Unlock()
		return session, nil
	}
	r.mu.Unlock()

	persisted, err := r.sessionRepo.GetWithChildren(sessionID)
	if err != nil {
		return nil, err
	}
	if persisted == nil {
		return nil, ErrSessionNotFound
	}

	baseURL := persisted.BaseURL
	if baseURL == "" {
		baseURL = r.defaultBaseURL
	}
	session := &Session{
		ID:         persisted.SessionID,
		BaseURL:    baseURL,
		VectorDBID: persisted.VectorDBID,
		Client:     ai.NewClient(baseURL, r.auth),
	}

	if len(persisted.Messages) > 0 {
		session.Messages = make([]ai.ChatMessage, 0, len(persisted.Messages))
		for _, message := range persisted.Messages {
			session.Messages = append(session.Messages, ai.ChatMessage{
				Role:    message.Role,
				Content: message.Content,
			})
		}
	} else {
		// An empty persisted history gets the default system prompt, written
		// through the atomic replace path so memory and store stay in lockstep.
		session.Messages = DefaultSessionPrompt()
		seed := make([]model.Message, 0, len(session.Messages))
		for _, message := range session.Messages {
			seed = append(seed, model.Message{Role: message.Role, Content: message.Content})
		}
		if err := r.messageRepo.ReplaceAll(sessionID, seed); err != nil {
			return nil, fmt.Errorf("seed rehydrated session failed: %w", err)
		}
	}

	r.mu.Lock()
	r.sessions[sessionID] = session
	r.mu.Unlock()
	return session, nil
}

// Put caches a freshly initialized session.
func (r *Registry) Put(session *Session) {
	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()
}

// Remove drops the cache entry; the durable row is the caller's business.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}
