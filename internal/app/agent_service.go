package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"permit-agent/internal/ai"
	"permit-agent/internal/model"
	"permit-agent/internal/pkg/pdfextract"
	"permit-agent/internal/repository"
)

// minDocTextLen is the smallest extracted-text length that counts as a usable
// reference document; anything shorter is treated the same as a failed fetch.
const minDocTextLen = 100

// AgentService owns the session lifecycle: the multi-stage initialization
// workflow and the cascading reset.
type AgentService struct {
	registry    *Registry
	sessionRepo *repository.SessionRepository
	messageRepo *repository.MessageRepository
	uploads     *UploadService

	auth           ai.Auth
	defaultBaseURL *url.URL
	docClient      *http.Client
	docSources     []docSource
	minDocText     int
}

func NewAgentService(
	registry *Registry,
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	uploads *UploadService,
	auth ai.Auth,
	defaultBaseURL string,
) *AgentService {
	parsed, err := url.Parse(defaultBaseURL)
	if err != nil || parsed.Host == "" {
		parsed, _ = url.Parse("http://localhost:8321")
	}
	return &AgentService{
		registry:       registry,
		sessionRepo:    sessionRepo,
		messageRepo:    messageRepo,
		uploads:        uploads,
		auth:           auth,
		defaultBaseURL: parsed,
		docClient:      &http.Client{Timeout: 60 * time.Second},
		docSources:     permitDocSources,
		minDocText:     minDocTextLen,
	}
}

type InitParams struct {
	Protocol string `json:"protocol"`
	Host     string `json:"host"`
	Port     string `json:"port"`
}

type InitResult struct {
	SessionID  string           `json:"sessionId"`
	VectorDBID string           `json:"vectorDbId"`
	Logs       []model.LogEntry `json:"logs"`
}

// InitError is a terminal workflow failure carrying the full progress log.
type InitError struct {
	Status  int
	Message string
	Logs    []model.LogEntry
}

func (e *InitError) Error() string {
	return e.Message
}

// progressLog records ordered log entries and forwards each one to the events
// channel when a consumer is streaming.
type progressLog struct {
	entries []model.LogEntry
	events  chan<- model.LogEntry
}

func (l *progressLog) push(kind, message string) {
	entry := model.LogEntry{
		ID:        uuid.NewString(),
		Type:      kind,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}
	l.entries = append(l.entries, entry)
	if l.events != nil {
		l.events <- entry
	}
}

// Initialize runs the full bootstrap: connectivity check, document
// acquisition, provider discovery, vector database registration, ingestion,
// and session persistence. Progress entries go to events as they are
// produced when events is non-nil; the returned result carries them all.
// Every failure comes back as *InitError with the log so far attached.
func (s *AgentService) Initialize(ctx context.Context, params InitParams, events chan<- model.LogEntry) (*InitResult, error) {
	logs := &progressLog{events: events}

	result, err := s.initialize(ctx, s.resolveBaseURL(params), logs)
	if err != nil {
		var initErr *InitError
		if errors.As(err, &initErr) {
			return nil, initErr
		}
		logs.push(model.LogError, "Initialization failed: "+err.Error())
		status := http.StatusInternalServerError
		var apiErr *ai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return nil, &InitError{Status: status, Message: err.Error(), Logs: logs.entries}
	}
	return result, nil
}

func (s *AgentService) initialize(ctx context.Context, baseURL string, logs *progressLog) (*InitResult, error) {
	logs.push(model.LogInfo, fmt.Sprintf("Connecting to Llama Stack at %s...", baseURL))
	client := ai.NewClient(baseURL, s.auth)
	if err := client.ListModels(ctx); err != nil {
		return nil, err
	}
	logs.push(model.LogSuccess, "Connected to Llama Stack")

	logs.push(model.LogInfo, "Loading permit documents...")
	documents := s.acquireDocuments(ctx, logs)
	if len(documents) == 0 {
		logs.push(model.LogWarning, "Could not download PDFs. Using fallback permit requirements.")
		documents = append(documents, ai.Document{
			DocumentID: "fallback_requirements",
			Content:    fallbackPermitContent,
			MimeType:   "text/plain",
			Metadata: map[string]string{
				"source":      "fallback",
				"description": "Denver Permit Requirements (Fallback)",
				"type":        "permit_requirements",
			},
		})
	}

	logs.push(model.LogInfo, "Fetching providers...")
	providers, err := client.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		logs.push(model.LogWarning, "No providers returned by Llama Stack.")
	}

	var vectorProvider *ai.Provider
	for i := range providers {
		if providers[i].API == "vector_io" {
			vectorProvider = &providers[i]
			break
		}
	}
	if vectorProvider == nil {
		message := "No vector_io provider available in Llama Stack."
		logs.push(model.LogError, message)
		return nil, &InitError{Status: http.StatusBadRequest, Message: message, Logs: logs.entries}
	}

	vectorDBID := vectorDBPrefix + uuid.NewString()[:8]
	logs.push(model.LogInfo, fmt.Sprintf("Registering vector database %s...", vectorDBID))
	err = client.RegisterVectorDB(ctx, ai.VectorDBRegistration{
		VectorDBID:         vectorDBID,
		ProviderID:         vectorProvider.ProviderID,
		EmbeddingModel:     embeddingModel,
		EmbeddingDimension: embeddingDimension,
	})
	if err != nil {
		return nil, err
	}

	logs.push(model.LogInfo, "Ingesting documents into vector database...")
	if err := client.Insert(ctx, vectorDBID, documents, chunkSizeInTokens); err != nil {
		return nil, err
	}
	logs.push(model.LogSuccess, "Vector database ready.")

	sessionID := uuid.NewString()
	session := &Session{
		ID:         sessionID,
		BaseURL:    baseURL,
		VectorDBID: vectorDBID,
		Client:     client,
		Messages:   DefaultSessionPrompt(),
	}
	s.registry.Put(session)

	err = s.sessionRepo.Upsert(&model.Session{
		SessionID:  sessionID,
		BaseURL:    baseURL,
		VectorDBID: vectorDBID,
	})
	if err != nil {
		return nil, err
	}
	seed := make([]model.Message, 0, len(session.Messages))
	for _, message := range session.Messages {
		seed = append(seed, model.Message{Role: message.Role, Content: message.Content})
	}
	if err := s.messageRepo.ReplaceAll(sessionID, seed); err != nil {
		return nil, err
	}

	logs.push(model.LogSuccess, "Initialization complete.")
	return &InitResult{SessionID: sessionID, VectorDBID: vectorDBID, Logs: logs.entries}, nil
}

func (s *AgentService) acquireDocuments(ctx context.Context, logs *progressLog) []ai.Document {
	var documents []ai.Document
	for _, src := range s.docSources {
		text := s.fetchPDFText(ctx, src, logs)
		if text == "" {
			continue
		}
		documents = append(documents, ai.Document{
			DocumentID: src.ID,
			Content:    text,
			MimeType:   "text/plain",
			Metadata: map[string]string{
				"description": src.Description,
				"source":      src.URLs[0],
				"type":        "permit_requirements",
			},
		})
	}
	return documents
}

// fetchPDFText tries the source URLs in order and returns the first extracted
// text above the viability threshold. Individual failures are warnings, never
// fatal; an empty return means the document is simply omitted.
func (s *AgentService) fetchPDFText(ctx context.Context, src docSource, logs *progressLog) string {
	for _, sourceURL := range src.URLs {
		logs.push(model.LogInfo, "Attempting to download: "+src.Description)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
		if err != nil {
			logs.push(model.LogWarning, fmt.Sprintf("Failed to download from %s: %v", sourceURL, err))
			continue
		}
		resp, err := s.docClient.Do(req)
		if err != nil {
			logs.push(model.LogWarning, fmt.Sprintf("Failed to download from %s: %v", sourceURL, err))
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			logs.push(model.LogWarning, fmt.Sprintf("Status %d from %s", resp.StatusCode, sourceURL))
			continue
		}
		if readErr != nil {
			logs.push(model.LogWarning, fmt.Sprintf("Failed to download from %s: %v", sourceURL, readErr))
			continue
		}

		text, err := pdfextract.ExtractTextFromBytes(body)
		if err != nil {
			logs.push(model.LogWarning, fmt.Sprintf("Failed to download from %s: %v", sourceURL, err))
			continue
		}
		if len(strings.TrimSpace(text)) > s.minDocText {
			logs.push(model.LogSuccess, "Downloaded: "+src.Description)
			return text
		}
		logs.push(model.LogWarning, "Insufficient content extracted from "+sourceURL)
	}
	return ""
}

var urlSchemePattern = regexp.MustCompile(`(?i)^https?://`)

// resolveBaseURL combines caller-supplied fragments with the configured
// default. A host that is itself a full URL wins outright with its origin.
func (s *AgentService) resolveBaseURL(params InitParams) string {
	if params.Host != "" && urlSchemePattern.MatchString(params.Host) {
		if parsed, err := url.Parse(params.Host); err == nil && parsed.Host != "" {
			return parsed.Scheme + "://" + parsed.Host
		}
	}

	host := urlSchemePattern.ReplaceAllString(params.Host, "")
	if host == "" {
		host = s.defaultBaseURL.Hostname()
	}
	port := params.Port
	if port == "" {
		port = s.defaultBaseURL.Port()
	}
	protocol := normalizeProtocol(params.Protocol, s.defaultBaseURL.Scheme)

	if port != "" {
		return fmt.Sprintf("%s://%s:%s", protocol, host, port)
	}
	return protocol + "://" + host
}

func normalizeProtocol(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return strings.ToLower(strings.TrimSuffix(value, ":"))
}

// Reset removes the session everywhere: cache entry, durable row (cascading
// to messages and documents), and uploaded files. A blank id is a no-op.
func (s *AgentService) Reset(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	s.registry.Remove(sessionID)
	if err := s.sessionRepo.Delete(sessionID); err != nil {
		return err
	}
	s.uploads.RemoveSessionFiles(sessionID)
	return nil
}
