package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"permit-agent/internal/ai"
	"permit-agent/internal/model"
	"permit-agent/internal/repository"
)

// ChatService drives one chat turn: retrieve context, augment the prompt,
// persist the user message, call the model, persist the reply.
type ChatService struct {
	registry    *Registry
	sessionRepo *repository.SessionRepository
	messageRepo *repository.MessageRepository
	modelID     string
}

func NewChatService(
	registry *Registry,
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
) *ChatService {
	return &ChatService{
		registry:    registry,
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		modelID:     ModelID,
	}
}

type QueryResult struct {
	Answer  string   `json:"answer"`
	Context []string `json:"context"`
}

// Query answers a user prompt against the session's vector database. The
// (possibly augmented) prompt is written to memory and store before the
// completion call, so a crash mid-inference still leaves a durable record of
// what was asked.
func (s *ChatService) Query(ctx context.Context, sessionID, prompt string) (*QueryResult, error) {
	if sessionID == "" || strings.TrimSpace(prompt) == "" {
		return nil, ErrPromptRequired
	}
	session, err := s.registry.Resolve(sessionID)
	if err != nil {
		return nil, err
	}

	ragResp, err := session.Client.QueryRAG(ctx, session.VectorDBID, prompt)
	if err != nil {
		return nil, err
	}
	ragContext := ai.ExtractRAGContext(ragResp)
	if ragContext == nil {
		ragContext = []string{}
	}

	enhancedPrompt := prompt
	if len(ragContext) > 0 {
		enhancedPrompt = fmt.Sprintf(
			"%s\n\nRELEVANT DENVER REGULATIONS:\n%s\n\nBase your response on the regulations provided above.",
			prompt,
			strings.Join(ragContext, "\n\n"),
		)
	}

	session.Messages = append(session.Messages, ai.ChatMessage{Role: "user", Content: enhancedPrompt})
	if err := s.messageRepo.Append(&model.Message{SessionID: session.ID, Role: "user", Content: enhancedPrompt}); err != nil {
		return nil, err
	}

	raw, err := session.Client.ChatCompletion(ctx, s.modelID, session.Messages)
	if err != nil {
		return nil, err
	}
	answer := ai.ExtractAnswer(raw)

	session.Messages = append(session.Messages, ai.ChatMessage{Role: "assistant", Content: answer})
	if err := s.messageRepo.Append(&model.Message{SessionID: session.ID, Role: "assistant", Content: answer}); err != nil {
		return nil, err
	}
	err = s.sessionRepo.Upsert(&model.Session{
		SessionID:  session.ID,
		BaseURL:    session.BaseURL,
		VectorDBID: session.VectorDBID,
	})
	if err != nil {
		return nil, err
	}

	return &QueryResult{Answer: answer, Context: ragContext}, nil
}

const evaluationPromptTemplate = `Evaluate this Denver food truck permit application:

APPLICATION DATA:
%s

Provide a detailed evaluation in JSON format with:
{
  "overall_score": <0-100>,
  "recommendation": "APPROVED" | "NEEDS_REVISION" | "REJECTED",
  "categories": {
    "completeness": {"score": <0-100>, "findings": [...], "required_actions": [...]},
    "accuracy": {"score": <0-100>, "findings": [...], "required_actions": [...]},
    "compliance": {"score": <0-100>, "findings": [...], "required_actions": [...]},
    "documentation": {"score": <0-100>, "findings": [...], "required_actions": [...]},
    "safety_requirements": {"score": <0-100>, "findings": [...], "required_actions": [...]}
  },
  "summary": "<brief summary>",
  "next_steps": [...]
}`

// Evaluate is a chat turn with a fixed rubric prompt wrapped around the
// application payload. The model's answer is parsed for a JSON scorecard;
// parse failures degrade to a low-confidence sentinel instead of erroring.
func (s *ChatService) Evaluate(ctx context.Context, sessionID string, application json.RawMessage) (map[string]any, error) {
	if sessionID == "" || len(application) == 0 {
		return nil, ErrApplicationRequired
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, application, "", "  "); err != nil {
		return nil, ErrApplicationRequired
	}

	prompt := fmt.Sprintf(evaluationPromptTemplate, pretty.String())
	result, err := s.Query(ctx, sessionID, prompt)
	if err != nil {
		return nil, err
	}

	evaluation := parseEvaluation(result.Answer)
	if _, ok := evaluation["raw_response"]; !ok {
		evaluation["raw_response"] = result.Answer
	}
	return evaluation, nil
}

// jsonObjectPattern grabs everything from the first opening brace to the last
// closing one, the widest plausible top-level object in the answer.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

func parseEvaluation(answer string) map[string]any {
	if match := jsonObjectPattern.FindString(answer); match != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(match), &parsed); err == nil {
			return parsed
		}
	}
	return map[string]any{
		"overall_score":  0,
		"recommendation": "NEEDS_REVIEW",
		"raw_response":   answer,
	}
}
