// File: services/intelligence/chat.go
package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"revline/models"
	"revline/services/tools"
	"revline/services/voice"
)

const (
	chatHistoryPrefix = "chat:history:"
	chatHistoryTTL    = 30 * time.Minute
	chatHistoryLimit  = 20
	maxToolRounds     = 4
)

type chatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatService is the text-mode receptionist: the same persona and tools as
// the voice line, answered over HTTP for development and shop-owner testing.
type ChatService struct {
	gemini *GeminiClient
	cache  *redis.Client
	logger *zap.Logger
}

func NewChatService(gemini *GeminiClient, cache *redis.Client, logger *zap.Logger) *ChatService {
	return &ChatService{gemini: gemini, cache: cache, logger: logger}
}

func (s *ChatService) history(ctx context.Context, sessionID string) []chatTurn {
	data, err := s.cache.Get(ctx, chatHistoryPrefix+sessionID).Result()
	if err != nil {
		return nil
	}
	var turns []chatTurn
	if err := json.Unmarshal([]byte(data), &turns); err != nil {
		return nil
	}
	return turns
}

func (s *ChatService) saveHistory(ctx context.Context, sessionID string, turns []chatTurn) {
	if len(turns) > chatHistoryLimit {
		turns = turns[len(turns)-chatHistoryLimit:]
	}
	b, err := json.Marshal(turns)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, chatHistoryPrefix+sessionID, b, chatHistoryTTL).Err(); err != nil {
		s.logger.Warn("failed to save chat history", zap.Error(err))
	}
}

func toGenaiHistory(turns []chatTurn) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := "user"
		if turn.Role == "receptionist" {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}
	return history
}

func toGenaiSchema(params map[string]any) *genai.Schema {
	schema := &genai.Schema{}
	switch params["type"] {
	case "object":
		schema.Type = genai.TypeObject
		schema.Properties = make(map[string]*genai.Schema)
		if props, ok := params["properties"].(map[string]any); ok {
			for name, raw := range props {
				if prop, ok := raw.(map[string]any); ok {
					schema.Properties[name] = toGenaiSchema(prop)
				}
			}
		}
		if required, ok := params["required"].([]string); ok {
			schema.Required = required
		}
	case "number":
		schema.Type = genai.TypeNumber
	default:
		schema.Type = genai.TypeString
	}
	if desc, ok := params["description"].(string); ok {
		schema.Description = desc
	}
	return schema
}

func geminiTools(defs []voice.ToolDefinition) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  toGenaiSchema(def.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if call, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}

// Chat answers one user message within a session's running conversation.
// The model can call the shop's tools; results are fed back until it
// produces a text reply or the round limit is hit.
func (s *ChatService) Chat(ctx context.Context, shop *models.Shop, sessionID, message string, registry *tools.Registry) (string, error) {
	turns := s.history(ctx, sessionID)

	system := voice.SystemPrompt(shop.Name) +
		"\n\nYou are answering over text chat, not a phone call."
	session := s.gemini.StartChat(system, geminiTools(registry.Definitions()), toGenaiHistory(turns))

	resp, err := session.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("chat: send message: %w", err)
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}
		parts := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			result, err := registry.Execute(ctx, call.Name, call.Args)
			if err != nil {
				s.logger.Warn("chat tool call failed",
					zap.String("sessionId", sessionID), zap.String("tool", call.Name), zap.Error(err))
				result = map[string]any{"success": false, "error": err.Error()}
			}
			parts = append(parts, genai.FunctionResponse{Name: call.Name, Response: result})
		}
		resp, err = session.SendMessage(ctx, parts...)
		if err != nil {
			return "", fmt.Errorf("chat: send tool results: %w", err)
		}
	}

	reply := responseText(resp)
	if reply == "" {
		reply = "I'm sorry, I wasn't able to come up with an answer. Could you rephrase that?"
	}

	turns = append(turns,
		chatTurn{Role: "caller", Text: message},
		chatTurn{Role: "receptionist", Text: reply})
	s.saveHistory(ctx, sessionID, turns)

	return reply, nil
}

// Reset drops a session's conversation history.
func (s *ChatService) Reset(ctx context.Context, sessionID string) error {
	return s.cache.Del(ctx, chatHistoryPrefix+sessionID).Err()
}
