package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const (
	maxLLMMessageLength = 200

	// Dashboard runs may each bring their own key; only the most recently used
	// clients are kept.
	maxCachedClients = 8
)

// GeminiService issues a single generation call. It never retries; callers
// decide what to do with a classified *LLMError.
type GeminiService interface {
	Generate(ctx context.Context, prompt, apiKey, modelID string) (string, error)
}

type geminiService struct {
	mu           sync.Mutex
	clients      map[string]*genai.Client
	recent       []string
	maxClients   int
	defaultModel string
	temperature  float32
	maxTokens    int32
}

func NewGeminiService(defaultModel string, temperature float32, maxOutputTokens int32) GeminiService {
	return &geminiService{
		clients:      make(map[string]*genai.Client),
		maxClients:   maxCachedClients,
		defaultModel: defaultModel,
		temperature:  temperature,
		maxTokens:    maxOutputTokens,
	}
}

// Generate implements GeminiService.
func (g *geminiService) Generate(ctx context.Context, prompt, apiKey, modelID string) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", &LLMError{Kind: LLMInvalidCredentials, Message: "API key is empty"}
	}

	model := NormalizeModelID(modelID)
	if model == "" {
		model = g.defaultModel
	}

	client, err := g.clientFor(ctx, apiKey)
	if err != nil {
		return "", classifyGenerateError(err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: &g.temperature,
	}
	if g.maxTokens > 0 {
		config.MaxOutputTokens = g.maxTokens
	}

	log.Printf("🤖 Calling %s (%d prompt characters)", model, len(prompt))
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		llmErr := classifyGenerateError(err)
		log.Printf("❌ Gemini API error (%s): %s", llmErr.Kind, llmErr.Message)
		return "", llmErr
	}

	if resp == nil {
		return "", &LLMError{Kind: LLMOther, Message: "no response generated (nil response)"}
	}

	text := resp.Text()
	if text == "" {
		reason := "no text content in response"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			reason = fmt.Sprintf("%s (finish reason %s)", reason, resp.Candidates[0].FinishReason)
		}
		log.Printf("⚠️  %s", reason)
		return "", &LLMError{Kind: LLMOther, Message: reason}
	}

	log.Printf("📊 Gemini response received: %d characters", len(text))
	return text, nil
}

func (g *geminiService) clientFor(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if client, ok := g.clients[apiKey]; ok {
		g.touch(apiKey)
		return client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if len(g.recent) >= g.maxClients {
		oldest := g.recent[0]
		g.recent = g.recent[1:]
		delete(g.clients, oldest)
	}
	g.clients[apiKey] = client
	g.recent = append(g.recent, apiKey)
	return client, nil
}

// touch marks apiKey as the most recently used key.
func (g *geminiService) touch(apiKey string) {
	for i, k := range g.recent {
		if k == apiKey {
			g.recent = append(g.recent[:i], g.recent[i+1:]...)
			break
		}
	}
	g.recent = append(g.recent, apiKey)
}

// NormalizeModelID accepts both "gemini-2.0-flash" and "models/gemini-2.0-flash".
func NormalizeModelID(modelID string) string {
	return strings.TrimPrefix(strings.TrimSpace(modelID), "models/")
}

// classifyGenerateError maps a genai failure onto the three LLM error kinds.
func classifyGenerateError(err error) *LLMError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Error()
		}

		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
			return &LLMError{Kind: LLMQuotaExceeded, Message: truncateMessage(message, maxLLMMessageLength), Err: err}
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden,
			apiErr.Status == "UNAUTHENTICATED" || apiErr.Status == "PERMISSION_DENIED",
			looksLikeInvalidKey(apiErr.Error()):
			return &LLMError{Kind: LLMInvalidCredentials, Message: truncateMessage(message, maxLLMMessageLength), Err: err}
		}
		return &LLMError{Kind: LLMOther, Message: truncateMessage(message, maxLLMMessageLength), Err: err}
	}

	text := err.Error()
	switch {
	case looksLikeInvalidKey(text):
		return &LLMError{Kind: LLMInvalidCredentials, Message: truncateMessage(text, maxLLMMessageLength), Err: err}
	case strings.Contains(text, "RESOURCE_EXHAUSTED"):
		return &LLMError{Kind: LLMQuotaExceeded, Message: truncateMessage(text, maxLLMMessageLength), Err: err}
	}
	return &LLMError{Kind: LLMOther, Message: truncateMessage(text, maxLLMMessageLength), Err: err}
}

func looksLikeInvalidKey(text string) bool {
	return strings.Contains(text, "API_KEY_INVALID") ||
		strings.Contains(text, "API key expired") ||
		strings.Contains(text, "API key not valid")
}
