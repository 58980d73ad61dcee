package generator

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/adaptive-learn/backend/internal/models"
)

// LLMClient is the interface both generator implementations satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// Request describes one personalised content generation.
// TimeAvailable is minutes.
type Request struct {
	ContentType    string // lesson | quiz | exercise
	Subject        string
	Topic          string
	Difficulty     float64
	Style          models.LearningStyle
	Accommodations models.Accommodations
	KnowledgeGaps  []string
	Strengths      []string
	Objectives     []string
	QuestionCount  int
	TimeAvailable  int
}

// Generator wraps an LLMClient and adds content-type specific methods.
type Generator struct {
	llm   LLMClient
	model string
}

func NewGenerator() *Generator {
	var llm LLMClient
	model := "mock"

	if os.Getenv("MOCK_GENERATOR") == "true" {
		llm = NewMockClient()
		log.Println("Generator using mock data")
	} else {
		model = os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-opus-4-5-20251101"
		}
		llm = NewAPIClient(model)
		log.Println("Generator using Anthropic API:", model)
	}

	return &Generator{llm: llm, model: model}
}

func (g *Generator) ModelName() string {
	return g.model
}

// Generate produces personalised content for the request via the LLM
// path, parsing and validating the response.
func (g *Generator) Generate(ctx context.Context, req Request) (*GeneratedContent, *LLMResponse, error) {
	systemPrompt := SystemPrompt(req.ContentType)
	userPrompt := BuildUserPrompt(req)

	resp, err := g.llm.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, nil, fmt.Errorf("generate %s: %w", req.ContentType, err)
	}

	content, err := ParseContent(resp.Content)
	if err != nil {
		return nil, resp, fmt.Errorf("parse %s response: %w", req.ContentType, err)
	}

	return content, resp, nil
}

// ── APIClient — Anthropic SDK (Production) ─────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   8192,
		Temperature: param.NewOpt(0.8),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("Retrying Anthropic API call in %v (attempt %d)", sleepDuration, attempt+1)
			time.Sleep(sleepDuration)
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Printf("Anthropic API attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient — Local Development ─────────────────────────

type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

// Generate builds deterministic content matching the content type named
// in the user prompt.
func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	contentType := "lesson"
	if strings.Contains(userPrompt, "Content type: quiz") {
		contentType = "quiz"
	} else if strings.Contains(userPrompt, "Content type: exercise") {
		contentType = "exercise"
	}

	return &LLMResponse{
		Content:      buildMockJSON(contentType),
		PromptTokens: 1500,
		OutputTokens: 3000,
	}, nil
}

func buildMockJSON(contentType string) string {
	switch contentType {
	case "quiz":
		questions := "["
		for i := 0; i < 5; i++ {
			if i > 0 {
				questions += ","
			}
			correct := []string{"A", "B", "C", "D"}[i%4]
			choices := "["
			for j, id := range []string{"A", "B", "C", "D"} {
				if j > 0 {
					choices += ","
				}
				choices += fmt.Sprintf(`{"id":"%s","text":"[Mock] Candidate answer %s for practice question %d."}`, id, id, i+1)
			}
			choices += "]"
			questions += fmt.Sprintf(`{"prompt":"[Mock] Practice question %d on the requested topic.","choices":%s,"correct_answer_id":"%s","explanation":"[Mock] Option %s follows from the core definition.","hint":"[Mock] Revisit the key definition first."}`,
				i+1, choices, correct, correct)
		}
		questions += "]"
		return fmt.Sprintf(`{"title":"[Mock] Practice Quiz","topic":"mock topic","content_type":"quiz","difficulty_level":0.5,"estimated_duration":10,"questions":%s}`, questions)

	case "exercise":
		return `{"title":"[Mock] Guided Exercise","topic":"mock topic","content_type":"exercise","difficulty_level":0.5,"estimated_duration":15,"activities":[{"name":"[Mock] Warm-up","instructions":"[Mock] Work through the starter problem.","steps":["Read the problem","Attempt a solution","Check the result"],"minutes":5},{"name":"[Mock] Main task","instructions":"[Mock] Apply the concept to a new case.","minutes":10}],"interactive_elements":["step_checklist"]}`

	default:
		return `{"title":"[Mock] Introductory Lesson","topic":"mock topic","content_type":"lesson","difficulty_level":0.5,"estimated_duration":15,"sections":[{"heading":"[Mock] Overview","body":"[Mock] This section introduces the topic at the requested difficulty.","format":"prose"},{"heading":"[Mock] Core ideas","body":"[Mock] The central concept is explained with a worked example.","format":"diagram_description"}],"learning_objectives":["[Mock] Understand the core concept"]}`
	}
}
