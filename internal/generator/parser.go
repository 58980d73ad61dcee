package generator

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// GeneratedContent is the structured output of a generation call,
// whether it came from the LLM or the template fallback.
type GeneratedContent struct {
	Title               string              `json:"title"`
	Topic               string              `json:"topic"`
	ContentType         string              `json:"content_type"`
	DifficultyLevel     float64             `json:"difficulty_level"`
	EstimatedDuration   int                 `json:"estimated_duration"`
	Sections            []ContentSection    `json:"sections,omitempty"`
	Questions           []GeneratedQuestion `json:"questions,omitempty"`
	Activities          []Activity          `json:"activities,omitempty"`
	InteractiveElements []string            `json:"interactive_elements,omitempty"`
	LearningObjectives  []string            `json:"learning_objectives,omitempty"`
}

// ContentSection is one block of lesson material. Format hints at the
// presentation style (prose, diagram_description, audio_script,
// activity).
type ContentSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
	Format  string `json:"format,omitempty"`
}

type GeneratedQuestion struct {
	Prompt          string            `json:"prompt"`
	Choices         []GeneratedChoice `json:"choices"`
	CorrectAnswerID string            `json:"correct_answer_id"`
	Explanation     string            `json:"explanation"`
	Hint            string            `json:"hint,omitempty"`
}

type GeneratedChoice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Activity is one step of an exercise.
type Activity struct {
	Name         string   `json:"name"`
	Instructions string   `json:"instructions"`
	Steps        []string `json:"steps,omitempty"`
	Minutes      int      `json:"minutes,omitempty"`
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// ParseContent parses and validates an LLM response body.
func ParseContent(responseBody string) (*GeneratedContent, error) {
	cleaned := stripCodeFences(responseBody)

	var content GeneratedContent
	if err := json.Unmarshal([]byte(cleaned), &content); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if err := validateContent(&content); err != nil {
		return nil, err
	}

	return &content, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

var validChoiceIDs = map[string]bool{"A": true, "B": true, "C": true, "D": true}

func validateContent(c *GeneratedContent) error {
	var errs []string

	if c.Title == "" {
		errs = append(errs, "empty title")
	}
	if c.Topic == "" {
		errs = append(errs, "empty topic")
	}
	if c.DifficultyLevel < 0 || c.DifficultyLevel > 1 {
		errs = append(errs, fmt.Sprintf("difficulty %.2f outside [0,1]", c.DifficultyLevel))
	}
	if c.EstimatedDuration <= 0 {
		errs = append(errs, "estimated_duration must be positive")
	}

	switch c.ContentType {
	case "lesson":
		if len(c.Sections) == 0 {
			errs = append(errs, "lesson has no sections")
		}
		for i, s := range c.Sections {
			if s.Heading == "" {
				errs = append(errs, fmt.Sprintf("section %d: empty heading", i+1))
			}
			if s.Body == "" {
				errs = append(errs, fmt.Sprintf("section %d: empty body", i+1))
			}
		}
	case "quiz":
		if len(c.Questions) == 0 {
			errs = append(errs, "quiz has no questions")
		}
		errs = append(errs, validateQuestions(c.Questions)...)
	case "exercise":
		if len(c.Activities) == 0 {
			errs = append(errs, "exercise has no activities")
		}
		for i, a := range c.Activities {
			if a.Instructions == "" {
				errs = append(errs, fmt.Sprintf("activity %d: empty instructions", i+1))
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown content_type %q", c.ContentType))
	}

	// Questions can ride along on lessons as a comprehension check;
	// when present they still have to be well formed.
	if c.ContentType == "lesson" && len(c.Questions) > 0 {
		errs = append(errs, validateQuestions(c.Questions)...)
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateQuestions(questions []GeneratedQuestion) []string {
	var errs []string
	for i, q := range questions {
		qNum := i + 1

		if q.Prompt == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty prompt", qNum))
		}
		if len(q.Choices) != 4 {
			errs = append(errs, fmt.Sprintf("question %d: expected 4 choices, got %d", qNum, len(q.Choices)))
			continue
		}
		expectedIDs := []string{"A", "B", "C", "D"}
		for j, c := range q.Choices {
			if c.ID != expectedIDs[j] {
				errs = append(errs, fmt.Sprintf("question %d: choice %d has id %q, expected %q", qNum, j+1, c.ID, expectedIDs[j]))
			}
			if c.Text == "" {
				errs = append(errs, fmt.Sprintf("question %d: choice %s has empty text", qNum, c.ID))
			}
		}
		if !validChoiceIDs[q.CorrectAnswerID] {
			errs = append(errs, fmt.Sprintf("question %d: invalid correct_answer_id %q", qNum, q.CorrectAnswerID))
		}
		if q.Explanation == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty explanation", qNum))
		}
	}

	// Warn (but don't reject) if correct answers are clustered.
	counts := make(map[string]int)
	for _, q := range questions {
		counts[q.CorrectAnswerID]++
	}
	for letter, count := range counts {
		if count > 2 && len(questions) >= 5 {
			log.Printf("WARNING: correct answer %q appears %d times in %d questions", letter, count, len(questions))
		}
	}
	return errs
}
