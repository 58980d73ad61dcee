package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const validLessonJSON = `{
	"title": "Algebra: Linear Equations",
	"topic": "linear equations",
	"content_type": "lesson",
	"difficulty_level": 0.5,
	"estimated_duration": 15,
	"sections": [
		{"heading": "Introduction", "body": "What a linear equation is.", "format": "prose"},
		{"heading": "Solving", "body": "Isolate the variable step by step.", "format": "diagram_description"}
	]
}`

const validQuizJSON = `{
	"title": "Quiz: Linear Equations",
	"topic": "linear equations",
	"content_type": "quiz",
	"difficulty_level": 0.6,
	"estimated_duration": 10,
	"questions": [
		{
			"prompt": "What is the solution to 2x = 8?",
			"choices": [
				{"id": "A", "text": "x = 4"},
				{"id": "B", "text": "x = 2"},
				{"id": "C", "text": "x = 8"},
				{"id": "D", "text": "x = 16"}
			],
			"correct_answer_id": "A",
			"explanation": "Divide both sides by 2."
		}
	]
}`

func TestParseContentLesson(t *testing.T) {
	content, err := ParseContent(validLessonJSON)
	if err != nil {
		t.Fatalf("ParseContent: %v", err)
	}
	if content.ContentType != "lesson" {
		t.Errorf("content_type = %q, want lesson", content.ContentType)
	}
	if len(content.Sections) != 2 {
		t.Errorf("sections = %d, want 2", len(content.Sections))
	}
}

func TestParseContentQuiz(t *testing.T) {
	content, err := ParseContent(validQuizJSON)
	if err != nil {
		t.Fatalf("ParseContent: %v", err)
	}
	if len(content.Questions) != 1 {
		t.Fatalf("questions = %d, want 1", len(content.Questions))
	}
	if content.Questions[0].CorrectAnswerID != "A" {
		t.Errorf("correct_answer_id = %q, want A", content.Questions[0].CorrectAnswerID)
	}
}

func TestParseContentStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validLessonJSON + "\n```"
	if _, err := ParseContent(fenced); err != nil {
		t.Errorf("fenced JSON should parse: %v", err)
	}
	fenced = "```\n" + validQuizJSON + "\n```"
	if _, err := ParseContent(fenced); err != nil {
		t.Errorf("bare-fenced JSON should parse: %v", err)
	}
}

func TestParseContentRejectsMalformedJSON(t *testing.T) {
	if _, err := ParseContent("not json at all"); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestParseContentValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s string) string
		wantErr string
	}{
		{
			name:    "lesson without sections",
			mutate:  func(s string) string { return strings.Replace(s, `"sections": [`, `"sections_x": [`, 1) },
			wantErr: "no sections",
		},
		{
			name:    "unknown content type",
			mutate:  func(s string) string { return strings.Replace(s, `"lesson"`, `"poem"`, 1) },
			wantErr: "unknown content_type",
		},
		{
			name:    "difficulty out of range",
			mutate:  func(s string) string { return strings.Replace(s, `0.5`, `1.5`, 1) },
			wantErr: "outside [0,1]",
		},
		{
			name:    "missing duration",
			mutate:  func(s string) string { return strings.Replace(s, `"estimated_duration": 15,`, ``, 1) },
			wantErr: "estimated_duration",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseContent(tt.mutate(validLessonJSON))
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseContentQuizValidation(t *testing.T) {
	t.Run("wrong choice count", func(t *testing.T) {
		bad := strings.Replace(validQuizJSON, `{"id": "C", "text": "x = 8"},
				{"id": "D", "text": "x = 16"}`, `{"id": "C", "text": "x = 8"}`, 1)
		if _, err := ParseContent(bad); err == nil || !strings.Contains(err.Error(), "expected 4 choices") {
			t.Errorf("expected choice-count error, got %v", err)
		}
	})

	t.Run("bad correct answer id", func(t *testing.T) {
		bad := strings.Replace(validQuizJSON, `"correct_answer_id": "A"`, `"correct_answer_id": "E"`, 1)
		if _, err := ParseContent(bad); err == nil || !strings.Contains(err.Error(), "invalid correct_answer_id") {
			t.Errorf("expected correct-answer error, got %v", err)
		}
	})

	t.Run("out of order choice ids", func(t *testing.T) {
		bad := strings.Replace(validQuizJSON, `{"id": "A", "text": "x = 4"}`, `{"id": "B", "text": "x = 4"}`, 1)
		if _, err := ParseContent(bad); err == nil {
			t.Error("expected error for out-of-order choice ids")
		}
	})

	t.Run("empty explanation", func(t *testing.T) {
		bad := strings.Replace(validQuizJSON, `"Divide both sides by 2."`, `""`, 1)
		if _, err := ParseContent(bad); err == nil || !strings.Contains(err.Error(), "empty explanation") {
			t.Errorf("expected explanation error, got %v", err)
		}
	})
}

func TestMockClientRoundTrip(t *testing.T) {
	mock := NewMockClient()
	for _, contentType := range []string{"lesson", "quiz", "exercise"} {
		prompt := "Content type: " + contentType + "\nTopic: algebra\n"
		resp, err := mock.Generate(context.Background(), "system", prompt)
		if err != nil {
			t.Fatalf("%s: mock generate: %v", contentType, err)
		}
		content, err := ParseContent(resp.Content)
		if err != nil {
			t.Fatalf("%s: mock output should validate: %v", contentType, err)
		}
		if content.ContentType != contentType {
			t.Errorf("mock %s produced %s", contentType, content.ContentType)
		}
	}
}
