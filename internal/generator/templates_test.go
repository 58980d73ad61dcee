package generator

import (
	"strings"
	"testing"

	"github.com/adaptive-learn/backend/internal/models"
)

func baseRequest(contentType string) Request {
	return Request{
		ContentType: contentType,
		Subject:     "programming",
		Topic:       "recursion",
		Difficulty:  0.5,
		Style:       models.StyleVisual,
	}
}

func TestTemplateContentValidates(t *testing.T) {
	// Template output must pass the same gate as LLM output.
	for _, contentType := range []string{"lesson", "quiz", "exercise"} {
		content := BuildFromTemplate(baseRequest(contentType))
		if err := validateContent(content); err != nil {
			t.Errorf("%s template fails validation: %v", contentType, err)
		}
		if content.ContentType != contentType {
			t.Errorf("template %s produced %s", contentType, content.ContentType)
		}
	}
}

func TestTemplateQuizGapWeighting(t *testing.T) {
	req := baseRequest("quiz")
	req.QuestionCount = 5
	req.KnowledgeGaps = []string{"base cases"}
	req.Strengths = []string{"iteration"}

	content := BuildFromTemplate(req)
	if len(content.Questions) != 5 {
		t.Fatalf("questions = %d, want 5", len(content.Questions))
	}
	gapQuestions := 0
	for _, q := range content.Questions {
		if strings.Contains(q.Prompt, "base cases") {
			gapQuestions++
		}
	}
	// Roughly 60% of the quiz targets the gap.
	if gapQuestions != 3 {
		t.Errorf("gap questions = %d, want 3", gapQuestions)
	}
}

func TestTemplateQuizVariesCorrectAnswer(t *testing.T) {
	req := baseRequest("quiz")
	req.QuestionCount = 8
	content := BuildFromTemplate(req)

	letters := make(map[string]bool)
	for _, q := range content.Questions {
		letters[q.CorrectAnswerID] = true
	}
	if len(letters) < 3 {
		t.Errorf("correct answers cluster on %d letters", len(letters))
	}
}

func TestTemplateStylePersonalization(t *testing.T) {
	req := baseRequest("lesson")
	req.Style = models.StyleAuditory
	content := BuildFromTemplate(req)
	found := false
	for _, s := range content.Sections {
		if s.Format == "audio_script" {
			found = true
		}
	}
	if !found {
		t.Error("auditory lesson has no audio_script section")
	}

	req = baseRequest("exercise")
	req.Style = models.StyleKinesthetic
	ex := BuildFromTemplate(req)
	hasSandbox := false
	for _, e := range ex.InteractiveElements {
		if e == "sandbox" {
			hasSandbox = true
		}
	}
	if !hasSandbox {
		t.Error("kinesthetic exercise missing sandbox element")
	}
}

func TestTemplateAccommodations(t *testing.T) {
	req := baseRequest("lesson")
	base := BuildFromTemplate(req)

	req.Accommodations.NeedsExtraTime = true
	req.Accommodations.BenefitsFromRepetition = true
	adapted := BuildFromTemplate(req)

	if adapted.EstimatedDuration <= base.EstimatedDuration {
		t.Errorf("extra-time duration %d should exceed base %d", adapted.EstimatedDuration, base.EstimatedDuration)
	}
	if len(adapted.Sections) <= len(base.Sections) {
		t.Error("repetition accommodation should add a restated section")
	}
}

func TestBuildUserPromptMentionsProfile(t *testing.T) {
	req := baseRequest("quiz")
	req.KnowledgeGaps = []string{"base cases"}
	req.Accommodations.SensitiveToDistractions = true

	prompt := BuildUserPrompt(req)
	for _, want := range []string{"Content type: quiz", "recursion", "base cases", "ACCOMMODATIONS"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestSystemPromptPinsContract(t *testing.T) {
	for _, contentType := range []string{"lesson", "quiz", "exercise"} {
		p := SystemPrompt(contentType)
		if !strings.Contains(p, "JSON") {
			t.Errorf("%s system prompt does not pin JSON output", contentType)
		}
	}
	if !strings.Contains(SystemPrompt("quiz"), "4 \"choices\"") {
		t.Error("quiz system prompt missing choice contract")
	}
}
