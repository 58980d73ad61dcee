package generator

import (
	"fmt"
	"strings"

	"github.com/adaptive-learn/backend/internal/models"
)

var styleGuidance = map[models.LearningStyle]string{
	models.StyleVisual: `
STYLE GUIDANCE (Visual learner):
- Lead with diagram descriptions, charts and spatial layouts the client can render
- Mark sections that should render as figures with format "diagram_description"
- Use concrete visual metaphors; avoid long unbroken prose`,

	models.StyleAuditory: `
STYLE GUIDANCE (Auditory learner):
- Write sections as narration scripts suitable for text-to-speech, format "audio_script"
- Use conversational phrasing, rhetorical questions and verbal mnemonics
- Summarise each section aloud before moving on`,

	models.StyleKinesthetic: `
STYLE GUIDANCE (Kinesthetic learner):
- Favour activities, experiments and step-by-step tasks over exposition
- Every concept gets something to DO within two paragraphs
- Mark hands-on sections with format "activity" and list concrete steps`,
}

var contentTypeRules = map[string]string{
	"lesson": `
OUTPUT RULES (lesson):
- "sections": 3-5 sections, each with "heading", "body" and a "format" hint
- Optionally 2-3 comprehension "questions" at the end
- "learning_objectives": what the learner can do afterwards`,

	"quiz": `
OUTPUT RULES (quiz):
- "questions": the requested number of multiple-choice questions
- Each question has exactly 4 "choices" with ids A, B, C, D in order
- "correct_answer_id" names one of the four; include an "explanation" and a "hint"
- Vary which letter is correct across the quiz`,

	"exercise": `
OUTPUT RULES (exercise):
- "activities": 2-4 practical activities with "name", "instructions", "steps" and "minutes"
- Activities build on each other from warm-up to application
- "interactive_elements": the interaction affordances the client should render`,
}

// SystemPrompt frames the model as a personalised-content author and
// pins the JSON contract for the content type.
func SystemPrompt(contentType string) string {
	var sb strings.Builder
	sb.WriteString(`You are an expert instructional designer generating personalised learning content.

You respond with a single JSON object and nothing else: no prose, no markdown fences.

The JSON object always carries: "title", "topic", "content_type", "difficulty_level" (0.0-1.0), "estimated_duration" (minutes).`)
	if rules, ok := contentTypeRules[contentType]; ok {
		sb.WriteString("\n")
		sb.WriteString(rules)
	}
	return sb.String()
}

// BuildUserPrompt assembles the per-request prompt: topic, difficulty,
// learner profile and accommodations.
func BuildUserPrompt(req Request) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Content type: %s\n", req.ContentType)
	fmt.Fprintf(&sb, "Subject: %s\n", req.Subject)
	fmt.Fprintf(&sb, "Topic: %s\n", req.Topic)
	fmt.Fprintf(&sb, "Target difficulty: %.2f on a 0.0-1.0 scale\n", req.Difficulty)

	if req.ContentType == "quiz" {
		count := req.QuestionCount
		if count <= 0 {
			count = 5
		}
		fmt.Fprintf(&sb, "Question count: %d\n", count)
		if len(req.KnowledgeGaps) > 0 {
			// Weight the quiz toward gaps, keep some reinforcement.
			fmt.Fprintf(&sb, "Focus roughly 60%% of questions on these knowledge gaps: %s\n", strings.Join(req.KnowledgeGaps, ", "))
			if len(req.Strengths) > 0 {
				fmt.Fprintf(&sb, "Use the remaining questions to reinforce: %s\n", strings.Join(req.Strengths, ", "))
			}
		}
	} else if len(req.KnowledgeGaps) > 0 {
		fmt.Fprintf(&sb, "Address these knowledge gaps where relevant: %s\n", strings.Join(req.KnowledgeGaps, ", "))
	}

	if req.TimeAvailable > 0 {
		fmt.Fprintf(&sb, "The learner has %d minutes available; size the content accordingly\n", req.TimeAvailable)
	}
	if len(req.Objectives) > 0 {
		fmt.Fprintf(&sb, "Learning objectives: %s\n", strings.Join(req.Objectives, "; "))
	}

	if guidance, ok := styleGuidance[req.Style]; ok {
		sb.WriteString(guidance)
		sb.WriteString("\n")
	}
	if acc := accommodationLines(req.Accommodations); len(acc) > 0 {
		sb.WriteString("\nACCOMMODATIONS:\n")
		for _, line := range acc {
			sb.WriteString("- ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func accommodationLines(acc models.Accommodations) []string {
	var lines []string
	if acc.NeedsBreaks {
		lines = append(lines, "Chunk material into short segments with natural break points")
	}
	if acc.NeedsExtraTime {
		lines = append(lines, "Keep pacing generous; do not time-pressure the learner")
	}
	if acc.BenefitsFromRepetition {
		lines = append(lines, "Restate key ideas at least twice in different forms")
	}
	if acc.PrefersClearInstructions {
		lines = append(lines, "Make every instruction explicit and numbered")
	}
	if acc.PrefersStructure {
		lines = append(lines, "Use a predictable section structure with clear headings")
	}
	if acc.SensitiveToDistractions {
		lines = append(lines, "Avoid decorative or tangential material; keep the content minimal and focused")
	}
	return lines
}
