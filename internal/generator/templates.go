package generator

import (
	"fmt"

	"github.com/adaptive-learn/backend/internal/models"
)

// Deterministic template fallback. Produces structurally valid content
// without an LLM; used when the LLM path fails and as a baseline in
// development.

// BuildFromTemplate dispatches on the requested content type.
func BuildFromTemplate(req Request) *GeneratedContent {
	switch req.ContentType {
	case "quiz":
		return templateQuiz(req)
	case "exercise":
		return templateExercise(req)
	default:
		return templateLesson(req)
	}
}

func templateLesson(req Request) *GeneratedContent {
	format := sectionFormat(req.Style)
	sections := []ContentSection{
		{
			Heading: fmt.Sprintf("Introduction to %s", req.Topic),
			Body:    fmt.Sprintf("This lesson covers %s within %s at a %s level. By the end you will be able to explain the core idea and apply it to a simple case.", req.Topic, req.Subject, difficultyWord(req.Difficulty)),
			Format:  "prose",
		},
		{
			Heading: fmt.Sprintf("Core concepts of %s", req.Topic),
			Body:    coreConceptBody(req),
			Format:  format,
		},
		{
			Heading: "Putting it together",
			Body:    fmt.Sprintf("Work through one complete example of %s from start to finish, then summarise each step in your own words.", req.Topic),
			Format:  "activity",
		},
	}
	if req.Accommodations.BenefitsFromRepetition {
		sections = append(sections, ContentSection{
			Heading: "Key points, restated",
			Body:    fmt.Sprintf("The essentials of %s one more time, phrased differently: revisit each core concept and connect it to the worked example above.", req.Topic),
			Format:  "prose",
		})
	}

	objectives := req.Objectives
	if len(objectives) == 0 {
		objectives = []string{
			fmt.Sprintf("Explain the core idea of %s", req.Topic),
			fmt.Sprintf("Apply %s to a simple problem", req.Topic),
		}
	}

	return &GeneratedContent{
		Title:              fmt.Sprintf("%s: %s", req.Subject, req.Topic),
		Topic:              req.Topic,
		ContentType:        "lesson",
		DifficultyLevel:    req.Difficulty,
		EstimatedDuration:  scaleDuration(15, req.Accommodations),
		Sections:           sections,
		LearningObjectives: objectives,
	}
}

func coreConceptBody(req Request) string {
	switch req.Style {
	case models.StyleAuditory:
		return fmt.Sprintf("Narration: let's talk through %s step by step. Listen for the key term each time it comes up, and say the definition back out loud.", req.Topic)
	case models.StyleKinesthetic:
		return fmt.Sprintf("Hands on: open a scratch workspace and rebuild the central idea of %s yourself, one piece at a time, checking your result after each step.", req.Topic)
	default:
		return fmt.Sprintf("Figure: a concept map of %s with the main idea at the centre and its components radiating outward, each labelled with a one-line definition.", req.Topic)
	}
}

func templateQuiz(req Request) *GeneratedContent {
	count := req.QuestionCount
	if count <= 0 {
		count = 5
	}

	// Weight question topics toward known gaps, filling the rest with
	// strengths for reinforcement, then the base topic.
	var pool []string
	gapTarget := (count*3 + 4) / 5 // ~60%
	for i := 0; i < gapTarget && len(req.KnowledgeGaps) > 0; i++ {
		pool = append(pool, req.KnowledgeGaps[i%len(req.KnowledgeGaps)])
	}
	for len(pool) < count {
		if len(req.Strengths) > 0 {
			pool = append(pool, req.Strengths[len(pool)%len(req.Strengths)])
		} else {
			pool = append(pool, req.Topic)
		}
	}

	stems := []string{
		"Which statement best describes %s?",
		"What is the most common mistake when applying %s?",
		"In which situation is %s the right tool?",
		"What happens first when you apply %s?",
		"Which example correctly uses %s?",
	}

	questions := make([]GeneratedQuestion, 0, count)
	for i := 0; i < count; i++ {
		topic := pool[i]
		correct := []string{"A", "B", "C", "D"}[i%4]
		choices := make([]GeneratedChoice, 4)
		for j, id := range []string{"A", "B", "C", "D"} {
			text := fmt.Sprintf("A plausible but incorrect claim about %s.", topic)
			if id == correct {
				text = fmt.Sprintf("The accurate description of %s.", topic)
			}
			choices[j] = GeneratedChoice{ID: id, Text: text}
		}
		questions = append(questions, GeneratedQuestion{
			Prompt:          fmt.Sprintf(stems[i%len(stems)], topic),
			Choices:         choices,
			CorrectAnswerID: correct,
			Explanation:     fmt.Sprintf("Option %s matches the definition of %s; the others describe related but distinct ideas.", correct, topic),
			Hint:            fmt.Sprintf("Start from the definition of %s.", topic),
		})
	}

	return &GeneratedContent{
		Title:             fmt.Sprintf("Practice quiz: %s", req.Topic),
		Topic:             req.Topic,
		ContentType:       "quiz",
		DifficultyLevel:   req.Difficulty,
		EstimatedDuration: scaleDuration(2*count, req.Accommodations),
		Questions:         questions,
	}
}

func templateExercise(req Request) *GeneratedContent {
	activities := []Activity{
		{
			Name:         "Warm-up",
			Instructions: fmt.Sprintf("Recall what you know about %s and write down the three most important points.", req.Topic),
			Steps:        []string{"List key terms", "Define each in one line", "Mark anything you are unsure of"},
			Minutes:      5,
		},
		styleActivity(req),
		{
			Name:         "Self-check",
			Instructions: fmt.Sprintf("Explain %s as if teaching it to someone new, then compare against your notes.", req.Topic),
			Minutes:      5,
		},
	}

	elements := []string{"step_checklist", "timer"}
	if req.Style == models.StyleKinesthetic {
		elements = append(elements, "sandbox")
	}

	total := 0
	for _, a := range activities {
		total += a.Minutes
	}

	return &GeneratedContent{
		Title:               fmt.Sprintf("Exercise: %s", req.Topic),
		Topic:               req.Topic,
		ContentType:         "exercise",
		DifficultyLevel:     req.Difficulty,
		EstimatedDuration:   scaleDuration(total, req.Accommodations),
		Activities:          activities,
		InteractiveElements: elements,
	}
}

func styleActivity(req Request) Activity {
	switch req.Style {
	case models.StyleAuditory:
		return Activity{
			Name:         "Talk it through",
			Instructions: fmt.Sprintf("Record yourself explaining %s, play it back, and note where the explanation stumbles.", req.Topic),
			Minutes:      10,
		}
	case models.StyleKinesthetic:
		return Activity{
			Name:         "Build it",
			Instructions: fmt.Sprintf("Construct a working example of %s from scratch, verifying each intermediate step.", req.Topic),
			Steps:        []string{"Set up the simplest case", "Extend it one step", "Break it on purpose and fix it"},
			Minutes:      15,
		}
	default:
		return Activity{
			Name:         "Sketch it",
			Instructions: fmt.Sprintf("Draw a diagram of %s and annotate every component.", req.Topic),
			Steps:        []string{"Draw the main structure", "Label each part", "Add one example per label"},
			Minutes:      10,
		}
	}
}

// scaleDuration stretches time estimates for learners who need it.
func scaleDuration(minutes int, acc models.Accommodations) int {
	if acc.NeedsExtraTime {
		minutes = minutes * 3 / 2
	}
	if minutes < 5 {
		minutes = 5
	}
	return minutes
}

func difficultyWord(d float64) string {
	switch {
	case d < 0.4:
		return "beginner"
	case d < 0.7:
		return "intermediate"
	default:
		return "advanced"
	}
}

// describes the section format hint for a style.
func sectionFormat(style models.LearningStyle) string {
	switch style {
	case models.StyleAuditory:
		return "audio_script"
	case models.StyleKinesthetic:
		return "activity"
	default:
		return "diagram_description"
	}
}
