package study

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks caller mistakes such as an unknown tutor mode.
var ErrInvalidInput = errors.New("invalid input")

// Mode selects the tutor's teaching persona.
type Mode string

const (
	ModeStandard   Mode = "standard"
	ModeChild      Mode = "child"
	ModeUniversity Mode = "university"
	ModeAnalogy    Mode = "analogy"
	ModeFunny      Mode = "funny"
	ModeTechnical  Mode = "technical"
	ModeSummarized Mode = "summarized"
)

// ParseMode maps a request value to a Mode. Empty means standard.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeStandard, nil
	}
	m := Mode(s)
	if _, ok := modeInstructions[m]; !ok {
		return "", fmt.Errorf("%w: unknown tutor mode %q", ErrInvalidInput, s)
	}
	return m, nil
}

// FlashcardKind picks the flashcard prompt.
type FlashcardKind string

const (
	FlashcardsGeneral FlashcardKind = "general"
	FlashcardsEnglish FlashcardKind = "english"
)

// ChatTurn is one prior message of a conversation. Role is "user" or "model".
type ChatTurn struct {
	Role    string `json:"role" validate:"required,oneof=user model assistant"`
	Content string `json:"content" validate:"required"`
}

type EditalAnalysis struct {
	Institution string        `json:"institution"`
	Position    string        `json:"position"`
	Summary     string        `json:"summary"`
	Tips        []string      `json:"tips"`
	Subjects    []SubjectPlan `json:"subjects"`
}

type SubjectPlan struct {
	Name   string      `json:"name"`
	Weight int         `json:"weight"`
	Topics []TopicPlan `json:"topics"`
}

type TopicPlan struct {
	Name string `json:"name"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type EnglishLesson struct {
	Title      string         `json:"title"`
	Vocabulary []Vocabulary   `json:"vocabulary"`
	Dialogue   []DialogueLine `json:"dialogue"`
	GrammarTip string         `json:"grammarTip"`
}

type Vocabulary struct {
	Word        string `json:"word"`
	Translation string `json:"translation"`
	Example     string `json:"example"`
}

type DialogueLine struct {
	Speaker     string `json:"speaker"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

// Prediction is the approval forecast shown on the predictive dashboard.
type Prediction struct {
	ApprovalProbability float64  `json:"approvalProbability"`
	ProjectedScore      float64  `json:"projectedScore"`
	WeakestSubject      string   `json:"weakestSubject"`
	StrongestSubject    string   `json:"strongestSubject"`
	Insights            []string `json:"insights"`
}

// Question is a multiple-choice item. CorrectIndex points into Options.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// QuestionSet is the wire form of lab questions and simulados.
type QuestionSet struct {
	Questions []Question `json:"questions"`
}

type CareerGuide struct {
	SalaryRange   string   `json:"salaryRange"`
	StepsToPosse  []string `json:"stepsToPosse"`
	TAFTips       string   `json:"tafTips"`
	Documentation []string `json:"documentation"`
}

// Recommendation is a next-step suggestion on the dashboard.
type Recommendation struct {
	Title    string `json:"title"`
	Subtitle string `json:"sub"`
	Icon     string `json:"icon"`
	Action   string `json:"action"`
}
