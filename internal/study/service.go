// Package study implements the AI-backed study features and the progress rules
// around them. Every generation goes through the guard, so operations here never
// fail because of the model: they return a declared fallback instead.
package study

import (
	"context"
	"strings"
	"time"

	"studyprep/internal/cache"
	"studyprep/internal/guard"
	"studyprep/internal/models"
	"studyprep/internal/store"
)

const (
	tutorHistoryLimit   = 8
	englishHistoryLimit = 6
)

// Generator produces model text for a request. *router.Router satisfies it.
type Generator interface {
	Generate(ctx context.Context, req models.GenerateRequest) (string, error)
}

// Service exposes the study operations.
type Service struct {
	gen   Generator
	guard *guard.Guard
	repo  store.Repository
	now   func() time.Time
}

// NewService wires a Service. A nil guard gets the default 15s bound.
func NewService(gen Generator, g *guard.Guard, repo store.Repository) *Service {
	if g == nil {
		g = guard.New()
	}
	return &Service{
		gen:   gen,
		guard: g,
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) op(req models.GenerateRequest) guard.Operation {
	return func(ctx context.Context) (string, error) {
		return s.gen.Generate(ctx, req)
	}
}

// AnalyzeEdital turns edital text into a study plan.
func (s *Service) AnalyzeEdital(ctx context.Context, text string) EditalAnalysis {
	spec := guard.Spec[EditalAnalysis]{
		Name:     "edital",
		Shape:    guard.ShapeObject,
		Fallback: fallbackEdital(),
	}
	return guard.Call(ctx, s.guard, spec, s.op(models.GenerateRequest{
		Prompt: editalPrompt(text),
		JSON:   true,
	}))
}

// TutorReply answers a student message in the requested teaching mode.
func (s *Service) TutorReply(ctx context.Context, history []ChatTurn, message string, mode Mode) string {
	if _, ok := modeInstructions[mode]; !ok {
		mode = ModeStandard
	}
	spec := guard.Spec[string]{
		Name:     "tutor",
		Shape:    guard.ShapeText,
		Fallback: tutorUnavailable,
	}
	return guard.Call(ctx, s.guard, spec, s.op(models.GenerateRequest{
		System:  tutorSystem(mode),
		History: toMessages(history, tutorHistoryLimit),
		Prompt:  message,
	}))
}

// Flashcards generates five cards about topic. Every call asks for a fresh set, so
// it is never served from the cache.
func (s *Service) Flashcards(ctx context.Context, topic string, kind FlashcardKind) []Flashcard {
	if kind != FlashcardsEnglish {
		kind = FlashcardsGeneral
	}
	spec := guard.Spec[[]Flashcard]{
		Name:     "flashcards",
		Shape:    guard.ShapeList,
		Fallback: fallbackFlashcards(),
	}
	return guard.Call(ctx, s.guard, spec, s.op(models.GenerateRequest{
		Prompt: flashcardPrompt(topic, kind),
		JSON:   true,
	}))
}

// EnglishLesson generates a short lesson for a CEFR level.
func (s *Service) EnglishLesson(ctx context.Context, level string) EnglishLesson {
	spec := guard.Spec[EnglishLesson]{
		Name:     "english_lesson",
		Shape:    guard.ShapeObject,
		Fallback: fallbackLesson(),
		CacheKey: cache.Key(strings.ToUpper(level)),
	}
	return guard.Call(ctx, s.guard, spec, s.op(models.GenerateRequest{
		Prompt: lessonPrompt(level),
		JSON:   true,
	}))
}

// EnglishReply continues an English conversation practice.
func (s *Service) EnglishReply(ctx context.Context, history []ChatTurn, message, level string) string {
	spec := guard.Spec[string]{
		Name:     "english_chat",
		Shape:    guard.ShapeText,
		Fallback: englishUnavailable,
	}
	return guard.Call(ctx, s.guard, spec, s.op(models.GenerateRequest{
		System:  englishTutorSystem(level),
		History: toMessages(history, englishHistoryLimit),
		Prompt:  message,
	}))
}

// Predict forecasts the user's approval chances from their XP and streak.
func (s *Service) Predict(ctx context.Context, userID string) (Prediction, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return Prediction{}, err
	}
	spec := guard.Spec[Prediction]{
		Name:     "predictive",
		Shape:    guard.ShapeObject,
		Fallback: fallbackPrediction(),
	}
	return guard.Call(ctx, s.guard, spec, s.op(models.GenerateRequest{
		Prompt: predictionPrompt(u.XP, u.Streak),
		JSON:   true,
	})), nil
}

// LabQuestions generates five practice questions.
func (s *Service) LabQuestions(ctx context.Context, subject, difficulty string) QuestionSet {
	spec := guard.Spec[[]Question]{
		Name:     "lab_questions",
		Shape:    guard.ShapeList,
		Fallback: fallbackLabQuestions(),
	}
	return QuestionSet{Questions: guard.Call(ctx, s.guard, spec, s.op(models.GenerateRequest{
		Prompt: labPrompt(subject, difficulty),
		JSON:   true,
	}))}
}

// Simulado generates a ten-question mock exam over subjects.
func (s *Service) Simulado(ctx context.Context, subjects []string) QuestionSet {
	spec := guard.Spec[[]Question]{
		Name:     "simulado",
		Shape:    guard.ShapeList,
		Fallback: fallbackSimulado(),
	}
	return QuestionSet{Questions: guard.Call(ctx, s.guard, spec, s.op(models.GenerateRequest{
		Prompt: simuladoPrompt(subjects),
		JSON:   true,
	}))}
}

// CareerGuide describes salary, onboarding steps and documents for a position.
func (s *Service) CareerGuide(ctx context.Context, position string) CareerGuide {
	spec := guard.Spec[CareerGuide]{
		Name:     "career",
		Shape:    guard.ShapeObject,
		Fallback: fallbackCareer(),
		CacheKey: cache.Key(normalize(position)),
	}
	return guard.Call(ctx, s.guard, spec, s.op(models.GenerateRequest{
		Prompt: careerPrompt(position),
		JSON:   true,
	}))
}

// ExplainTopic writes a short markdown explanation of a topic.
func (s *Service) ExplainTopic(ctx context.Context, topic, subject string) string {
	spec := guard.Spec[string]{
		Name:     "explain_topic",
		Shape:    guard.ShapeText,
		Fallback: explainUnavailable,
		CacheKey: cache.Key(normalize(subject), normalize(topic)),
	}
	return guard.Call(ctx, s.guard, spec, s.op(models.GenerateRequest{
		Prompt: explainPrompt(topic, subject),
	}))
}

// MarketingCopy drafts promotional content for the admin console.
func (s *Service) MarketingCopy(ctx context.Context, topic, kind string) string {
	spec := guard.Spec[string]{
		Name:     "marketing",
		Shape:    guard.ShapeText,
		Fallback: marketingFailed,
	}
	return guard.Call(ctx, s.guard, spec, s.op(models.GenerateRequest{
		Prompt: marketingPrompt(topic, kind),
	}))
}

// toMessages keeps the last limit turns and maps the "model" role to assistant.
func toMessages(history []ChatTurn, limit int) []models.Message {
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]models.Message, 0, len(history))
	for _, h := range history {
		role := models.RoleUser
		if h.Role == "model" || h.Role == models.RoleAssistant {
			role = models.RoleAssistant
		}
		out = append(out, models.Message{Role: role, Content: h.Content})
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
