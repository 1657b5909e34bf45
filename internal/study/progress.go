package study

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"studyprep/internal/store"
)

// MaxSimuladoQuestions bounds a recorded simulado, and with it the XP one result can award.
const MaxSimuladoQuestions = 50

const (
	editalImportXP     = 150
	xpPerQuestion      = 10
	maxRecommendations = 3
	reviewThreshold    = 0.7
	defaultSubjectTone = "#00FF88"
	defaultWeight      = 3
	simuladoGeneral    = "general"
)

// RegisterUser creates a student account.
func (s *Service) RegisterUser(ctx context.Context, name, email string) (store.User, error) {
	u := store.NewUser(strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email)))
	u.CreatedAt = s.now()
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return store.User{}, err
	}
	return u, nil
}

// User loads a user by id.
func (s *Service) User(ctx context.Context, id string) (store.User, error) {
	return s.repo.GetUser(ctx, id)
}

// ImportEdital records a new edital in processing state, analyses the text and settles
// it as ready or error. A model failure still produces a ready edital built from the
// generic plan; only an analysis without subjects marks it as error.
func (s *Service) ImportEdital(ctx context.Context, userID, title, text string) (store.Edital, error) {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return store.Edital{}, err
	}

	e := store.Edital{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Status:    store.EditalProcessing,
		Subjects:  []store.Subject{},
		CreatedAt: s.now(),
	}
	if err := s.repo.SaveEdital(ctx, e); err != nil {
		return store.Edital{}, fmt.Errorf("save edital: %w", err)
	}

	analysis := s.AnalyzeEdital(ctx, text)
	if len(analysis.Subjects) == 0 {
		return s.settle(ctx, e, store.EditalError, func(e *store.Edital) {
			e.Failure = editalReadFailure
		})
	}

	settled, err := s.settle(ctx, e, store.EditalReady, func(e *store.Edital) {
		applyAnalysis(e, analysis)
	})
	if err != nil {
		return store.Edital{}, err
	}
	if _, err := s.repo.AddXP(ctx, userID, editalImportXP); err != nil {
		return store.Edital{}, fmt.Errorf("award edital xp: %w", err)
	}
	return settled, nil
}

// settle moves a processing edital to its final status. The transition is checked
// against the stored state so an edital settles at most once.
func (s *Service) settle(ctx context.Context, e store.Edital, next store.EditalStatus, apply func(*store.Edital)) (store.Edital, error) {
	return s.repo.UpdateEdital(ctx, e.ID, func(cur *store.Edital) error {
		if !cur.Status.CanTransition(next) {
			return fmt.Errorf("edital %s: cannot move from %s to %s", cur.ID, cur.Status, next)
		}
		apply(cur)
		cur.Status = next
		return nil
	})
}

func applyAnalysis(e *store.Edital, a EditalAnalysis) {
	e.Institution = a.Institution
	e.Position = a.Position
	e.Summary = a.Summary
	e.Tips = a.Tips
	if e.Title == "" {
		e.Title = strings.Trim(a.Position+" - "+a.Institution, " -")
	}

	e.Subjects = make([]store.Subject, 0, len(a.Subjects))
	for _, sp := range a.Subjects {
		if strings.TrimSpace(sp.Name) == "" {
			continue
		}
		weight := sp.Weight
		if weight < 1 || weight > 5 {
			weight = defaultWeight
		}
		subject := store.Subject{
			ID:     uuid.NewString(),
			Name:   sp.Name,
			Weight: weight,
			Color:  defaultSubjectTone,
			Topics: make([]store.Topic, 0, len(sp.Topics)),
		}
		for _, tp := range sp.Topics {
			if strings.TrimSpace(tp.Name) == "" {
				continue
			}
			subject.Topics = append(subject.Topics, store.Topic{ID: uuid.NewString(), Name: tp.Name})
		}
		e.Subjects = append(e.Subjects, subject)
	}
}

// Editais lists a user's editais, oldest first.
func (s *Service) Editais(ctx context.Context, userID string) ([]store.Edital, error) {
	return s.repo.ListEditais(ctx, userID)
}

// Edital loads one edital.
func (s *Service) Edital(ctx context.Context, id string) (store.Edital, error) {
	return s.repo.GetEdital(ctx, id)
}

// ToggleTopic flips a topic's studied flag and recomputes the subject's progress.
// The change is applied atomically so concurrent toggles on one edital all land.
func (s *Service) ToggleTopic(ctx context.Context, editalID, subjectID, topicID string) (store.Subject, error) {
	var out store.Subject
	_, err := s.repo.UpdateEdital(ctx, editalID, func(e *store.Edital) error {
		si := indexOf(e.Subjects, func(sub store.Subject) bool { return sub.ID == subjectID })
		if si < 0 {
			return fmt.Errorf("subject %s: %w", subjectID, store.ErrNotFound)
		}
		subject := &e.Subjects[si]

		ti := indexOf(subject.Topics, func(t store.Topic) bool { return t.ID == topicID })
		if ti < 0 {
			return fmt.Errorf("topic %s: %w", topicID, store.ErrNotFound)
		}

		topic := &subject.Topics[ti]
		topic.Studied = !topic.Studied
		if topic.Studied {
			now := s.now()
			topic.ReviewCount++
			topic.LastReview = &now
		}
		subject.Progress = progress(subject.Topics)

		out = *subject
		out.Topics = append([]store.Topic(nil), subject.Topics...)
		return nil
	})
	if err != nil {
		return store.Subject{}, err
	}
	return out, nil
}

func progress(topics []store.Topic) float64 {
	if len(topics) == 0 {
		return 0
	}
	done := 0
	for _, t := range topics {
		if t.Studied {
			done++
		}
	}
	return float64(done) / float64(len(topics)) * 100
}

// GradeSimulado counts answers matching each question's correct option.
// Unanswered questions use -1.
func GradeSimulado(questions []Question, answers []int) int {
	score := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectIndex {
			score++
		}
	}
	return score
}

// SimuladoOutcome is a finished mock exam submitted by a student.
type SimuladoOutcome struct {
	Title          string
	TotalQuestions int
	Score          int
	Type           string
}

// RecordSimulado stores a finished simulado and awards TotalQuestions*10 XP.
func (s *Service) RecordSimulado(ctx context.Context, userID string, in SimuladoOutcome) (store.SimuladoResult, store.User, error) {
	if in.TotalQuestions <= 0 || in.TotalQuestions > MaxSimuladoQuestions {
		return store.SimuladoResult{}, store.User{}, fmt.Errorf("%w: totalQuestions must be between 1 and %d", ErrInvalidInput, MaxSimuladoQuestions)
	}
	if in.Score < 0 || in.Score > in.TotalQuestions {
		return store.SimuladoResult{}, store.User{}, fmt.Errorf("%w: score must be between 0 and %d", ErrInvalidInput, in.TotalQuestions)
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return store.SimuladoResult{}, store.User{}, err
	}

	if in.Title == "" {
		previous, err := s.repo.ListSimuladoResults(ctx, userID)
		if err != nil {
			return store.SimuladoResult{}, store.User{}, err
		}
		in.Title = fmt.Sprintf("Simulado IA #%d", len(previous)+1)
	}
	if in.Type == "" {
		in.Type = simuladoGeneral
	}

	r := store.SimuladoResult{
		ID:             uuid.NewString(),
		UserID:         userID,
		Title:          in.Title,
		TotalQuestions: in.TotalQuestions,
		Score:          in.Score,
		Type:           in.Type,
		Date:           s.now(),
	}
	if err := s.repo.AddSimuladoResult(ctx, r); err != nil {
		return store.SimuladoResult{}, store.User{}, fmt.Errorf("save simulado result: %w", err)
	}

	u, err := s.repo.AddXP(ctx, userID, in.TotalQuestions*xpPerQuestion)
	if err != nil {
		return store.SimuladoResult{}, store.User{}, fmt.Errorf("award simulado xp: %w", err)
	}
	return r, u, nil
}

// SimuladoResults lists a user's results, newest first.
func (s *Service) SimuladoResults(ctx context.Context, userID string) ([]store.SimuladoResult, error) {
	return s.repo.ListSimuladoResults(ctx, userID)
}

// Recommendations suggests up to three next steps from the user's editais and simulados.
func (s *Service) Recommendations(ctx context.Context, userID string) ([]Recommendation, error) {
	editais, err := s.repo.ListEditais(ctx, userID)
	if err != nil {
		return nil, err
	}
	results, err := s.repo.ListSimuladoResults(ctx, userID)
	if err != nil {
		return nil, err
	}

	var recs []Recommendation
	if len(editais) == 0 {
		recs = append(recs, Recommendation{Title: "Configurar Meu Edital", Subtitle: "O primeiro passo para a aprovação", Icon: "BookOpen", Action: "/editais"})
	} else {
		first := editais[0]
		if si := indexOf(first.Subjects, func(sub store.Subject) bool { return sub.Progress < 100 }); si >= 0 {
			sub := first.Subjects[si]
			recs = append(recs, Recommendation{
				Title:    "Estudar " + sub.Name,
				Subtitle: "Continue de onde parou",
				Icon:     "Play",
				Action:   fmt.Sprintf("/subject/%s/%s", first.ID, sub.ID),
			})
		}
	}

	switch {
	case len(results) == 0:
		recs = append(recs, Recommendation{Title: "Fazer 1º Simulado", Subtitle: "Descubra seu nível atual", Icon: "Target", Action: "/simulados"})
	case float64(results[0].Score)/float64(max(results[0].TotalQuestions, 1)) < reviewThreshold:
		recs = append(recs, Recommendation{Title: "Revisão de Erros", Subtitle: "Reforce pontos fracos do último teste", Icon: "Zap", Action: "/flashcards"})
	default:
		recs = append(recs, Recommendation{Title: "Novo Simulado Avançado", Subtitle: "Aumente a dificuldade", Icon: "Target", Action: "/simulados"})
	}

	recs = append(recs, Recommendation{Title: "Inglês - Prática Diária", Subtitle: "Expanda seu vocabulário", Icon: "Globe", Action: "/ingles"})

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs, nil
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}
	return -1
}
