package study

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyprep/internal/cache"
	"studyprep/internal/guard"
	"studyprep/internal/models"
	"studyprep/internal/store"
)

type fakeGen struct {
	mu    sync.Mutex
	reply func(req models.GenerateRequest) (string, error)
	calls []models.GenerateRequest
}

func (f *fakeGen) Generate(ctx context.Context, req models.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.reply(req)
}

func (f *fakeGen) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGen) last() models.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func replying(text string) *fakeGen {
	return &fakeGen{reply: func(models.GenerateRequest) (string, error) { return text, nil }}
}

func failing(err error) *fakeGen {
	return &fakeGen{reply: func(models.GenerateRequest) (string, error) { return "", err }}
}

func newService(t *testing.T, gen Generator, opts ...guard.Option) (*Service, *store.Memory) {
	t.Helper()
	repo := store.NewMemory()
	return NewService(gen, guard.New(opts...), repo), repo
}

func TestAnalyzeEditalParsesFencedJSON(t *testing.T) {
	gen := replying("Claro! Segue o plano:\n```json\n{\"institution\":\"CESPE\",\"position\":\"Analista\",\"subjects\":[{\"name\":\"Português\",\"weight\":4,\"topics\":[{\"name\":\"Crase\"}]}]}\n```")
	svc, _ := newService(t, gen)

	got := svc.AnalyzeEdital(context.Background(), "EDITAL Nº 1 ...")
	assert.Equal(t, "CESPE", got.Institution)
	require.Len(t, got.Subjects, 1)
	assert.Equal(t, "Crase", got.Subjects[0].Topics[0].Name)
	assert.True(t, gen.last().JSON)
}

func TestAnalyzeEditalFallsBackOnTimeout(t *testing.T) {
	gen := &fakeGen{reply: func(models.GenerateRequest) (string, error) {
		time.Sleep(200 * time.Millisecond)
		return `{"institution":"late"}`, nil
	}}
	svc, _ := newService(t, gen, guard.WithTimeout(20*time.Millisecond))

	got := svc.AnalyzeEdital(context.Background(), "texto")
	assert.Equal(t, fallbackEdital(), got)
}

func TestEditalPrompt(t *testing.T) {
	long := strings.Repeat("é", maxEditalRunes+500)
	p := editalPrompt(long)
	_, content, found := strings.Cut(p, "Conteúdo: ")
	require.True(t, found)
	assert.Equal(t, strings.Repeat("é", maxEditalRunes), content)
	assert.Contains(t, p, "Analise este texto de edital.")

	p = editalPrompt(uploadMarker + ": edital.pdf")
	assert.Contains(t, p, "plano de estudos padrão")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "ação", truncateRunes("ação", 10))
	assert.Equal(t, "aç", truncateRunes("ação", 2))
	assert.Equal(t, "", truncateRunes("ação", 0))
}

func TestTutorReply(t *testing.T) {
	gen := replying("A crase é a fusão da preposição **a** com o artigo **a**.")
	svc, _ := newService(t, gen)

	history := make([]ChatTurn, 0, 12)
	for i := 0; i < 12; i++ {
		role := "user"
		if i%2 == 1 {
			role = "model"
		}
		history = append(history, ChatTurn{Role: role, Content: "msg"})
	}

	got := svc.TutorReply(context.Background(), history, "O que é crase?", ModeChild)
	assert.Equal(t, "A crase é a fusão da preposição **a** com o artigo **a**.", got)

	req := gen.last()
	assert.Len(t, req.History, tutorHistoryLimit)
	assert.Equal(t, models.RoleAssistant, req.History[len(req.History)-1].Role)
	assert.Contains(t, req.System, modeInstructions[ModeChild])
	assert.False(t, req.JSON)
}

func TestTutorReplyFallback(t *testing.T) {
	svc, _ := newService(t, failing(errors.New("503")))
	assert.Equal(t, tutorUnavailable, svc.TutorReply(context.Background(), nil, "oi", ModeStandard))
}

func TestEnglishReplyKeepsSixTurns(t *testing.T) {
	gen := replying("Great! You said it right.")
	svc, _ := newService(t, gen)

	history := make([]ChatTurn, 10)
	for i := range history {
		history[i] = ChatTurn{Role: "user", Content: "hello"}
	}
	assert.Equal(t, "Great! You said it right.", svc.EnglishReply(context.Background(), history, "How are you?", "B1"))
	assert.Len(t, gen.last().History, englishHistoryLimit)
	assert.Contains(t, gen.last().System, "level B1")

	svc, _ = newService(t, replying(""))
	assert.Equal(t, englishUnavailable, svc.EnglishReply(context.Background(), nil, "hi", "A1"))
}

func TestFlashcards(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []Flashcard
	}{
		{
			name:  "top-level array",
			reply: `[{"front":"Crase","back":"a + a"}]`,
			want:  []Flashcard{{Front: "Crase", Back: "a + a"}},
		},
		{
			name:  "questions envelope",
			reply: `{"questions":[{"front":"Sujeito","back":"Quem pratica a ação"}]}`,
			want:  []Flashcard{{Front: "Sujeito", Back: "Quem pratica a ação"}},
		},
		{
			name:  "object without envelope",
			reply: `{"cards":[{"front":"x","back":"y"}]}`,
			want:  fallbackFlashcards(),
		},
		{
			name:  "prose",
			reply: "Desculpe, não consegui.",
			want:  fallbackFlashcards(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t, replying(tt.reply))
			assert.Equal(t, tt.want, svc.Flashcards(context.Background(), "Português", FlashcardsGeneral))
		})
	}
}

func TestFlashcardsPromptByKind(t *testing.T) {
	gen := replying("[]")
	svc, _ := newService(t, gen)

	svc.Flashcards(context.Background(), "travel", FlashcardsEnglish)
	assert.Contains(t, gen.last().Prompt, "English learning")

	svc.Flashcards(context.Background(), "Crase", "unknown")
	assert.Contains(t, gen.last().Prompt, "flashcards didáticos")
}

func TestFlashcardsRegenerateEachCall(t *testing.T) {
	gen := replying(`[{"front":"a","back":"b"}]`)
	svc, _ := newService(t, gen, guard.WithCache(cache.New(16, time.Minute)))

	svc.Flashcards(context.Background(), "direito penal", FlashcardsGeneral)
	svc.Flashcards(context.Background(), "direito penal", FlashcardsGeneral)
	assert.Equal(t, 2, gen.count())
}

func TestEnglishLessonIsCachedPerLevel(t *testing.T) {
	gen := replying(`{"title":"At the airport","vocabulary":[],"dialogue":[],"grammarTip":"-"}`)
	svc, _ := newService(t, gen, guard.WithCache(cache.New(16, time.Minute)))

	first := svc.EnglishLesson(context.Background(), "b1")
	second := svc.EnglishLesson(context.Background(), "B1")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, gen.count())

	svc.EnglishLesson(context.Background(), "C1")
	assert.Equal(t, 2, gen.count())
}

func TestEnglishLesson(t *testing.T) {
	svc, _ := newService(t, replying(`{"title":"At the airport","vocabulary":[{"word":"gate","translation":"portão","example":"Go to gate 5."}],"dialogue":[],"grammarTip":"Use 'at' para locais específicos."}`))
	got := svc.EnglishLesson(context.Background(), "A2")
	assert.Equal(t, "At the airport", got.Title)
	require.Len(t, got.Vocabulary, 1)

	svc, _ = newService(t, replying(`["not","an","object"]`))
	assert.Equal(t, fallbackLesson(), svc.EnglishLesson(context.Background(), "A2"))
}

func TestPredict(t *testing.T) {
	gen := replying(`{"approvalProbability":81,"projectedScore":77,"weakestSubject":"RLM","strongestSubject":"Português","insights":["Mantenha a sequência"]}`)
	svc, repo := newService(t, gen)

	u := store.NewUser("Ana", "ana@x.com")
	u.XP = 1250
	u.Streak = 3
	require.NoError(t, repo.CreateUser(context.Background(), u))

	got, err := svc.Predict(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(81), got.ApprovalProbability)
	assert.Contains(t, gen.last().Prompt, "1250 XP, 3 day streak")

	_, err = svc.Predict(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPredictFallback(t *testing.T) {
	svc, repo := newService(t, replying("{not json"))
	u := store.NewUser("Ana", "ana@x.com")
	require.NoError(t, repo.CreateUser(context.Background(), u))

	got, err := svc.Predict(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, fallbackPrediction(), got)
}

func TestLabQuestionsAndSimulado(t *testing.T) {
	payload := `Aqui está: {"questions":[{"text":"2+2?","options":["3","4","5","6"],"correctIndex":1,"explanation":"soma"}]}`
	svc, _ := newService(t, replying(payload))

	lab := svc.LabQuestions(context.Background(), "Matemática", "fácil")
	require.Len(t, lab.Questions, 1)
	assert.Equal(t, 1, lab.Questions[0].CorrectIndex)

	sim := svc.Simulado(context.Background(), []string{"Português"})
	require.Len(t, sim.Questions, 1)

	svc, _ = newService(t, failing(errors.New("down")))
	assert.Empty(t, svc.LabQuestions(context.Background(), "x", "y").Questions)
	assert.Equal(t, fallbackSimulado(), svc.Simulado(context.Background(), nil).Questions)
}

func TestSimuladoPromptDefaultsSubjects(t *testing.T) {
	assert.Contains(t, simuladoPrompt(nil), defaultSimuladoSubjects)
	assert.Contains(t, simuladoPrompt([]string{"Direito Penal", "Ética"}), "Direito Penal, Ética")
}

func TestCareerGuide(t *testing.T) {
	svc, _ := newService(t, replying(`{"salaryRange":"R$ 8.000 - 12.000","stepsToPosse":["Aprovação","Exames"],"tafTips":"Treine corrida","documentation":["RG"]}`))
	got := svc.CareerGuide(context.Background(), "Policial Federal")
	assert.Equal(t, "R$ 8.000 - 12.000", got.SalaryRange)

	svc, _ = newService(t, replying(""))
	assert.Equal(t, fallbackCareer(), svc.CareerGuide(context.Background(), "Policial Federal"))
}

func TestTextOperations(t *testing.T) {
	svc, _ := newService(t, replying("## Crase\nOcorre antes de palavras femininas."))
	assert.Equal(t, "## Crase\nOcorre antes de palavras femininas.", svc.ExplainTopic(context.Background(), "Crase", "Português"))

	svc, _ = newService(t, replying("   "))
	assert.Equal(t, explainUnavailable, svc.ExplainTopic(context.Background(), "Crase", "Português"))

	svc, _ = newService(t, failing(errors.New("quota")))
	assert.Equal(t, marketingFailed, svc.MarketingCopy(context.Background(), "Black Friday", "post"))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeStandard, m)

	m, err = ParseMode("funny")
	require.NoError(t, err)
	assert.Equal(t, ModeFunny, m)

	_, err = ParseMode("pirate")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
