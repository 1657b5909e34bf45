package study

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyprep/internal/store"
)

const editalReply = `{"institution":"FGV","position":"Técnico","summary":"Foque em português.","tips":["Revise"],
"subjects":[{"name":"Português","weight":9,"topics":[{"name":"Crase"},{"name":"Regência"},{"name":""}]},
{"name":"Informática","weight":2,"topics":[{"name":"Redes"}]},{"name":" ","topics":[]}]}`

func seedUser(t *testing.T, svc *Service) store.User {
	t.Helper()
	u, err := svc.RegisterUser(context.Background(), " Ana ", "ANA@Example.com ")
	require.NoError(t, err)
	return u
}

func TestRegisterUser(t *testing.T) {
	svc, _ := newService(t, replying(""))
	u := seedUser(t, svc)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "ana@example.com", u.Email)

	_, err := svc.RegisterUser(context.Background(), "Outra", "ana@example.com")
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestImportEditalReady(t *testing.T) {
	svc, repo := newService(t, replying(editalReply))
	u := seedUser(t, svc)

	e, err := svc.ImportEdital(context.Background(), u.ID, "", "EDITAL FGV 2025 ...")
	require.NoError(t, err)

	assert.Equal(t, store.EditalReady, e.Status)
	assert.Equal(t, "Técnico - FGV", e.Title)
	require.Len(t, e.Subjects, 2)
	assert.Equal(t, defaultWeight, e.Subjects[0].Weight, "out of range weight is clamped")
	assert.Len(t, e.Subjects[0].Topics, 2)
	assert.NotEmpty(t, e.Subjects[0].Topics[0].ID)

	stored, err := repo.GetEdital(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Subjects, stored.Subjects)

	got, err := repo.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, editalImportXP, got.XP)
}

func TestImportEditalUsesGenericPlanOnFailure(t *testing.T) {
	svc, _ := newService(t, failing(errors.New("timeout")))
	u := seedUser(t, svc)

	e, err := svc.ImportEdital(context.Background(), u.ID, "Meu edital", "[ARQUIVO CARREGADO]: edital.pdf")
	require.NoError(t, err)
	assert.Equal(t, store.EditalReady, e.Status)
	assert.Equal(t, "Meu edital", e.Title)
	assert.Equal(t, "Banca Examinadora", e.Institution)
	assert.Len(t, e.Subjects, 3)
}

func TestImportEditalWithoutSubjectsIsError(t *testing.T) {
	svc, repo := newService(t, replying(`{"institution":"X","subjects":[]}`))
	u := seedUser(t, svc)

	e, err := svc.ImportEdital(context.Background(), u.ID, "", "texto")
	require.NoError(t, err)
	assert.Equal(t, store.EditalError, e.Status)
	assert.Equal(t, editalReadFailure, e.Failure)

	got, err := repo.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Zero(t, got.XP)
}

func TestImportEditalUnknownUser(t *testing.T) {
	svc, _ := newService(t, replying(editalReply))
	_, err := svc.ImportEdital(context.Background(), "ghost", "", "texto")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSettleRejectsSecondTransition(t *testing.T) {
	svc, repo := newService(t, replying(""))
	ctx := context.Background()
	require.NoError(t, repo.SaveEdital(ctx, store.Edital{ID: "e", Status: store.EditalReady}))

	// The stale copy claims processing; the stored state wins.
	_, err := svc.settle(ctx, store.Edital{ID: "e", Status: store.EditalProcessing}, store.EditalError, func(*store.Edital) {})
	assert.Error(t, err)

	got, err := repo.GetEdital(ctx, "e")
	require.NoError(t, err)
	assert.Equal(t, store.EditalReady, got.Status)
}

func TestToggleTopicRecomputesProgress(t *testing.T) {
	svc, _ := newService(t, replying(editalReply))
	u := seedUser(t, svc)
	e, err := svc.ImportEdital(context.Background(), u.ID, "", "texto")
	require.NoError(t, err)

	sub := e.Subjects[0]
	got, err := svc.ToggleTopic(context.Background(), e.ID, sub.ID, sub.Topics[0].ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, got.Progress, 1e-9)
	assert.True(t, got.Topics[0].Studied)
	assert.Equal(t, 1, got.Topics[0].ReviewCount)

	got, err = svc.ToggleTopic(context.Background(), e.ID, sub.ID, sub.Topics[1].ID)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, got.Progress, 1e-9)

	got, err = svc.ToggleTopic(context.Background(), e.ID, sub.ID, sub.Topics[0].ID)
	require.NoError(t, err)
	assert.False(t, got.Topics[0].Studied)
	assert.InDelta(t, 50.0, got.Progress, 1e-9)

	_, err = svc.ToggleTopic(context.Background(), e.ID, "nope", sub.Topics[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.ToggleTopic(context.Background(), e.ID, sub.ID, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.ToggleTopic(context.Background(), "nope", sub.ID, sub.Topics[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// slowReads widens the window between reading and writing an edital.
type slowReads struct {
	*store.Memory
}

func (r slowReads) GetEdital(ctx context.Context, id string) (store.Edital, error) {
	time.Sleep(5 * time.Millisecond)
	return r.Memory.GetEdital(ctx, id)
}

func TestToggleTopicConcurrentTogglesAllLand(t *testing.T) {
	ctx := context.Background()
	repo := slowReads{store.NewMemory()}
	svc := NewService(replying(""), nil, repo)

	topics := make([]store.Topic, 20)
	for i := range topics {
		topics[i] = store.Topic{ID: fmt.Sprintf("t%d", i), Name: fmt.Sprintf("Tópico %d", i)}
	}
	require.NoError(t, repo.SaveEdital(ctx, store.Edital{
		ID:       "e1",
		Status:   store.EditalReady,
		Subjects: []store.Subject{{ID: "s1", Name: "Português", Topics: topics}},
	}))

	var wg sync.WaitGroup
	for _, topic := range topics {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.ToggleTopic(ctx, "e1", "s1", id)
			assert.NoError(t, err)
		}(topic.ID)
	}
	wg.Wait()

	e, err := repo.GetEdital(ctx, "e1")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, e.Subjects[0].Progress, 1e-9)
	for _, topic := range e.Subjects[0].Topics {
		assert.True(t, topic.Studied, topic.ID)
	}
}

func TestGradeSimulado(t *testing.T) {
	qs := []Question{{CorrectIndex: 0}, {CorrectIndex: 2}, {CorrectIndex: 1}}
	assert.Equal(t, 2, GradeSimulado(qs, []int{0, 2, 3}))
	assert.Equal(t, 1, GradeSimulado(qs, []int{0}))
	assert.Equal(t, 0, GradeSimulado(qs, nil))
}

func TestRecordSimulado(t *testing.T) {
	svc, _ := newService(t, replying(""))
	u := seedUser(t, svc)
	ctx := context.Background()

	r, updated, err := svc.RecordSimulado(ctx, u.ID, SimuladoOutcome{TotalQuestions: 10, Score: 8})
	require.NoError(t, err)
	assert.Equal(t, "Simulado IA #1", r.Title)
	assert.Equal(t, "general", r.Type)
	assert.Equal(t, 100, updated.XP)

	r, updated, err = svc.RecordSimulado(ctx, u.ID, SimuladoOutcome{TotalQuestions: 5, Score: 1, Type: "english"})
	require.NoError(t, err)
	assert.Equal(t, "Simulado IA #2", r.Title)
	assert.Equal(t, 150, updated.XP)

	list, err := svc.SimuladoResults(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Simulado IA #2", list[0].Title)

	_, _, err = svc.RecordSimulado(ctx, u.ID, SimuladoOutcome{TotalQuestions: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = svc.RecordSimulado(ctx, u.ID, SimuladoOutcome{TotalQuestions: 3, Score: 4})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = svc.RecordSimulado(ctx, u.ID, SimuladoOutcome{TotalQuestions: MaxSimuladoQuestions + 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = svc.RecordSimulado(ctx, "ghost", SimuladoOutcome{TotalQuestions: 3, Score: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecommendations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, replying(editalReply))
	u := seedUser(t, svc)

	recs, err := svc.Recommendations(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "Configurar Meu Edital", recs[0].Title)
	assert.Equal(t, "Fazer 1º Simulado", recs[1].Title)
	assert.Equal(t, "Inglês - Prática Diária", recs[2].Title)

	e, err := svc.ImportEdital(ctx, u.ID, "", "texto")
	require.NoError(t, err)
	_, _, err = svc.RecordSimulado(ctx, u.ID, SimuladoOutcome{TotalQuestions: 10, Score: 0})
	require.NoError(t, err)

	recs, err = svc.Recommendations(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "Estudar Português", recs[0].Title)
	assert.Equal(t, "/subject/"+e.ID+"/"+e.Subjects[0].ID, recs[0].Action)
	assert.Equal(t, "Revisão de Erros", recs[1].Title)

	_, _, err = svc.RecordSimulado(ctx, u.ID, SimuladoOutcome{TotalQuestions: 10, Score: 9})
	require.NoError(t, err)
	recs, err = svc.Recommendations(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Novo Simulado Avançado", recs[1].Title)
}

func TestRecommendationsSkipFinishedSubjects(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t, replying(""))
	u := seedUser(t, svc)

	require.NoError(t, repo.SaveEdital(ctx, store.Edital{
		ID:       "e1",
		UserID:   u.ID,
		Status:   store.EditalReady,
		Subjects: []store.Subject{{ID: "s1", Name: "Feita", Progress: 100}},
	}))

	recs, err := svc.Recommendations(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Fazer 1º Simulado", recs[0].Title)
}
