package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyprep/internal/admin"
	"studyprep/internal/config"
	"studyprep/internal/guard"
	"studyprep/internal/models"
	"studyprep/internal/store"
	"studyprep/internal/study"
)

const adminToken = "s3cret"

type scriptedGen struct {
	reply func(req models.GenerateRequest) (string, error)
}

func (g scriptedGen) Generate(ctx context.Context, req models.GenerateRequest) (string, error) {
	return g.reply(req)
}

func replyWith(text string) scriptedGen {
	return scriptedGen{reply: func(models.GenerateRequest) (string, error) { return text, nil }}
}

func testConfig(token string) config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080},
		Log:    config.LogConfig{Level: "info", Format: "text"},
		AI:     config.AIConfig{DefaultModel: "gpt-4o-mini"},
		Providers: config.ProvidersConfig{
			OpenAI: &config.ProviderConfig{
				APIKey:  "sk-test",
				BaseURL: "https://api.openai.com/v1",
				Models:  []config.ModelConfig{{ID: "gpt-4o-mini", APIStyle: config.APIStyleOpenAI}},
			},
		},
		Store: config.StoreConfig{Driver: config.StoreMemory},
		Admin: config.AdminConfig{Token: token},
	}
}

func newTestServer(t *testing.T, gen study.Generator, token string) (*Server, *store.Memory) {
	t.Helper()
	repo := store.NewMemory()
	stats := guard.NewStats()
	g := guard.New(guard.WithRecorder(stats))
	srv, err := New(testConfig(token), study.NewService(gen, g, repo), admin.NewService(repo, stats), repo)
	require.NoError(t, err)
	return srv, repo
}

func do(t *testing.T, srv *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createUser(t *testing.T, srv *Server) store.User {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/v1/users", `{"name":"Ana","email":"ana@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[store.User](t, rec)
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	repo := store.NewMemory()
	svc := study.NewService(replyWith(""), nil, repo)

	_, err := New(testConfig(""), nil, admin.NewService(repo, nil), repo)
	assert.Error(t, err)
	_, err = New(testConfig(""), svc, nil, repo)
	assert.Error(t, err)
	_, err = New(config.Config{}, svc, admin.NewService(repo, nil), repo)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, replyWith(""), "")
	rec := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateUserValidationAndConflict(t *testing.T) {
	srv, _ := newTestServer(t, replyWith(""), "")

	u := createUser(t, srv)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, store.RoleStudent, u.Role)

	rec := do(t, srv, http.MethodPost, "/v1/users", `{"name":"Ana","email":"ANA@example.com"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodPost, "/v1/users", `{"name":"Ana","email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "invalid_request_error", body.Error.Type)
	assert.Contains(t, body.Error.Message, "email")

	rec = do(t, srv, http.MethodPost, "/v1/users", `{"name":"Ana"} {}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "single JSON object")
}

func TestGetUnknownUserReturnsNotFound(t *testing.T) {
	srv, _ := newTestServer(t, replyWith(""), "")
	rec := do(t, srv, http.MethodGet, "/v1/users/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found_error", decode[errorBody](t, rec).Error.Type)
}

func TestFlashcardsDegradeInsteadOfFailing(t *testing.T) {
	t.Run("fenced json", func(t *testing.T) {
		srv, _ := newTestServer(t, replyWith("```json\n[{\"front\":\"Crase\",\"back\":\"a + a\"}]\n```"), "")
		rec := do(t, srv, http.MethodPost, "/v1/flashcards", `{"topic":"Crase"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		out := decode[struct {
			Flashcards []study.Flashcard `json:"flashcards"`
		}](t, rec)
		assert.Equal(t, []study.Flashcard{{Front: "Crase", Back: "a + a"}}, out.Flashcards)
	})

	t.Run("provider failure", func(t *testing.T) {
		gen := scriptedGen{reply: func(models.GenerateRequest) (string, error) { return "", errors.New("boom") }}
		srv, _ := newTestServer(t, gen, "")
		rec := do(t, srv, http.MethodPost, "/v1/flashcards", `{"topic":"Crase"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Erro na IA")
	})
}

func TestTutorChatRejectsUnknownMode(t *testing.T) {
	srv, _ := newTestServer(t, replyWith("Olá!"), "")

	rec := do(t, srv, http.MethodPost, "/v1/tutor/chat", `{"message":"oi","mode":"pirate"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/v1/tutor/chat", `{"message":"oi","mode":"funny","history":[{"role":"model","content":"Oi!"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"Olá!"}`, rec.Body.String())
}

func TestDisabledFeaturesReturnForbidden(t *testing.T) {
	srv, repo := newTestServer(t, replyWith("Hi!"), "")
	cfg := store.DefaultConfig()
	cfg.Features.English = false
	cfg.Features.TutorIA = false
	require.NoError(t, repo.SaveConfig(context.Background(), cfg))

	for _, tc := range []struct{ path, body string }{
		{"/v1/english/chat", `{"message":"hello"}`},
		{"/v1/english/lesson", `{"level":"B1"}`},
		{"/v1/tutor/chat", `{"message":"oi"}`},
		{"/v1/flashcards", `{"topic":"travel","kind":"english"}`},
	} {
		rec := do(t, srv, http.MethodPost, tc.path, tc.body)
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.path)
		assert.Equal(t, "feature_disabled", decode[errorBody](t, rec).Error.Type, tc.path)
	}

	rec := do(t, srv, http.MethodPost, "/v1/flashcards", `{"topic":"Crase"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLabQuestionsUnwrapsEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, replyWith(`{"questions":[{"text":"2+2?","options":["3","4"],"correctIndex":1,"explanation":"soma"}]}`), "")
	rec := do(t, srv, http.MethodPost, "/v1/questions/lab", `{"subject":"Matemática","difficulty":"Fácil"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	set := decode[study.QuestionSet](t, rec)
	require.Len(t, set.Questions, 1)
	assert.Equal(t, 1, set.Questions[0].CorrectIndex)
}

func TestEditalImportAndToggle(t *testing.T) {
	srv, _ := newTestServer(t, replyWith(`{"institution":"CESPE","position":"Analista","subjects":[{"name":"Português","weight":4,"topics":[{"name":"Crase"},{"name":"Regência"}]}]}`), "")
	u := createUser(t, srv)

	rec := do(t, srv, http.MethodPost, "/v1/editais", `{"userId":"`+u.ID+`","text":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/v1/editais", `{"userId":"`+u.ID+`","text":"Edital de abertura do concurso para Analista Judiciário"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	e := decode[store.Edital](t, rec)
	assert.Equal(t, store.EditalReady, e.Status)
	require.Len(t, e.Subjects, 1)
	require.Len(t, e.Subjects[0].Topics, 2)

	path := "/v1/editais/" + e.ID + "/subjects/" + e.Subjects[0].ID + "/topics/" + e.Subjects[0].Topics[0].ID + "/toggle"
	rec = do(t, srv, http.MethodPost, path, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.InDelta(t, 50.0, decode[store.Subject](t, rec).Progress, 0.001)

	rec = do(t, srv, http.MethodGet, "/v1/editais", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/editais?userId="+u.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]store.Edital](t, rec)["editais"], 1)
}

func TestRecordSimuladoGradesAnswers(t *testing.T) {
	srv, _ := newTestServer(t, replyWith(""), "")
	u := createUser(t, srv)

	body := `{"userId":"` + u.ID + `","questions":[` +
		`{"text":"a","options":["x","y"],"correctIndex":0},` +
		`{"text":"b","options":["x","y"],"correctIndex":1}],"answers":[0,0]}`
	rec := do(t, srv, http.MethodPost, "/v1/simulados/results", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	out := decode[recordSimuladoResponse](t, rec)
	assert.Equal(t, 2, out.Result.TotalQuestions)
	assert.Equal(t, 1, out.Result.Score)
	assert.Equal(t, "Simulado IA #1", out.Result.Title)
	assert.Equal(t, 20, out.User.XP)

	rec = do(t, srv, http.MethodPost, "/v1/simulados/results", `{"userId":"`+u.ID+`","totalQuestions":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/simulados/results?userId="+u.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]store.SimuladoResult](t, rec)["results"], 1)
}

func TestRecordSimuladoBoundsXP(t *testing.T) {
	srv, _ := newTestServer(t, replyWith(""), "")
	u := createUser(t, srv)

	questions := make([]string, 51)
	for i := range questions {
		questions[i] = `{"text":"q","options":["a","b"],"correctIndex":0}`
	}
	body := `{"userId":"` + u.ID + `","questions":[` + strings.Join(questions, ",") + `]}`
	rec := do(t, srv, http.MethodPost, "/v1/simulados/results", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Error.Message, "questions")

	rec = do(t, srv, http.MethodPost, "/v1/simulados/results", `{"userId":"`+u.ID+`","totalQuestions":1000,"score":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/users/"+u.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[store.User](t, rec).XP)
}

func TestGenerateSimuladoUsesEditalSubjects(t *testing.T) {
	var prompt string
	gen := scriptedGen{reply: func(req models.GenerateRequest) (string, error) {
		if strings.Contains(req.Prompt, "simulado") || strings.Contains(req.Prompt, "Simulado") {
			prompt = req.Prompt
			return `[{"text":"q","options":["a","b"],"correctIndex":0}]`, nil
		}
		return `{"subjects":[{"name":"Direito Penal","weight":5,"topics":[{"name":"Crimes"}]}]}`, nil
	}}
	srv, _ := newTestServer(t, gen, "")
	u := createUser(t, srv)

	rec := do(t, srv, http.MethodPost, "/v1/editais", `{"userId":"`+u.ID+`","text":"Edital de abertura do concurso para Delegado"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/v1/simulados", `{"userId":"`+u.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[study.QuestionSet](t, rec).Questions, 1)
	assert.Contains(t, prompt, "Direito Penal")
}

func TestAdminRoutes(t *testing.T) {
	t.Run("disabled without token", func(t *testing.T) {
		srv, _ := newTestServer(t, replyWith(""), "")
		rec := do(t, srv, http.MethodGet, "/admin/stats", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	srv, _ := newTestServer(t, replyWith("Promo!"), adminToken)
	auth := []string{"Authorization", "Bearer " + adminToken}

	rec := do(t, srv, http.MethodGet, "/admin/stats", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, srv, http.MethodGet, "/admin/stats", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication_error", decode[errorBody](t, rec).Error.Type)

	u := createUser(t, srv)

	rec = do(t, srv, http.MethodPost, "/admin/users/"+u.ID+"/ban", "", auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[store.User](t, rec).Banned)

	rec = do(t, srv, http.MethodPost, "/admin/users/"+u.ID+"/promote", "", auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.RoleAdmin, decode[store.User](t, rec).Role)

	rec = do(t, srv, http.MethodGet, "/admin/users?q=ana", "", auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]store.User](t, rec)["users"], 1)

	rec = do(t, srv, http.MethodPost, "/admin/marketing", `{"topic":"Black Friday","kind":"instagram"}`, auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"copy":"Promo!"}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/admin/stats", "", auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[admin.Stats](t, rec)
	assert.Equal(t, 1, stats.Users)
	assert.Equal(t, 1, stats.BannedUsers)
	assert.EqualValues(t, 1, stats.AICalls)
}

func TestAdminConfigPatch(t *testing.T) {
	srv, _ := newTestServer(t, replyWith(""), adminToken)
	auth := []string{"Authorization", "Bearer " + adminToken}

	rec := do(t, srv, http.MethodPatch, "/admin/config", `{"primaryColor":"green"}`, auth...)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Error.Message, "primaryColor")

	rec = do(t, srv, http.MethodPatch, "/admin/config", `{"appName":"Aprova+","features":{"english":false}}`, auth...)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decode[store.SystemConfig](t, rec)
	assert.Equal(t, "Aprova+", cfg.AppName)
	assert.False(t, cfg.Features.English)
	assert.True(t, cfg.Features.TutorIA)

	rec = do(t, srv, http.MethodPost, "/v1/english/lesson", `{"level":"B1"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
