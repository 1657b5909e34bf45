package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"studyprep/internal/store"
	"studyprep/internal/study"
)

type createUserRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=80"`
	Email string `json:"email" validate:"required,email"`
}

func (s *Server) handleCreateUser(c echo.Context) error {
	var req createUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := s.study.RegisterUser(c.Request().Context(), req.Name, req.Email)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (s *Server) handleGetUser(c echo.Context) error {
	u, err := s.study.User(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (s *Server) handleRecommendations(c echo.Context) error {
	recs, err := s.study.Recommendations(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"recommendations": recs})
}

type importEditalRequest struct {
	UserID string `json:"userId" validate:"required"`
	Title  string `json:"title" validate:"max=200"`
	Text   string `json:"text" validate:"required,min=20"`
}

func (s *Server) handleImportEdital(c echo.Context) error {
	var req importEditalRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	e, err := s.study.ImportEdital(c.Request().Context(), req.UserID, req.Title, req.Text)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (s *Server) handleListEditais(c echo.Context) error {
	userID, err := requiredQuery(c, "userId")
	if err != nil {
		return err
	}
	list, err := s.study.Editais(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"editais": list})
}

func (s *Server) handleGetEdital(c echo.Context) error {
	e, err := s.study.Edital(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (s *Server) handleToggleTopic(c echo.Context) error {
	subject, err := s.study.ToggleTopic(c.Request().Context(), c.Param("id"), c.Param("sid"), c.Param("tid"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, subject)
}

type tutorChatRequest struct {
	History []study.ChatTurn `json:"history" validate:"max=100,dive"`
	Message string           `json:"message" validate:"required,max=4000"`
	Mode    string           `json:"mode"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleTutorChat(c echo.Context) error {
	var req tutorChatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	mode, err := study.ParseMode(req.Mode)
	if err != nil {
		return toHTTPError(err)
	}
	reply := s.study.TutorReply(c.Request().Context(), req.History, req.Message, mode)
	return c.JSON(http.StatusOK, replyResponse{Reply: reply})
}

type flashcardsRequest struct {
	Topic string `json:"topic" validate:"required,max=200"`
	Kind  string `json:"kind" validate:"omitempty,oneof=general english"`
}

func (s *Server) handleFlashcards(c echo.Context) error {
	var req flashcardsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	kind := study.FlashcardsGeneral
	if req.Kind != "" {
		kind = study.FlashcardKind(req.Kind)
	}
	if kind == study.FlashcardsEnglish {
		if err := s.featureEnabled(c, "english", func(f store.Features) bool { return f.English }); err != nil {
			return err
		}
	}
	cards := s.study.Flashcards(c.Request().Context(), req.Topic, kind)
	return c.JSON(http.StatusOK, map[string]any{"flashcards": cards})
}

type englishLessonRequest struct {
	Level string `json:"level" validate:"max=40"`
}

func (s *Server) handleEnglishLesson(c echo.Context) error {
	var req englishLessonRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.study.EnglishLesson(c.Request().Context(), req.Level))
}

type englishChatRequest struct {
	History []study.ChatTurn `json:"history" validate:"max=100,dive"`
	Message string           `json:"message" validate:"required,max=4000"`
	Level   string           `json:"level" validate:"max=40"`
}

func (s *Server) handleEnglishChat(c echo.Context) error {
	var req englishChatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	reply := s.study.EnglishReply(c.Request().Context(), req.History, req.Message, req.Level)
	return c.JSON(http.StatusOK, replyResponse{Reply: reply})
}

type predictiveRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func (s *Server) handlePredictive(c echo.Context) error {
	var req predictiveRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.study.Predict(c.Request().Context(), req.UserID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type labQuestionsRequest struct {
	Subject    string `json:"subject" validate:"required,max=200"`
	Difficulty string `json:"difficulty" validate:"max=40"`
}

func (s *Server) handleLabQuestions(c echo.Context) error {
	var req labQuestionsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.study.LabQuestions(c.Request().Context(), req.Subject, req.Difficulty))
}

type generateSimuladoRequest struct {
	UserID   string   `json:"userId"`
	Subjects []string `json:"subjects" validate:"max=20,dive,required,max=200"`
}

// handleGenerateSimulado falls back to the subjects of the user's first edital
// when none are given.
func (s *Server) handleGenerateSimulado(c echo.Context) error {
	var req generateSimuladoRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	subjects := req.Subjects
	if len(subjects) == 0 && req.UserID != "" {
		editais, err := s.study.Editais(ctx, req.UserID)
		if err != nil {
			return toHTTPError(err)
		}
		if len(editais) > 0 {
			for _, sub := range editais[0].Subjects {
				subjects = append(subjects, sub.Name)
			}
		}
	}
	return c.JSON(http.StatusOK, s.study.Simulado(ctx, subjects))
}

type recordSimuladoRequest struct {
	UserID         string           `json:"userId" validate:"required"`
	Title          string           `json:"title" validate:"max=200"`
	Type           string           `json:"type" validate:"max=40"`
	TotalQuestions int              `json:"totalQuestions" validate:"gte=0,lte=50"`
	Score          int              `json:"score" validate:"gte=0,lte=50"`
	Questions      []study.Question `json:"questions" validate:"max=50"`
	Answers        []int            `json:"answers" validate:"max=50"`
}

type recordSimuladoResponse struct {
	Result store.SimuladoResult `json:"result"`
	User   store.User           `json:"user"`
}

// handleRecordSimulado grades the submitted answers when the questions are sent
// back; otherwise it trusts totalQuestions and score.
func (s *Server) handleRecordSimulado(c echo.Context) error {
	var req recordSimuladoRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	in := study.SimuladoOutcome{
		Title:          req.Title,
		TotalQuestions: req.TotalQuestions,
		Score:          req.Score,
		Type:           req.Type,
	}
	if len(req.Questions) > 0 {
		in.TotalQuestions = len(req.Questions)
		in.Score = study.GradeSimulado(req.Questions, req.Answers)
	}

	result, user, err := s.study.RecordSimulado(c.Request().Context(), req.UserID, in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, recordSimuladoResponse{Result: result, User: user})
}

func (s *Server) handleListSimulados(c echo.Context) error {
	userID, err := requiredQuery(c, "userId")
	if err != nil {
		return err
	}
	results, err := s.study.SimuladoResults(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"results": results})
}

type careerRequest struct {
	Position string `json:"position" validate:"required,max=200"`
}

func (s *Server) handleCareer(c echo.Context) error {
	var req careerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.study.CareerGuide(c.Request().Context(), req.Position))
}

type explainRequest struct {
	Topic   string `json:"topic" validate:"required,max=200"`
	Subject string `json:"subject" validate:"max=200"`
}

type explanationResponse struct {
	Explanation string `json:"explanation"`
}

func (s *Server) handleExplainTopic(c echo.Context) error {
	var req explainRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	text := s.study.ExplainTopic(c.Request().Context(), req.Topic, req.Subject)
	return c.JSON(http.StatusOK, explanationResponse{Explanation: text})
}

func (s *Server) featureEnabled(c echo.Context, name string, enabled func(store.Features) bool) error {
	return s.requireFeature(name, enabled)(func(echo.Context) error { return nil })(c)
}
