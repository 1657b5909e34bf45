package study

// Fallback values are built fresh on every call so callers may mutate them.

const (
	tutorUnavailable   = "⚠️ O Professor IA está recalculando a rota (Timeout). Por favor, pergunte novamente de outra forma."
	englishUnavailable = "I'm having trouble connecting. Can you repeat that?"
	explainUnavailable = "Serviço indisponível no momento."
	marketingFailed    = "Erro."

	editalReadFailure = "Falha na leitura da IA ou edital inválido."
)

func fallbackEdital() EditalAnalysis {
	return EditalAnalysis{
		Institution: "Banca Examinadora",
		Position:    "Cargo Público",
		Summary:     "Não foi possível ler os detalhes específicos, mas geramos um plano base.",
		Tips:        []string{"Foque nas matérias básicas", "Resolva muitas questões"},
		Subjects: []SubjectPlan{
			{Name: "Língua Portuguesa", Weight: 3, Topics: []TopicPlan{{Name: "Interpretação de Texto"}, {Name: "Gramática"}}},
			{Name: "Direito Constitucional", Weight: 2, Topics: []TopicPlan{{Name: "Direitos Fundamentais"}}},
			{Name: "Raciocínio Lógico", Weight: 1, Topics: []TopicPlan{{Name: "Lógica Proposicional"}}},
		},
	}
}

func fallbackFlashcards() []Flashcard {
	return []Flashcard{{Front: "Erro na IA", Back: "Tente gerar novamente."}}
}

func fallbackLesson() EnglishLesson {
	return EnglishLesson{
		Title:      "Lesson Recovery",
		Vocabulary: []Vocabulary{{Word: "Error", Translation: "Erro", Example: "Try again"}},
		Dialogue:   []DialogueLine{{Speaker: "System", Text: "Connection failed", Translation: "Falha na conexão"}},
		GrammarTip: "Verifique sua conexão.",
	}
}

func fallbackPrediction() Prediction {
	return Prediction{
		ApprovalProbability: 50,
		ProjectedScore:      50,
		WeakestSubject:      "Analisando...",
		StrongestSubject:    "Analisando...",
		Insights:            []string{"Continue estudando."},
	}
}

func fallbackLabQuestions() []Question {
	return []Question{}
}

func fallbackSimulado() []Question {
	return []Question{{
		Text:         "Erro na geração do simulado. Tente novamente.",
		Options:      []string{"Erro", "Erro", "Erro", "Erro"},
		CorrectIndex: 0,
		Explanation:  "Falha de conexão.",
	}}
}

func fallbackCareer() CareerGuide {
	return CareerGuide{
		SalaryRange:   "R$ -",
		StepsToPosse:  []string{},
		TAFTips:       "Sem dados.",
		Documentation: []string{},
	}
}
