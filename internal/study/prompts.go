package study

import (
	"fmt"
	"strings"
)

const (
	maxEditalRunes = 30000
	uploadMarker   = "[ARQUIVO CARREGADO]"

	defaultSimuladoSubjects = "Português, Direito Constitucional, Informática, RLM"
)

var modeInstructions = map[Mode]string{
	ModeStandard:   "Você é um Professor de Elite. Responda de forma direta, motivadora e didática. Use formatação Markdown.",
	ModeChild:      "Explique como para uma criança de 10 anos. Use metáforas simples, brinquedos e linguagem fácil.",
	ModeUniversity: "Modo acadêmico de doutorado. Use termos técnicos, cite teorias e aprofunde.",
	ModeAnalogy:    "Use apenas analogias. Compare com futebol, culinária, carros ou situações do dia a dia.",
	ModeFunny:      "Seja um professor de cursinho engraçado, com gírias leves (tipo 'galera', 'bora') e muito carisma.",
	ModeTechnical:  "Seja estritamente técnico e jurídico. Cite leis, artigos e súmulas de forma seca.",
	ModeSummarized: "Responda em um único parágrafo curto e direto ao ponto.",
}

func tutorSystem(mode Mode) string {
	return modeInstructions[mode] + `
Objetivo: ensinar o aluno sobre concursos e estudos.
Se não souber, admita.
Responda sempre em português do Brasil.`
}

func englishTutorSystem(level string) string {
	return fmt.Sprintf("You are a friendly English tutor for level %s. Correct mistakes politely. Keep it brief. Speak English 90%% of the time.", level)
}

// truncateRunes cuts s to at most n runes without splitting a character.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func editalPrompt(text string) string {
	instruction := "Analise este texto de edital."
	if strings.Contains(text, uploadMarker) {
		instruction = "O usuário enviou um edital em PDF. Gere um plano de estudos padrão para concursos públicos (Português, Direito, RLM, Informática) de nível médio/superior."
	}

	return fmt.Sprintf(`Você é um especialista em concursos públicos.
%s

Retorne apenas JSON válido com esta estrutura:
{
  "institution": "Nome da banca (ou estimada)",
  "position": "Cargo identificado (ou sugerido)",
  "summary": "Resumo estratégico em 3 linhas",
  "tips": ["Dica prática 1", "Dica prática 2", "Dica prática 3"],
  "subjects": [
    {"name": "Nome da matéria", "weight": 3, "topics": [{"name": "Tópico 1"}, {"name": "Tópico 2"}]}
  ]
}

Conteúdo: %s`, instruction, truncateRunes(text, maxEditalRunes))
}

func flashcardPrompt(topic string, kind FlashcardKind) string {
	if kind == FlashcardsEnglish {
		return fmt.Sprintf(`Create 5 flashcards for English learning about: %q. JSON only: [{"front": "English term", "back": "Portuguese translation/definition"}]`, topic)
	}
	return fmt.Sprintf(`Crie 5 flashcards didáticos sobre: %q. Retorne apenas JSON: [{"front": "Pergunta/conceito", "back": "Resposta curta"}]`, topic)
}

func lessonPrompt(level string) string {
	return fmt.Sprintf(`Crie uma mini-aula de inglês nível %s.
Retorne apenas JSON:
{
  "title": "Título em inglês",
  "vocabulary": [{"word": "Word", "translation": "Tradução", "example": "Sentence"}],
  "dialogue": [{"speaker": "A", "text": "English phrase", "translation": "Frase em português"}],
  "grammarTip": "Dica gramatical em português"
}
Use 5 itens de vocabulário e 4 falas no diálogo.`, level)
}

func predictionPrompt(xp, streak int) string {
	return fmt.Sprintf(`Analyze stats: %d XP, %d day streak.
Return JSON only:
{
  "approvalProbability": 72,
  "projectedScore": 75,
  "weakestSubject": "Raciocínio Lógico",
  "strongestSubject": "Português",
  "insights": ["Insight 1", "Insight 2"]
}`, xp, streak)
}

const questionSchema = `{
  "questions": [
    {
      "text": "Enunciado da questão",
      "options": ["Alternativa A", "Alternativa B", "Alternativa C", "Alternativa D"],
      "correctIndex": 0,
      "explanation": "Explicação breve"
    }
  ]
}`

func labPrompt(subject, difficulty string) string {
	return fmt.Sprintf(`Gere 5 questões de múltipla escolha sobre %q (nível: %s).
Idioma obrigatório: português do Brasil.
Retorne apenas JSON:
%s`, subject, difficulty, questionSchema)
}

func simuladoPrompt(subjects []string) string {
	list := strings.Join(subjects, ", ")
	if strings.TrimSpace(list) == "" {
		list = defaultSimuladoSubjects
	}
	return fmt.Sprintf(`Crie um simulado de concurso com 10 questões variadas.
Matérias: %s.
Idioma: português do Brasil.
Retorne apenas JSON:
%s`, list, questionSchema)
}

func careerPrompt(position string) string {
	return fmt.Sprintf(`Guide for %q in Brazil. JSON only: {"salaryRange": "R$ X - Y", "stepsToPosse": ["Step 1", "Step 2"], "tafTips": "Tips", "documentation": ["Doc 1", "Doc 2"]}`, position)
}

func explainPrompt(topic, subject string) string {
	return fmt.Sprintf("Explique %q da matéria %q para concurso. Seja breve, didático e use markdown.", topic, subject)
}

func marketingPrompt(topic, kind string) string {
	return fmt.Sprintf("Crie conteúdo (%s) sobre %q.", kind, topic)
}
