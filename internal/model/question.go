package model

// QuestionCategory groups generated questions by user intent.
type QuestionCategory string

const (
	CategoryIdentity   QuestionCategory = "identity"
	CategoryOfferings  QuestionCategory = "offerings"
	CategoryHowTo      QuestionCategory = "how_to"
	CategoryComparison QuestionCategory = "comparison"
	CategoryFAQ        QuestionCategory = "faq"
	CategoryTechnical  QuestionCategory = "technical"
)

// AllQuestionCategories returns every category in generation order.
func AllQuestionCategories() []QuestionCategory {
	return []QuestionCategory{
		CategoryIdentity,
		CategoryOfferings,
		CategoryHowTo,
		CategoryComparison,
		CategoryFAQ,
		CategoryTechnical,
	}
}

// Difficulty rates how hard a question is to answer from site content.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is one synthesized user question with the signals a positive
// answer is expected to contain.
type Question struct {
	ID              string           `json:"id"`
	Text            string           `json:"text"`
	Category        QuestionCategory `json:"category"`
	Difficulty      Difficulty       `json:"difficulty"`
	ExpectedSignals []string         `json:"expected_signals"`
}

// Answerability is the categorical verdict for one simulated question.
type Answerability string

const (
	AnswerabilityFully     Answerability = "fully"
	AnswerabilityPartially Answerability = "partially"
	AnswerabilityNot       Answerability = "not"
)

// Confidence quantizes how certain the simulator is about its verdict.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// QuestionContext carries retrieval context attached to a result.
type QuestionContext struct {
	TotalChunks       int     `json:"total_chunks"`
	MaxRelevanceScore float64 `json:"max_relevance_score"`
}

// QuestionResult is the simulator's verdict for one question.
type QuestionResult struct {
	QuestionID     string          `json:"question_id"`
	Question       string          `json:"question"`
	Category       QuestionCategory `json:"category"`
	Difficulty     Difficulty      `json:"difficulty"`
	Answerability  Answerability   `json:"answerability"`
	Score          float64         `json:"score"`
	Confidence     Confidence      `json:"confidence"`
	SignalsFound   int             `json:"signals_found"`
	SignalsTotal   int             `json:"signals_total"`
	RelevanceScore float64         `json:"relevance_score"`
	Context        QuestionContext `json:"context"`
}

// SimulationResult aggregates all question verdicts for a run.
// OverallScore feeds the Retrieval pillar, CoverageScore the Coverage
// pillar; both are 0..100.
type SimulationResult struct {
	QuestionsAnswered   int              `json:"questions_answered"`
	QuestionsPartial    int              `json:"questions_partial"`
	QuestionsUnanswered int              `json:"questions_unanswered"`
	OverallScore        float64          `json:"overall_score"`
	CoverageScore       float64          `json:"coverage_score"`
	QuestionResults     []QuestionResult `json:"question_results"`
}

// TotalQuestions returns the number of simulated questions.
func (r *SimulationResult) TotalQuestions() int {
	return r.QuestionsAnswered + r.QuestionsPartial + r.QuestionsUnanswered
}
