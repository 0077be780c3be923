package player

import "course-marketplace-backend/internal/models"

type QuestionResult struct {
	QuestionID     uint     `json:"question_id"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	SelectedAnswer string   `json:"selected_answer,omitempty"`
	Answered       bool     `json:"answered"`
	Correct        bool     `json:"correct"`
	CorrectAnswer  string   `json:"correct_answer,omitempty"`
	Explanation    string   `json:"explanation,omitempty"`
}

type Result struct {
	QuizID        uint                  `json:"quiz_id"`
	Score         int                   `json:"score"`
	PassingScore  int                   `json:"passing_score"`
	Passed        bool                  `json:"passed"`
	CorrectCount  int                   `json:"correct_count"`
	QuestionCount int                   `json:"question_count"`
	TimedOut      bool                  `json:"timed_out"`
	Questions     []QuestionResult      `json:"questions"`
	Answers       models.AttemptAnswers `json:"answers"`

	AttemptID    uint   `json:"attempt_id,omitempty"`
	AttemptSaved bool   `json:"attempt_saved"`
	SaveError    string `json:"save_error,omitempty"`
}

// Score compares each answer to the correct one by exact string match.
// Unanswered questions count as wrong. The correct answer is only echoed back for wrong answers.
func Score(quiz *models.Quiz, answers models.AttemptAnswers) Result {
	result := Result{
		Answers: make(models.AttemptAnswers, len(answers)),
	}
	if quiz == nil {
		return result
	}

	result.QuizID = quiz.ID
	result.PassingScore = quiz.PassingScore
	result.QuestionCount = len(quiz.Questions)
	result.Questions = make([]QuestionResult, 0, len(quiz.Questions))

	for _, question := range quiz.Questions {
		chosen, answered := answers[question.ID]
		correct := answered && chosen == question.CorrectAnswer
		if answered {
			result.Answers[question.ID] = chosen
		}
		if correct {
			result.CorrectCount++
		}

		options := make([]string, len(question.Options))
		copy(options, question.Options)

		item := QuestionResult{
			QuestionID:     question.ID,
			Question:       question.Question,
			Options:        options,
			SelectedAnswer: chosen,
			Answered:       answered,
			Correct:        correct,
			Explanation:    question.Explanation,
		}
		if !correct {
			item.CorrectAnswer = question.CorrectAnswer
		}
		result.Questions = append(result.Questions, item)
	}

	result.Score = models.RoundPercent(result.CorrectCount, result.QuestionCount)
	result.Passed = result.Score >= quiz.PassingScore
	return result
}
