package ai

import (
	"strings"

	"github.com/garnizeh/rojgar/internal/models"
)

// Normalize turns a parsed model response into a QuestionSet. Blank questions
// are dropped together with their answers, answer lists are padded or cut to
// the length of their question lists, and no list is nil.
func (r *QuestionsResponse) Normalize(stack string) *models.QuestionSet {
	tech, techA := pair(r.Technical, r.TechnicalAnswers)
	beh, behA := pair(r.Behavioral, r.BehavioralAnswers)

	return &models.QuestionSet{
		Stack:             stack,
		Technical:         tech,
		Behavioral:        beh,
		TechnicalAnswers:  techA,
		BehavioralAnswers: behA,
	}
}

func pair(questions, answers []string) ([]string, []string) {
	qs := make([]string, 0, len(questions))
	as := make([]string, 0, len(questions))
	for i, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		a := ""
		if i < len(answers) {
			a = strings.TrimSpace(answers[i])
		}
		qs = append(qs, q)
		as = append(as, a)
	}
	return qs, as
}
