package domain

// QuestionStatus tracks per-question navigation and answer flags. Visited is
// monotone within a session: once set it is never reset. Answered always
// mirrors whether the answer map holds a non-null selection for the question.
type QuestionStatus struct {
	Visited         bool
	Answered        bool
	MarkedForReview bool
}

// StatusCategory is the display bucket derived from a QuestionStatus.
type StatusCategory string

const (
	CategoryNotVisited        StatusCategory = "not_visited"
	CategoryNotAnswered       StatusCategory = "not_answered"
	CategoryAnswered          StatusCategory = "answered"
	CategoryMarkedForReview   StatusCategory = "review"
	CategoryAnsweredAndReview StatusCategory = "answered_and_review"
)

// Category derives the display bucket for a question. The five buckets are
// mutually exclusive; an unvisited question is always not_visited regardless
// of the other flags.
func (s QuestionStatus) Category() StatusCategory {
	if !s.Visited {
		return CategoryNotVisited
	}
	switch {
	case s.Answered && s.MarkedForReview:
		return CategoryAnsweredAndReview
	case s.MarkedForReview:
		return CategoryMarkedForReview
	case s.Answered:
		return CategoryAnswered
	}
	return CategoryNotAnswered
}
