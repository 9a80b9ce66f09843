package domain

import "strings"

// Tokens is the credential pair issued at login and rotated on refresh.
// Exactly one live pair exists at a time; the strings are opaque to the client.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// User is the profile returned by the backend after profile creation.
type User struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Mobile        string `json:"mobile"`
	Qualification string `json:"qualification"`
	ProfileImage  string `json:"profile_image"`
}

// Option is a possible answer for a question. Display lettering follows the
// stored slice order, never the option IDs.
type Option struct {
	ID   int64  `json:"id"`
	Text string `json:"option"`
}

// Question is immutable once fetched from the backend.
type Question struct {
	ID            int64    `json:"question_id"`
	Text          string   `json:"question"`
	Image         string   `json:"image"`
	Comprehension string   `json:"comprehension"`
	Options       []Option `json:"options"`
}

// HasComprehension reports whether the question carries a reading passage.
func (q Question) HasComprehension() bool {
	return strings.TrimSpace(q.Comprehension) != ""
}

// OptionLabel returns the on-screen letter for an option position (A for 0).
func OptionLabel(index int) string {
	return string(rune('A' + index))
}

// ExamMetadata describes the paper returned alongside the question list.
type ExamMetadata struct {
	QuestionsCount      int    `json:"questions_count"`
	TotalMarks          int    `json:"total_marks"`
	TotalTime           int    `json:"total_time"` // minutes
	TimeForEachQuestion int    `json:"time_for_each_question"`
	MarkPerEachAnswer   int    `json:"mark_per_each_answer"`
	Instruction         string `json:"instruction"`
}

// ExamPaper bundles the question list with its metadata.
type ExamPaper struct {
	Questions []Question
	Metadata  ExamMetadata
}

// Answer is one row of the submission payload. A nil SelectedOptionID is the
// explicit no-selection marker; every question appears in the payload exactly
// once regardless of interaction.
type Answer struct {
	QuestionID       int64  `json:"question_id"`
	SelectedOptionID *int64 `json:"selected_option_id"`
}

// ResultDetail is the per-question breakdown of a scored submission.
type ResultDetail struct {
	QuestionID       int64  `json:"question_id"`
	IsCorrect        bool   `json:"is_correct"`
	SelectedOptionID *int64 `json:"selected_option_id"`
	CorrectOptionID  int64  `json:"correct_option_id"`
}

// ExamResult is the backend's scoring of a submission. The figures are
// authoritative and never recomputed client-side.
type ExamResult struct {
	ExamHistoryID string         `json:"exam_history_id"`
	Score         int            `json:"score"`
	Correct       int            `json:"correct"`
	Wrong         int            `json:"wrong"`
	NotAttended   int            `json:"not_attended"`
	SubmittedAt   string         `json:"submitted_at"`
	Details       []ResultDetail `json:"details"`
}
