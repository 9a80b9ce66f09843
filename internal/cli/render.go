package cli

import (
	"fmt"
	"strings"

	"nexlearn-exam-client/internal/domain"
)

func (f *Flow) renderInstructions(metadata domain.ExamMetadata) {
	f.printf("\n== Instructions ==\n")
	f.printf("Total MCQ's: %d | Total marks: %d | Total time: %d:00\n",
		metadata.QuestionsCount, metadata.TotalMarks, metadata.TotalTime)
	if metadata.Instruction != "" {
		f.printf("%s\n", metadata.Instruction)
	}
	f.printf("You have %d minutes to complete the test. Keep an eye on the timer.\n", metadata.TotalTime)
}

func (f *Flow) renderQuestion() {
	question, ok := f.session.CurrentQuestion()
	if !ok {
		return
	}
	index := f.session.CurrentIndex()
	total := len(f.session.Questions())
	selected, hasSelection := f.session.SelectedOption(question.ID)

	f.printf("\n[%s remaining]  Question %d of %d\n", formatClock(f.session.Remaining()), index+1, total)
	f.printf("%d. %s\n", index+1, question.Text)
	if question.Image != "" {
		f.printf("   (illustration: %s)\n", question.Image)
	}
	if question.HasComprehension() {
		f.printf("   (type 'r' to read the comprehensive paragraph)\n")
	}
	for i, option := range question.Options {
		marker := " "
		if hasSelection && option.ID == selected {
			marker = "*"
		}
		f.printf(" %s %s. %s\n", marker, domain.OptionLabel(i), option.Text)
	}
	if status := f.session.StatusOf(question.ID); status.MarkedForReview {
		f.printf("   [marked for review]\n")
	}
}

// renderSheet prints the question number sheet with one category glyph per
// question, mirroring the color legend of the web client.
func (f *Flow) renderSheet() {
	questions := f.session.Questions()
	current := f.session.CurrentIndex()

	f.printf("\nQuestion No. Sheet:\n")
	var line strings.Builder
	for i, question := range questions {
		glyph := categoryGlyph(f.session.StatusOf(question.ID).Category())
		cell := fmt.Sprintf("%d%s", i+1, glyph)
		if i == current {
			cell = "[" + cell + "]"
		}
		line.WriteString(cell)
		line.WriteString(" ")
		if (i+1)%10 == 0 {
			f.printf("  %s\n", line.String())
			line.Reset()
		}
	}
	if line.Len() > 0 {
		f.printf("  %s\n", line.String())
	}
	answered, marked := f.session.Counts()
	f.printf("  legend: + answered, - not answered, ? review, * answered+review, . not visited\n")
	f.printf("  answered: %d, marked for review: %d\n", answered, marked)
}

func categoryGlyph(category domain.StatusCategory) string {
	switch category {
	case domain.CategoryAnswered:
		return "+"
	case domain.CategoryNotAnswered:
		return "-"
	case domain.CategoryMarkedForReview:
		return "?"
	case domain.CategoryAnsweredAndReview:
		return "*"
	}
	return "."
}

func (f *Flow) renderResult(result domain.ExamResult) {
	total := result.Correct + result.Wrong + result.NotAttended
	f.printf("\n== Results ==\n")
	f.printf("Marks obtained: %d / %d\n", result.Score, total)
	f.printf("  Total questions:        %d\n", total)
	f.printf("  Correct answers:        %03d\n", result.Correct)
	f.printf("  Incorrect answers:      %03d\n", result.Wrong)
	f.printf("  Not attended questions: %03d\n", result.NotAttended)
	if result.SubmittedAt != "" {
		f.printf("  Submitted at:           %s\n", result.SubmittedAt)
	}
	for _, detail := range result.Details {
		verdict := "wrong"
		if detail.IsCorrect {
			verdict = "correct"
		}
		if detail.SelectedOptionID == nil {
			verdict = "not attended"
		}
		f.printf("  Q%d: %s (correct option %d)\n", detail.QuestionID, verdict, detail.CorrectOptionID)
	}
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
