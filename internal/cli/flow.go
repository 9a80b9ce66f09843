package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"nexlearn-exam-client/internal/api"
	"nexlearn-exam-client/internal/domain"
	"nexlearn-exam-client/internal/exam"
	"nexlearn-exam-client/internal/gateway"
)

type step int

const (
	stepLogin step = iota
	stepProfile
	stepInstructions
	stepExam
	stepResults
	stepDone
)

// errQuit ends the flow cleanly when the user asks to leave.
var errQuit = errors.New("quit")

// Flow drives the multi-step exam experience: login, profile creation,
// instructions, the exam itself, and the results summary. It holds no
// business state of its own; every intent is dispatched to the session, the
// API client, or the token store.
type Flow struct {
	in      *bufio.Scanner
	out     io.Writer
	api     *api.Client
	store   gateway.TokenStore
	session *exam.Session
	results *exam.Results

	mobile         string
	resendCooldown time.Duration
	authLost       atomic.Bool
}

func NewFlow(in io.Reader, out io.Writer, store gateway.TokenStore, results *exam.Results, resendCooldown time.Duration) *Flow {
	return &Flow{
		in:             bufio.NewScanner(in),
		out:            out,
		store:          store,
		results:        results,
		resendCooldown: resendCooldown,
	}
}

// Bind attaches the API client and session once the gateway exists. The
// gateway needs the flow's auth-lost hook before the client can be built, so
// construction happens in two phases.
func (f *Flow) Bind(client *api.Client, session *exam.Session) {
	f.api = client
	f.session = session
}

// OnAuthLost is wired into the gateway; it flags that credentials are gone so
// the flow returns to the login entry point at the next step boundary.
func (f *Flow) OnAuthLost() {
	f.authLost.Store(true)
}

// Run executes steps until the user quits or input ends.
func (f *Flow) Run(ctx context.Context) error {
	current := stepLogin
	for current != stepDone {
		if f.authLost.Swap(false) {
			f.notice("Session expired. Please sign in again.")
			f.session.Reset()
			current = stepLogin
		}

		var (
			next step
			err  error
		)
		switch current {
		case stepLogin:
			next, err = f.loginStep(ctx)
		case stepProfile:
			next, err = f.profileStep(ctx)
		case stepInstructions:
			next, err = f.instructionsStep(ctx)
		case stepExam:
			next, err = f.examStep(ctx)
		case stepResults:
			next, err = f.resultsStep(ctx)
		}
		if err != nil {
			if errors.Is(err, errQuit) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				f.printf("Goodbye.\n")
				return nil
			}
			return err
		}
		current = next
	}
	f.printf("Goodbye.\n")
	return nil
}

func (f *Flow) authenticated() bool {
	_, ok := f.store.Tokens()
	return ok
}

func (f *Flow) loginStep(ctx context.Context) (step, error) {
	f.printf("\n== NexLearn ==\n")
	mobile, err := f.prompt("Mobile number (10 digits): ")
	if err != nil {
		return stepDone, err
	}
	if err := validateMobile(mobile); err != nil {
		f.notice(err.Error())
		return stepLogin, nil
	}
	f.mobile = "+91" + mobile

	if err := f.api.SendOTP(ctx, f.mobile); err != nil {
		f.notice("Failed to send OTP: " + err.Error())
		return stepLogin, nil
	}
	f.printf("OTP sent to %s.\n", f.mobile)

	resendAt := time.Now().Add(f.resendCooldown)
	for {
		otp, err := f.prompt("OTP (or 'resend'): ")
		if err != nil {
			return stepDone, err
		}
		if otp == "resend" {
			if wait := time.Until(resendAt); wait > 0 {
				f.notice(fmt.Sprintf("Resend available in %d seconds.", int(wait.Seconds())+1))
				continue
			}
			if err := f.api.SendOTP(ctx, f.mobile); err != nil {
				f.notice("Failed to send OTP: " + err.Error())
				continue
			}
			resendAt = time.Now().Add(f.resendCooldown)
			f.printf("OTP re-sent.\n")
			continue
		}
		if err := validateOTP(otp); err != nil {
			f.notice(err.Error())
			continue
		}

		resp, err := f.api.VerifyOTP(ctx, f.mobile, otp)
		if err != nil {
			f.notice("Invalid OTP: " + err.Error())
			continue
		}
		if resp.Login && resp.AccessToken != "" {
			f.store.SetTokens(domain.Tokens{
				AccessToken:  resp.AccessToken,
				RefreshToken: resp.RefreshToken,
				TokenType:    resp.TokenType,
			})
		}
		if resp.HasProfile {
			// Returning users skip profile creation.
			return stepInstructions, nil
		}
		return stepProfile, nil
	}
}

func (f *Flow) profileStep(ctx context.Context) (step, error) {
	f.printf("\n== Create your profile ==\n")
	name, err := f.prompt("Name: ")
	if err != nil {
		return stepDone, err
	}
	email, err := f.prompt("Email: ")
	if err != nil {
		return stepDone, err
	}
	qualification, err := f.prompt("Qualification: ")
	if err != nil {
		return stepDone, err
	}
	imagePath, err := f.prompt("Profile image path: ")
	if err != nil {
		return stepDone, err
	}
	if err := validateProfile(name, email, qualification, imagePath); err != nil {
		f.notice(err.Error())
		return stepProfile, nil
	}

	image, err := os.ReadFile(imagePath)
	if err != nil {
		f.notice("Cannot read profile image: " + err.Error())
		return stepProfile, nil
	}

	resp, err := f.api.CreateProfile(ctx, api.CreateProfileRequest{
		Mobile:        f.mobile,
		Name:          name,
		Email:         email,
		Qualification: qualification,
		ImageName:     filepath.Base(imagePath),
		Image:         image,
	})
	if err != nil {
		f.notice("Failed to create profile: " + err.Error())
		return stepProfile, nil
	}
	f.store.SetTokens(domain.Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    "Bearer",
	})
	f.printf("Welcome, %s.\n", resp.User.Name)
	return stepInstructions, nil
}

func (f *Flow) instructionsStep(ctx context.Context) (step, error) {
	if !f.authenticated() {
		return stepLogin, nil
	}

	paper, err := f.api.FetchQuestions(ctx)
	if err != nil {
		if f.authLost.Load() {
			return stepLogin, nil
		}
		f.notice("Failed to load exam details: " + err.Error())
		return stepLogin, nil
	}
	f.renderInstructions(paper.Metadata)

	answer, err := f.prompt("Press Enter to start the test (or 'quit'): ")
	if err != nil {
		return stepDone, err
	}
	if answer == "quit" {
		return stepDone, nil
	}
	return stepExam, nil
}

func (f *Flow) examStep(ctx context.Context) (step, error) {
	if !f.authenticated() {
		return stepLogin, nil
	}

	if f.session.State() == exam.StateIdle {
		f.printf("Loading questions...\n")
		if err := f.session.Load(ctx); err != nil {
			// Load failures are terminal for the attempt; leave the exam.
			f.notice("Failed to load questions: " + err.Error())
			f.session.Reset()
			if f.authLost.Load() {
				return stepLogin, nil
			}
			return stepInstructions, nil
		}
	}

	for {
		// Credentials can be lost mid-exam (a 401 on submit whose refresh
		// fails); hand control back so Run redirects to login.
		if f.authLost.Load() {
			return stepLogin, nil
		}
		switch f.session.State() {
		case exam.StateSubmitted:
			return stepResults, nil
		case exam.StateReady, exam.StateSubmitting:
		default:
			return stepInstructions, nil
		}

		if f.session.State() == exam.StateReady && f.session.Remaining() == 0 {
			f.notice("Time is up but your answers could not be submitted. Type 's' to retry.")
		}
		f.renderQuestion()
		line, err := f.prompt("> ")
		if err != nil {
			return stepDone, err
		}
		// The countdown may have forced submission while input was blocked.
		if f.session.State() == exam.StateSubmitted {
			f.notice("Time is up. Your answers were submitted.")
			return stepResults, nil
		}
		if quit, err := f.handleExamCommand(ctx, line); err != nil {
			return stepDone, err
		} else if quit {
			f.session.Reset()
			return stepDone, nil
		}
	}
}

// handleExamCommand dispatches one exam-screen intent. It reports whether the
// user asked to quit.
func (f *Flow) handleExamCommand(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false, nil
	}
	question, ok := f.session.CurrentQuestion()
	if !ok {
		return false, nil
	}

	switch fields[0] {
	case "n", "next":
		f.dispatch(f.session.Next())
	case "p", "prev", "previous":
		f.dispatch(f.session.Previous())
	case "g", "goto":
		if len(fields) < 2 {
			f.notice("Usage: g <question number>")
			return false, nil
		}
		number, err := strconv.Atoi(fields[1])
		if err != nil {
			f.notice("Usage: g <question number>")
			return false, nil
		}
		f.dispatch(f.session.GoTo(number - 1))
	case "m", "mark":
		f.dispatch(f.session.ToggleReview(question.ID))
	case "x", "clear":
		f.dispatch(f.session.ClearSelection(question.ID))
	case "r", "read":
		if !question.HasComprehension() {
			// Informational, not an error: there is simply nothing to read.
			f.notice("No comprehensive paragraph available for this question.")
			return false, nil
		}
		f.printf("\n--- Comprehensive Paragraph ---\n%s\n", question.Comprehension)
	case "sheet":
		f.renderSheet()
	case "s", "submit":
		f.confirmAndSubmit(ctx)
	case "h", "help":
		f.printf("Commands: a-%s select option, x clear, m mark for review, n next, p previous, g <n> jump, r read paragraph, sheet, s submit, quit\n",
			strings.ToLower(domain.OptionLabel(len(question.Options)-1)))
	case "quit":
		return true, nil
	default:
		if index := optionIndex(fields[0], len(question.Options)); index >= 0 {
			f.dispatch(f.session.SelectOption(question.ID, question.Options[index].ID))
		} else {
			f.notice("Unknown command. Type 'h' for help.")
		}
	}
	return false, nil
}

func (f *Flow) confirmAndSubmit(ctx context.Context) {
	answered, marked := f.session.Counts()
	f.printf("\nAre you sure you want to submit the test?\n")
	f.printf("  Remaining time:     %s\n", formatClock(f.session.Remaining()))
	f.printf("  Total questions:    %d\n", len(f.session.Questions()))
	f.printf("  Questions answered: %d\n", answered)
	f.printf("  Marked for review:  %d\n", marked)
	answer, err := f.prompt("Submit? (yes/no): ")
	if err != nil || answer != "yes" {
		return
	}
	if err := f.session.Submit(ctx); err != nil {
		// Recoverable: answers are preserved, the user stays in the exam.
		f.notice("Failed to submit exam. Please try again: " + err.Error())
	}
}

func (f *Flow) resultsStep(ctx context.Context) (step, error) {
	if !f.authenticated() {
		return stepLogin, nil
	}
	result, ok := f.results.Get()
	if !ok {
		return stepInstructions, nil
	}

	f.renderResult(result)
	if _, err := f.prompt("Press Enter when done: "); err != nil {
		return stepDone, err
	}
	f.session.Reset()
	return stepInstructions, nil
}

// dispatch surfaces a transition error as a transient notice.
func (f *Flow) dispatch(err error) {
	if err != nil {
		f.notice(err.Error())
	}
}

func (f *Flow) prompt(label string) (string, error) {
	fmt.Fprint(f.out, label)
	if !f.in.Scan() {
		if err := f.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(f.in.Text()), nil
}

func (f *Flow) notice(message string) {
	fmt.Fprintf(f.out, "! %s\n", message)
}

func (f *Flow) printf(format string, args ...interface{}) {
	fmt.Fprintf(f.out, format, args...)
}

// optionIndex maps a single letter to an option position, A being 0.
func optionIndex(token string, optionCount int) int {
	if len(token) != 1 {
		return -1
	}
	index := int(token[0] - 'a')
	if index < 0 || index >= optionCount {
		return -1
	}
	return index
}
