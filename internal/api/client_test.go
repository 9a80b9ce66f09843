package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nexlearn-exam-client/internal/api"
	"nexlearn-exam-client/internal/domain"
	"nexlearn-exam-client/internal/gateway"
	"nexlearn-exam-client/internal/infra/memory"
)

func newTestClient(t *testing.T, handler http.Handler) (*api.Client, *memory.TokenStore, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	store := memory.NewTokenStore()
	gw := gateway.New(server.URL, 5*time.Second, store, nil)
	return api.New(gw), store, server.Close
}

func TestVerifyOTPSendsFormFields(t *testing.T) {
	var gotMobile, gotOTP string
	client, _, closeServer := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/verify-otp" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotMobile = r.FormValue("mobile")
		gotOTP = r.FormValue("otp")
		w.Write([]byte(`{"login":true,"access_token":"at","refresh_token":"rt","token_type":"Bearer","hasProfile":false}`))
	}))
	defer closeServer()

	resp, err := client.VerifyOTP(context.Background(), "+911234567890", "4321")
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if gotMobile != "+911234567890" || gotOTP != "4321" {
		t.Fatalf("expected form fields, got mobile=%q otp=%q", gotMobile, gotOTP)
	}
	if !resp.Login || resp.AccessToken != "at" || resp.HasProfile {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCreateProfileUploadsImage(t *testing.T) {
	client, _, closeServer := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("name") != "Alice" || r.FormValue("qualification") != "BSc" {
			t.Errorf("missing profile fields: %+v", r.MultipartForm.Value)
		}
		file, header, err := r.FormFile("profile_image")
		if err != nil {
			t.Errorf("profile image part: %v", err)
		} else {
			file.Close()
			if header.Filename != "me.png" {
				t.Errorf("expected filename me.png, got %s", header.Filename)
			}
		}
		w.Write([]byte(`{"user":{"id":7,"name":"Alice"},"access_token":"at2","refresh_token":"rt2"}`))
	}))
	defer closeServer()

	resp, err := client.CreateProfile(context.Background(), api.CreateProfileRequest{
		Mobile:        "+911234567890",
		Name:          "Alice",
		Email:         "alice@example.com",
		Qualification: "BSc",
		ImageName:     "me.png",
		Image:         []byte{0x89, 0x50, 0x4e, 0x47},
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if resp.User.ID != 7 || resp.AccessToken != "at2" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestFetchQuestionsDecodesPaper(t *testing.T) {
	client, store, closeServer := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{
			"questions": [
				{"question_id": 1, "question": "Who built the Sanchi Stupa?", "image": null, "comprehension": "passage",
				 "options": [{"id": 11, "option": "Ashoka"}, {"id": 12, "option": "Bindusara"}]}
			],
			"questions_count": 1,
			"total_marks": 5,
			"total_time": 10,
			"time_for_each_question": 2,
			"mark_per_each_answer": 5,
			"instruction": "Answer all questions."
		}`))
	}))
	defer closeServer()
	store.SetTokens(domain.Tokens{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"})

	paper, err := client.FetchQuestions(context.Background())
	if err != nil {
		t.Fatalf("fetch questions: %v", err)
	}
	if len(paper.Questions) != 1 || paper.Questions[0].ID != 1 {
		t.Fatalf("unexpected questions %+v", paper.Questions)
	}
	if paper.Questions[0].Image != "" {
		t.Fatalf("expected null image to decode empty, got %q", paper.Questions[0].Image)
	}
	if paper.Metadata.TotalTime != 10 || paper.Metadata.Instruction != "Answer all questions." {
		t.Fatalf("unexpected metadata %+v", paper.Metadata)
	}
}

func TestSubmitAnswersEncodesJSONArray(t *testing.T) {
	var gotAnswers []domain.Answer
	client, _, closeServer := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if err := json.Unmarshal([]byte(r.FormValue("answers")), &gotAnswers); err != nil {
			t.Errorf("decode answers field: %v", err)
		}
		w.Write([]byte(`{"score":5,"correct":1,"wrong":0,"not_attended":2,"submitted_at":"2025-01-01T00:00:00Z","details":[]}`))
	}))
	defer closeServer()

	five := int64(5)
	result, err := client.SubmitAnswers(context.Background(), []domain.Answer{
		{QuestionID: 1, SelectedOptionID: &five},
		{QuestionID: 2},
		{QuestionID: 3},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(gotAnswers) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(gotAnswers))
	}
	if gotAnswers[0].SelectedOptionID == nil || *gotAnswers[0].SelectedOptionID != 5 {
		t.Fatalf("expected question 1 answered with option 5, got %+v", gotAnswers[0])
	}
	if gotAnswers[1].SelectedOptionID != nil || gotAnswers[2].SelectedOptionID != nil {
		t.Fatalf("expected null markers for untouched questions, got %+v", gotAnswers[1:])
	}
	if result.Score != 5 || result.NotAttended != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestBackendErrorSurfacesMessage(t *testing.T) {
	client, _, closeServer := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid OTP"}`))
	}))
	defer closeServer()

	err := client.SendOTP(context.Background(), "+911234567890")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected api.Error, got %v", err)
	}
	if apiErr.Message != "invalid OTP" || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}
