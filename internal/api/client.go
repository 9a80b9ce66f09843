package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"nexlearn-exam-client/internal/domain"
	"nexlearn-exam-client/internal/gateway"
)

// Client is the typed REST surface of the examination backend. All request
// bodies are multipart form-encoded except the refresh call, which the
// gateway owns.
type Client struct {
	gw *gateway.Client
}

func New(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// Error carries the backend's human-readable failure message.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// SendOTP asks the backend to deliver a one-time passcode to the mobile number.
func (c *Client) SendOTP(ctx context.Context, mobile string) error {
	return c.postForm(ctx, "/auth/send-otp", []formField{{name: "mobile", value: mobile}}, nil, nil)
}

type VerifyOTPResponse struct {
	Login        bool   `json:"login"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	HasProfile   bool   `json:"hasProfile"`
}

// VerifyOTP exchanges the passcode for a credential pair. The caller is
// responsible for writing the pair to the token store.
func (c *Client) VerifyOTP(ctx context.Context, mobile, otp string) (VerifyOTPResponse, error) {
	var out VerifyOTPResponse
	fields := []formField{
		{name: "mobile", value: mobile},
		{name: "otp", value: otp},
	}
	if err := c.postForm(ctx, "/auth/verify-otp", fields, nil, &out); err != nil {
		return VerifyOTPResponse{}, err
	}
	return out, nil
}

type CreateProfileRequest struct {
	Mobile        string
	Name          string
	Email         string
	Qualification string
	ImageName     string
	Image         []byte
}

type CreateProfileResponse struct {
	User         domain.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
}

// CreateProfile registers the user's profile together with their picture and
// returns a fresh credential pair.
func (c *Client) CreateProfile(ctx context.Context, req CreateProfileRequest) (CreateProfileResponse, error) {
	var out CreateProfileResponse
	fields := []formField{
		{name: "mobile", value: req.Mobile},
		{name: "name", value: req.Name},
		{name: "email", value: req.Email},
		{name: "qualification", value: req.Qualification},
	}
	file := &formFile{field: "profile_image", name: req.ImageName, data: req.Image}
	if err := c.postForm(ctx, "/auth/create-profile", fields, file, &out); err != nil {
		return CreateProfileResponse{}, err
	}
	return out, nil
}

// FetchQuestions loads the question set and exam metadata.
func (c *Client) FetchQuestions(ctx context.Context) (domain.ExamPaper, error) {
	resp, err := c.gw.Do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.gw.BaseURL()+"/question/list", nil)
	})
	if err != nil {
		return domain.ExamPaper{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.ExamPaper{}, decodeError(resp)
	}

	var payload struct {
		Questions []domain.Question `json:"questions"`
		domain.ExamMetadata
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.ExamPaper{}, fmt.Errorf("decode question list: %w", err)
	}
	return domain.ExamPaper{Questions: payload.Questions, Metadata: payload.ExamMetadata}, nil
}

// SubmitAnswers posts the full-length answer payload and returns the scored
// result verbatim.
func (c *Client) SubmitAnswers(ctx context.Context, answers []domain.Answer) (domain.ExamResult, error) {
	raw, err := json.Marshal(answers)
	if err != nil {
		return domain.ExamResult{}, err
	}
	var out domain.ExamResult
	fields := []formField{{name: "answers", value: string(raw)}}
	if err := c.postForm(ctx, "/answers/submit", fields, nil, &out); err != nil {
		return domain.ExamResult{}, err
	}
	return out, nil
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	field string
	name  string
	data  []byte
}

// postForm sends a multipart form request and decodes the JSON response into
// out when non-nil. The encoded body is built once so the gateway can rebuild
// the request for its single retry.
func (c *Client) postForm(ctx context.Context, path string, fields []formField, file *formFile, out interface{}) error {
	body, contentType, err := encodeForm(fields, file)
	if err != nil {
		return err
	}

	resp, err := c.gw.Do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.gw.BaseURL()+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func encodeForm(fields []formField, file *formFile) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if file != nil {
		part, err := writer.CreateFormFile(file.field, file.name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.data); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// decodeError reduces any backend failure to its message string. Missing or
// malformed bodies fall back to the HTTP status text.
func decodeError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.Message == "" {
		payload.Message = http.StatusText(resp.StatusCode)
	}
	return &Error{StatusCode: resp.StatusCode, Message: payload.Message}
}
