package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gelapp/gel/internal/config"
	"github.com/gelapp/gel/internal/logging"
)

const geminiModel = "gemini-2.0-flash"

var geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// ParsedRow is one time-table row extracted from a schedule screenshot. Days
// run Monday=0 through Sunday=6 and times are 24-hour "HH:MM", matching the
// schedule store's frame. Rows are validated by the store, not here.
type ParsedRow struct {
	Day        int    `json:"day"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	CourseName string `json:"course_name"`
}

// Parser turns schedule screenshots into ParsedRows using the Gemini
// multimodal API over plain HTTP.
type Parser struct {
	apiKey string
	stub   bool
	client *http.Client
}

func NewParser(cfg *config.Config) *Parser {
	return &Parser{
		apiKey: cfg.AI.GeminiAPIKey,
		stub:   cfg.AI.Stub,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Gemini API request/response structs

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string        `json:"responseMimeType"`
	ResponseSchema   *geminiSchema `json:"responseSchema,omitempty"`
	Temperature      float64       `json:"temperature"`
}

type geminiSchema struct {
	Type       string                   `json:"type"`
	Items      *geminiSchema            `json:"items,omitempty"`
	Properties map[string]*geminiSchema `json:"properties,omitempty"`
	Required   []string                 `json:"required,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

const parsePrompt = `Analyze this weekly schedule image and extract every course/class block.
Return ONLY a JSON array of objects. Each object has:
- "day": integer, 0 for Monday through 6 for Sunday
- "start_time": "HH:MM" 24-hour string, e.g. "08:30"
- "end_time": "HH:MM" 24-hour string, e.g. "09:20"
- "course_name": string; combine course code, room and type into one value, e.g. "CS 101 - B208 - Lecture"

Keep each block's start and end accurate to the image. Multi-hour blocks stay as one entry.`

// ParseScheduleImage sends the image to Gemini and decodes the structured rows.
func (p *Parser) ParseScheduleImage(ctx context.Context, image []byte, mimeType string) ([]ParsedRow, error) {
	if p.stub {
		return stubRows(), nil
	}
	if strings.TrimSpace(p.apiKey) == "" {
		logging.Warn("Gemini API key missing; schedule parsing unavailable")
		return nil, ErrAINotConfigured
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{
				Parts: []geminiPart{
					{InlineData: &geminiInlineData{
						MimeType: mimeType,
						Data:     base64.StdEncoding.EncodeToString(image),
					}},
					{Text: parsePrompt},
				},
			},
		},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema: &geminiSchema{
				Type: "array",
				Items: &geminiSchema{
					Type: "object",
					Properties: map[string]*geminiSchema{
						"day":         {Type: "integer"},
						"start_time":  {Type: "string"},
						"end_time":    {Type: "string"},
						"course_name": {Type: "string"},
					},
					Required: []string{"day", "start_time", "end_time", "course_name"},
				},
			},
			Temperature: 0.2,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request", ErrAIProviderUnavailable)
	}

	logging.Info("Sending schedule image to Gemini", map[string]interface{}{
		"image_bytes": len(image),
		"mime_type":   mimeType,
	})

	url := fmt.Sprintf("%s/%s:generateContent", geminiBaseURL, geminiModel)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIProviderUnavailable, err)
	}
	defer func() {
		// Drain and close so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status %d", ErrRateLimitExceeded, resp.StatusCode)
		}
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		logging.Error("Gemini non-200 response", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(bodyBytes),
		})
		return nil, fmt.Errorf("%w: status %d", ErrAIProviderUnavailable, resp.StatusCode)
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response", ErrAIProviderUnavailable)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrUnparsableSchedule
	}

	text := strings.TrimSpace(geminiResp.Candidates[0].Content.Parts[0].Text)
	// Models occasionally wrap JSON in a markdown fence despite the mime type.
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var rows []ParsedRow
	if err := json.Unmarshal([]byte(text), &rows); err != nil {
		logging.Error("Gemini returned non-JSON schedule", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, ErrUnparsableSchedule
	}

	return rows, nil
}

func stubRows() []ParsedRow {
	return []ParsedRow{
		{Day: 0, StartTime: "09:30", EndTime: "11:20", CourseName: "CS 101 - Lecture"},
		{Day: 2, StartTime: "13:30", EndTime: "15:20", CourseName: "MATH 102 - Recitation"},
	}
}
