package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/metalagman/vigil/internal/config"
	"github.com/metalagman/vigil/internal/tool"
)

const (
	defaultReviewBaseURL   = "https://api.openai.com/v1"
	defaultReviewAPIKeyEnv = "OPENAI_API_KEY"

	// maxReviewFileBytes caps how much of each file goes into the prompt.
	maxReviewFileBytes = 16 * 1024
)

// ReviewComment is a single piece of AI review feedback.
type ReviewComment struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Comment string `json:"comment"`
}

func (c ReviewComment) String() string {
	if c.Line > 0 {
		return fmt.Sprintf("%s:%d %s", c.File, c.Line, c.Comment)
	}
	return fmt.Sprintf("%s %s", c.File, c.Comment)
}

// Review asks a language model to review the file set. The engine treats it
// like any other tool.
type Review struct {
	cfg    config.ReviewConfig
	client openai.Client
	model  string
}

// NewReview constructs the AI review tool.
func NewReview(cfg config.ReviewConfig) (*Review, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}

	envKey := strings.TrimSpace(cfg.APIKeyEnv)
	if envKey == "" {
		envKey = defaultReviewAPIKeyEnv
	}
	apiKey := strings.TrimSpace(os.Getenv(envKey))

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultReviewBaseURL
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return &Review{cfg: cfg, client: client, model: model}, nil
}

// Name implements tool.Tool.
func (r *Review) Name() string { return "ai-review" }

// Category implements tool.Tool.
func (r *Review) Category() string { return tool.CategoryReview }

// Run implements tool.Tool.
func (r *Review) Run(ctx context.Context, files []string, cfg config.ToolConfig) (*tool.Result, error) {
	envKey := strings.TrimSpace(r.cfg.APIKeyEnv)
	if envKey == "" {
		envKey = defaultReviewAPIKeyEnv
	}
	if strings.TrimSpace(os.Getenv(envKey)) == "" {
		return nil, tool.ExecErr(r.Name(), "setup", fmt.Errorf("api key is required (set %s)", envKey))
	}

	input, err := reviewInput(files)
	if err != nil {
		return nil, tool.ExecErr(r.Name(), "read files", err)
	}
	if input == "" {
		return tool.NewResult(r.Name(), r.Category(), nil), nil
	}

	resp, err := r.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:        r.model,
		Instructions: openai.String(reviewInstructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(input),
		},
	})
	if err != nil {
		return nil, tool.ExecErr(r.Name(), "responses.create", err)
	}
	if msg := strings.TrimSpace(resp.Error.Message); msg != "" {
		return nil, tool.ExecErr(r.Name(), "responses.create", fmt.Errorf("response failed: %s", msg))
	}

	issues, err := parseReview([]byte(resp.OutputText()))
	if err != nil {
		return nil, tool.ExecErr(r.Name(), "parse response", err)
	}

	res := tool.NewResult(r.Name(), r.Category(), issues)
	res.Metadata = map[string]any{"model": r.model, "files": len(files)}
	return res, nil
}

const reviewInstructions = "You are a strict code reviewer. Reply with a JSON object " +
	`{"comments":[{"file":"...","line":1,"comment":"..."}]} listing concrete problems. ` +
	"Return an empty comments array when the code is fine. No prose outside the JSON."

func reviewInput(files []string) (string, error) {
	var b strings.Builder
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		if len(data) > maxReviewFileBytes {
			data = data[:maxReviewFileBytes]
		}
		b.WriteString("### ")
		b.WriteString(file)
		b.WriteString("\n```\n")
		b.Write(data)
		b.WriteString("\n```\n")
	}
	return b.String(), nil
}

func parseReview(output []byte) ([]tool.Issue, error) {
	var payload struct {
		Comments []ReviewComment `json:"comments"`
	}
	if err := json.Unmarshal(output, &payload); err != nil {
		recovered, ok := extractJSON(output)
		if !ok || json.Unmarshal(recovered, &payload) != nil {
			return nil, fmt.Errorf("response is not valid JSON")
		}
	}
	issues := make([]tool.Issue, 0, len(payload.Comments))
	for _, comment := range payload.Comments {
		issues = append(issues, comment)
	}
	return issues, nil
}

func extractJSON(data []byte) ([]byte, bool) {
	start := bytes.IndexByte(data, '{')
	end := bytes.LastIndexByte(data, '}')
	if start == -1 || end == -1 || start >= end {
		return nil, false
	}
	return data[start : end+1], true
}
