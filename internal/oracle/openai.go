package oracle

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/types"
)

const systemRole = "You are an expert Python package conflict resolver and dependency manager. You respond with only valid JSON."

// OpenAIClient implements Client against an OpenAI-compatible
// chat-completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// OpenAIOptions configures the oracle endpoint
type OpenAIOptions struct {
	APIKey  string
	BaseURL string // override for local gateways
	Model   string
}

// NewOpenAIClient creates an oracle client. The API key falls back to
// OPENAI_API_KEY when not configured.
func NewOpenAIClient(opts OpenAIOptions, logger *zap.Logger) (*OpenAIClient, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("oracle API key not set (config oracle.api_key or OPENAI_API_KEY)")
	}

	model := opts.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("initializing oracle client", zap.String("model", model))

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}, nil
}

// Analyze implements Client
func (o *OpenAIClient) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	prompt, err := buildAnalysisPrompt(req)
	if err != nil {
		return nil, err
	}

	content, err := o.complete(ctx, prompt)
	if err != nil {
		return nil, &OracleUnavailableError{Op: "analyze", Err: err}
	}

	analysis, err := parseAnalysis(content, req.Mode)
	if err != nil {
		// Unparseable output is "no new information", not an outage
		o.logger.Warn("unparseable analysis response", zap.Error(err))
		return &Analysis{OverallStatus: "needs_attention", Summary: "oracle returned an unparseable response"}, nil
	}

	o.logger.Info("analysis complete",
		zap.String("mode", req.Mode.String()),
		zap.String("status", analysis.OverallStatus),
		zap.Int("solutions", len(analysis.Solutions)))
	return analysis, nil
}

// WebSearchConsult implements Client
func (o *OpenAIClient) WebSearchConsult(ctx context.Context, req ConsultRequest) (*types.Consultation, error) {
	prompt, err := buildConsultPrompt(req)
	if err != nil {
		return nil, err
	}

	content, err := o.complete(ctx, prompt)
	if err != nil {
		return nil, &OracleUnavailableError{Op: "web-search-consult", Err: err}
	}

	consultation, err := parseConsultation(content)
	if err != nil {
		o.logger.Warn("unparseable consultation response", zap.Error(err))
		consultation = &types.Consultation{ShouldContinue: true}
	}
	consultation.Index = req.Index
	consultation.Timestamp = time.Now()

	o.logger.Info("web-search consultation complete",
		zap.Int("index", req.Index),
		zap.Int("queries", len(consultation.Searches)),
		zap.Int("solutions", len(consultation.Solutions)))
	return consultation, nil
}

func (o *OpenAIClient) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemRole},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("oracle returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
