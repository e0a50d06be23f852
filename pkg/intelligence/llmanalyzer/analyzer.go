package llmanalyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	langchainprompts "github.com/tmc/langchaingo/prompts"

	"github.com/growthloop/prospector-go/pkg/platform"
)

// verdictPrompt renders a candidate for scoring. The model must answer with
// bare JSON matching the verdict struct below.
var verdictPrompt = langchainprompts.NewPromptTemplate(
	`You evaluate social media profiles as potential affiliate partners.

Profile:
- Platform: {{.platform}}
- Username: {{.username}}
- Bio: {{.bio}}
- Keywords: {{.keywords}}
- Followers: {{.followers}}
- Average likes per post: {{.avgLikes}}
- Average comments per post: {{.avgComments}}

Score the profile. Respond with ONLY a JSON object, no prose and no code fences:
{"sentiment": <0..1>, "engagement_potential": <0..1>, "topic_relevance": <0..1>, "topics": ["..."], "summary": "<one sentence>"}`,
	[]string{"platform", "username", "bio", "keywords", "followers", "avgLikes", "avgComments"},
)

// verdict mirrors the JSON contract in the prompt.
type verdict struct {
	Sentiment           float64  `json:"sentiment"`
	EngagementPotential float64  `json:"engagement_potential"`
	TopicRelevance      float64  `json:"topic_relevance"`
	Topics              []string `json:"topics"`
	Summary             string   `json:"summary"`
}

// Analyzer scores candidates with a language model. It satisfies the
// intelligence Processor interface and is wired only when an OpenAI key is
// configured.
type Analyzer struct {
	llm    llms.Model
	config *Config
	logger logrus.FieldLogger
}

// New wires the analyzer over an existing model.
func New(model llms.Model, config *Config) (*Analyzer, error) {
	if model == nil {
		return nil, fmt.Errorf("llmanalyzer: model is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("llmanalyzer: invalid config: %w", err)
	}
	return &Analyzer{
		llm:    model,
		config: config,
		logger: config.Logger,
	}, nil
}

// NewFromEnv bootstraps the OpenAI-backed analyzer. The underlying client
// reads OPENAI_API_KEY itself.
func NewFromEnv(logger *logrus.Logger) (*Analyzer, error) {
	config, err := NewConfig(logger)
	if err != nil {
		return nil, err
	}

	model, err := openai.New(openai.WithModel(config.Model))
	if err != nil {
		return nil, fmt.Errorf("llmanalyzer: failed to initialize OpenAI: %w", err)
	}

	return New(model, config)
}

// Name implements the intelligence Processor interface.
func (a *Analyzer) Name() string {
	return "llm"
}

// Analyze implements the intelligence Processor interface.
func (a *Analyzer) Analyze(ctx context.Context, candidate *platform.Candidate) (*platform.Analysis, error) {
	prompt, err := verdictPrompt.Format(map[string]any{
		"platform":    string(candidate.Platform),
		"username":    candidate.Username,
		"bio":         candidate.Bio,
		"keywords":    strings.Join(candidate.Keywords, ", "),
		"followers":   candidate.Followers,
		"avgLikes":    candidate.AvgLikes,
		"avgComments": candidate.AvgComments,
	})
	if err != nil {
		return nil, fmt.Errorf("llmanalyzer: failed to format prompt: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"candidateID": candidate.ID,
		"platform":    candidate.Platform,
		"model":       a.config.Model,
	}).Debug("Requesting LLM verdict")

	completion, err := a.llm.Call(ctx, prompt,
		llms.WithTemperature(a.config.Temperature),
		llms.WithMaxTokens(a.config.MaxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("llmanalyzer: failed to generate verdict: %w", err)
	}

	return parseVerdict(completion)
}

// parseVerdict decodes the model's JSON answer, tolerating the code fences
// some models insist on adding.
func parseVerdict(completion string) (*platform.Analysis, error) {
	raw := strings.TrimSpace(completion)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.DisallowUnknownFields()

	var v verdict
	if err := decoder.Decode(&v); err != nil {
		return nil, fmt.Errorf("llmanalyzer: malformed verdict: %w", err)
	}

	return &platform.Analysis{
		Sentiment:           clampUnit(v.Sentiment),
		EngagementPotential: clampUnit(v.EngagementPotential),
		TopicRelevance:      clampUnit(v.TopicRelevance),
		Topics:              v.Topics,
		Summary:             v.Summary,
	}, nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
