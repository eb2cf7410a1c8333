package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

const analyzeSystemPrompt = `You assess decision options for an autonomous work engine.
Score each option from 0 to 1, decide whether one option is clearly better,
and respond with a single JSON object:
{"scores":[{"option":"...","score":0.0,"rationale":"..."}],
 "clear_winner":false,"winner":"...","confidence":0.0,
 "recommend_parallel":false,"reasoning":"..."}
Set recommend_parallel when the top two options are close enough that
building both would settle the question. Respond with JSON only.`

const compareSystemPrompt = `You compare two completed implementations of the same change.
Pick the better one and respond with a single JSON object:
{"winner_id":"...","reasoning":"..."}
Respond with JSON only.`

// ClientConfig contains configuration for creating an Anthropic-backed
// collaborator.
type ClientConfig struct {
	// Model is the model to use. Defaults to Claude Sonnet.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseAWSBedrock routes calls through AWS Bedrock instead of the
	// direct API.
	UseAWSBedrock bool
	// AWSRegion is the Bedrock region.
	AWSRegion string
	// AWSProfile is the optional AWS profile name.
	AWSProfile string
}

// Client is the Anthropic-backed reasoning collaborator.
type Client struct {
	inner anthropic.Client
	model anthropic.Model
}

// NewClient creates a reasoning client against the Anthropic API or AWS
// Bedrock.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	return &Client{inner: anthropic.NewClient(opts...), model: model}, nil
}

// Analyze scores each option and reports whether one clearly wins.
func (c *Client) Analyze(ctx context.Context, in AnalysisInput) (*Analysis, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nOptions:\n", in.Question)
	for i, opt := range in.Options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
	}
	if in.Context != "" {
		fmt.Fprintf(&b, "\nContext: %s\n", in.Context)
	}
	if len(in.AffectedAreas) > 0 {
		fmt.Fprintf(&b, "\nAffected areas: %s\n", strings.Join(in.AffectedAreas, ", "))
	}

	text, err := c.call(ctx, analyzeSystemPrompt, b.String())
	if err != nil {
		return nil, err
	}

	var analysis Analysis
	if err := json.Unmarshal(extractJSON(text), &analysis); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}
	return &analysis, nil
}

// Compare picks between two finished explorations.
func (c *Client) Compare(ctx context.Context, a, b Candidate) (*Comparison, error) {
	prompt := fmt.Sprintf("Candidate %s:\n%s\n\nCandidate %s:\n%s\n",
		a.ID, describeCandidate(a), b.ID, describeCandidate(b))

	text, err := c.call(ctx, compareSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var cmp Comparison
	if err := json.Unmarshal(extractJSON(text), &cmp); err != nil {
		return nil, fmt.Errorf("parse comparison: %w", err)
	}
	if cmp.WinnerID != a.ID && cmp.WinnerID != b.ID {
		return nil, fmt.Errorf("parse comparison: winner %q is not a candidate", cmp.WinnerID)
	}
	return &cmp, nil
}

// call makes a single untooled API call and returns the text content.
func (c *Client) call(ctx context.Context, system, user string) (string, error) {
	resp, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += variant.Text
		}
	}
	return text, nil
}

// describeCandidate renders a candidate for the comparison prompt.
func describeCandidate(c Candidate) string {
	var b strings.Builder
	b.WriteString(c.Summary)
	fmt.Fprintf(&b, "\nDiff: %d files changed, +%d -%d\n", c.FilesChanged, c.Insertions, c.Deletions)
	if len(c.CommitLog) > 0 {
		b.WriteString("Commits:\n")
		for _, line := range c.CommitLog {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	return b.String()
}

// extractJSON returns the first top-level JSON object in text. Models often
// wrap JSON in prose or code fences.
func extractJSON(text string) []byte {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return []byte(text)
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return []byte(text[start : i+1])
			}
		}
	}
	return []byte(text[start:])
}

// Verify Client implements Collaborator at compile time.
var _ Collaborator = (*Client)(nil)
