package openai

import (
	"context"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nirujan123/risk-engine/internal/risk"
)

// Completer sends one system/user exchange and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type chatCompleter struct {
	cli   oa.Client
	model string
}

func (c *chatCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: oa.ChatModel(c.model),
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(system),
			oa.UserMessage(user),
		},
		MaxTokens: oa.Int(800),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// Commentator turns a metrics record into a short narrative for the run report.
type Commentator struct {
	c Completer
}

func NewCommentator(apiKey, model string) *Commentator {
	client := oa.NewClient(option.WithAPIKey(apiKey))
	return &Commentator{c: &chatCompleter{cli: client, model: model}}
}

// NewCommentatorWithCompleter is used by tests and alternative backends.
func NewCommentatorWithCompleter(c Completer) *Commentator {
	return &Commentator{c: c}
}

const commentarySystemPrompt = `You are a risk analyst writing a brief note on a portfolio risk report.

Your response must follow this exact structure:

**Summary:**
[Two sentences on overall risk level]

**Tail Risk:**
[Interpret VaR and Expected Shortfall as daily loss figures]

**Drawdown:**
[Interpret the maximum drawdown]

Guidelines:
- Quote figures as percentages with two decimals
- Do not give trading recommendations
- Keep it under 200 words`

// Commentary asks the model for a narrative on m.
func (c *Commentator) Commentary(ctx context.Context, m risk.RiskMetrics) (string, error) {
	out, err := c.c.Complete(ctx, commentarySystemPrompt, BuildPrompt(m))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// BuildPrompt renders the metrics as the user message.
func BuildPrompt(m risk.RiskMetrics) string {
	pct := risk.LevelPercent(m.Level) + "%"
	var b strings.Builder
	fmt.Fprintf(&b, "Portfolio: equal-weighted %s\n", strings.Join(m.Tickers, ", "))
	fmt.Fprintf(&b, "Window: %s to %s (%s prices)\n", m.Start.Format(risk.DateLayout), m.End.Format(risk.DateLayout), m.PriceBasis)
	fmt.Fprintf(&b, "Daily volatility: %.4f%%\n", m.VolDaily*100)
	fmt.Fprintf(&b, "Annual volatility (%d days): %.4f%%\n", m.TradingDays, m.VolAnnual*100)
	fmt.Fprintf(&b, "Max drawdown: %.4f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(&b, "Historical VaR %s: %.4f%%\n", pct, m.VaR*100)
	fmt.Fprintf(&b, "Expected Shortfall %s: %.4f%%\n", pct, m.ES*100)
	fmt.Fprintf(&b, "Parametric VaR %s: %.4f%%\n", pct, m.ParametricVaR*100)
	return b.String()
}
