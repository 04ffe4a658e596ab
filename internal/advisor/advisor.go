// Package advisor wraps the generative-AI service. Both calls are single
// attempt and best effort: lookups degrade to a missing value and advice
// degrades to fixed fallback text, never to an error.
package advisor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultModel is the model used for price lookups and advisory text.
const DefaultModel = "gemini-2.5-flash"

const (
	fallbackNoKey  = "AI advice is unavailable (API key not configured)."
	fallbackBusy   = "The advisor is busy right now. Please try again later."
	fallbackEmpty  = "No advice is available right now."
	advicePromptFn = `As a professional financial advisor, write a short piece of financial advice (under 100 words) based on these figures:
Net worth: %.0f
This month's income: %.0f
This month's expenses: %.0f
Largest expense category: %s

Keep the advice concrete and encouraging.`
)

// Advisor holds the GenAI client. A nil client (missing credentials or
// failed initialization) is valid; every call then takes its fallback path.
type Advisor struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// New creates an advisor. An empty apiKey or a client initialization failure
// yields a degraded advisor rather than an error.
func New(ctx context.Context, apiKey string, log zerolog.Logger) *Advisor {
	a := &Advisor{model: DefaultModel, log: log}
	if apiKey == "" {
		log.Warn().Msg("GenAI API key is missing, advisor runs degraded")
		return a
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create GenAI client, advisor runs degraded")
		return a
	}
	a.client = client
	return a
}

// FetchStockPrice asks the model for the current price of one holding. The
// bool result is false whenever no usable price came back.
func (a *Advisor) FetchStockPrice(ctx context.Context, symbol, name string) (float64, bool) {
	if a.client == nil {
		return 0, false
	}

	prompt := fmt.Sprintf(`Find the current stock price for %s (%s).
If it is a Taiwan stock, use TWSE data; if it is a US stock, use US market data.
Return ONLY the numeric price value. Do not include currency symbols or text.`, name, symbol)

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("Price lookup failed")
		return 0, false
	}

	price, err := parsePrice(resp.Text())
	if err != nil {
		a.log.Warn().Err(err).Str("symbol", symbol).Msg("Price lookup returned no number")
		return 0, false
	}
	return price, true
}

// GenerateAdvice produces a short advisory string from the aggregate totals.
// It always returns displayable text.
func (a *Advisor) GenerateAdvice(ctx context.Context, netWorth, monthlyIncome, monthlyExpense float64, topExpenseCategory string) string {
	if a.client == nil {
		return fallbackNoKey
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: fmt.Sprintf(advicePromptFn, netWorth, monthlyIncome, monthlyExpense, topExpenseCategory)}},
		},
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		a.log.Warn().Err(err).Msg("Advice generation failed")
		return fallbackBusy
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return fallbackEmpty
	}
	return text
}

// parsePrice extracts a numeric price from a model reply, tolerating
// currency signs, commas and surrounding prose.
func parsePrice(raw string) (float64, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return 0, fmt.Errorf("no digits in %q", raw)
	}
	price, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", clean, err)
	}
	return price, nil
}
