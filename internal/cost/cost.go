// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package cost estimates the USD cost of a generation call from its reported
// token usage and a per-model price table.
package cost

import "math"

// Currency is the unit every estimate is expressed in.
const Currency = "USD"

// DefaultFallbackModel is the price row used for models missing from the table.
const DefaultFallbackModel = "gpt-4-turbo-preview"

// inputShare is the fixed fraction (in tenths) of total tokens attributed to
// the prompt. The provider's real prompt/completion breakdown is not used.
const inputShare = 3

// Rate is the price of 1,000 tokens, split by direction.
type Rate struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// PriceTable maps model names to rates. The zero value is usable but prices
// everything at zero. Tables are treated as immutable once built; use With
// to derive a modified copy.
type PriceTable struct {
	rates    map[string]Rate
	fallback string
}

// NewPriceTable builds a table from rows. fallback names the row applied to
// unknown models and must be present in rows to have any effect.
func NewPriceTable(rows map[string]Rate, fallback string) PriceTable {
	rates := make(map[string]Rate, len(rows))
	for model, r := range rows {
		rates[model] = r
	}
	return PriceTable{rates: rates, fallback: fallback}
}

// DefaultPriceTable returns the built-in pricing rows.
func DefaultPriceTable() PriceTable {
	return NewPriceTable(map[string]Rate{
		"gpt-4-turbo-preview": {Input: 0.01, Output: 0.03},
		"gpt-4":               {Input: 0.03, Output: 0.06},
		"gpt-3.5-turbo":       {Input: 0.0015, Output: 0.002},
		"gpt-3.5-turbo-16k":   {Input: 0.003, Output: 0.004},
	}, DefaultFallbackModel)
}

// With returns a copy of the table with rows added or replaced.
func (t PriceTable) With(rows map[string]Rate) PriceTable {
	merged := make(map[string]Rate, len(t.rates)+len(rows))
	for model, r := range t.rates {
		merged[model] = r
	}
	for model, r := range rows {
		merged[model] = r
	}
	return PriceTable{rates: merged, fallback: t.fallback}
}

// Lookup returns the rate for model, falling back to the designated default
// row. The boolean reports whether model itself was found.
func (t PriceTable) Lookup(model string) (Rate, bool) {
	if r, ok := t.rates[model]; ok {
		return r, true
	}
	return t.rates[t.fallback], false
}

// Estimate is the itemized cost breakdown for one call.
type Estimate struct {
	Model        string  `json:"model"`
	TotalTokens  int     `json:"total_tokens"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	InputCost    float64 `json:"input_cost"`
	OutputCost   float64 `json:"output_cost"`
	TotalCost    float64 `json:"total_cost"`
	Currency     string  `json:"currency"`
}

// Estimator prices token usage against an injected table.
type Estimator struct {
	table PriceTable
}

// NewEstimator creates an estimator over the given table.
func NewEstimator(table PriceTable) *Estimator {
	return &Estimator{table: table}
}

// Estimate splits tokens 30/70 into input and output portions and prices
// each against the model's rate. All money values are rounded to four
// decimal places. It never fails: unknown models use the fallback row.
func (e *Estimator) Estimate(tokens int, model string) Estimate {
	if tokens < 0 {
		tokens = 0
	}
	rate, _ := e.table.Lookup(model)

	inputTokens := tokens * inputShare / 10
	outputTokens := tokens - inputTokens

	inputCost := float64(inputTokens) / 1000 * rate.Input
	outputCost := float64(outputTokens) / 1000 * rate.Output

	return Estimate{
		Model:        model,
		TotalTokens:  tokens,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		InputCost:    Round(inputCost),
		OutputCost:   Round(outputCost),
		TotalCost:    Round(inputCost + outputCost),
		Currency:     Currency,
	}
}

// EstimateTokens approximates the token count of English text at roughly
// four characters per token.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// Round rounds a USD amount to 4 decimal places.
func Round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
