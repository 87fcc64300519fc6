package cards

// CostEstimator converts accumulated token usage into an approximate dollar
// cost for job metrics.
type CostEstimator interface {
	EstimateUSD(model string, usage Usage) float64
}

// ModelRate is the per-million-token price pair for one model.
type ModelRate struct {
	PromptUSDPerM     float64
	CompletionUSDPerM float64
}

// StaticCostEstimator prices usage from a fixed rate table. Unknown models
// fall back to DefaultRate so metrics never silently report zero for a model
// someone forgot to register.
type StaticCostEstimator struct {
	Rates       map[string]ModelRate
	DefaultRate ModelRate
}

func NewStaticCostEstimator() *StaticCostEstimator {
	return &StaticCostEstimator{
		Rates: map[string]ModelRate{
			"gemini-2.0-flash": {PromptUSDPerM: 0.10, CompletionUSDPerM: 0.40},
			"gemini-1.5-pro":   {PromptUSDPerM: 1.25, CompletionUSDPerM: 5.00},
			// Locally served models cost nothing per token.
			"llama3.2": {},
			"qwen2.5":  {},
		},
		DefaultRate: ModelRate{PromptUSDPerM: 0.50, CompletionUSDPerM: 1.50},
	}
}

func (e *StaticCostEstimator) EstimateUSD(model string, usage Usage) float64 {
	rate, ok := e.Rates[model]
	if !ok {
		rate = e.DefaultRate
	}
	return float64(usage.PromptTokens)/1e6*rate.PromptUSDPerM +
		float64(usage.CompletionTokens)/1e6*rate.CompletionUSDPerM
}
