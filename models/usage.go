package models

// Usage is token usage normalized across providers.
type Usage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
	TotalTokens  int `json:"total_tokens" yaml:"total_tokens"`
	Calls        int `json:"calls" yaml:"calls"`
}

func (u *Usage) add(o Usage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.TotalTokens += o.TotalTokens
	u.Calls += o.Calls
}

// usageFromGenerationInfo reads token counts out of a provider's GenerationInfo map.
// Key names differ per provider:
//   - OpenAI, Ollama: PromptTokens / CompletionTokens / TotalTokens
//   - Anthropic: InputTokens / OutputTokens
//   - Google, Bedrock: input_tokens / output_tokens / total_tokens
func usageFromGenerationInfo(info map[string]any) Usage {
	u := Usage{
		InputTokens:  firstInt(info, "PromptTokens", "InputTokens", "input_tokens"),
		OutputTokens: firstInt(info, "CompletionTokens", "OutputTokens", "output_tokens"),
		Calls:        1,
	}
	u.TotalTokens = firstInt(info, "TotalTokens", "total_tokens")
	if u.TotalTokens == 0 {
		u.TotalTokens = u.InputTokens + u.OutputTokens
	}
	return u
}

func firstInt(m map[string]any, keys ...string) int {
	for _, key := range keys {
		if v := intFromMap(m, key); v > 0 {
			return v
		}
	}
	return 0
}

// intFromMap extracts an int value from a map, handling various numeric types.
func intFromMap(m map[string]any, key string) int {
	switch n := m[key].(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}
