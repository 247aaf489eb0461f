package message

// TokenUsage holds backend-reported token accounting for a single call.
type TokenUsage struct {
	InputTokens         int // Tokens consumed for input (prompt + context)
	OutputTokens        int // Tokens generated in the response
	TotalTokens         int // Input + output
	CachedTokens        int // Input tokens served from the provider's prompt cache
	CacheCreationTokens int // Input tokens written into the cache this call (Anthropic)
}

// EstimateTokens approximates the token count of text as len/4.
//
// This is a deliberate length heuristic, not a tokenizer: real tokenizers are
// provider-specific and would change budget outcomes between backends. Every
// budget decision in this codebase is defined in terms of this estimate.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// EstimateMessagesTokens sums the estimate across a message list.
func EstimateMessagesTokens(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += m.EstimatedTokens()
	}
	return total
}
