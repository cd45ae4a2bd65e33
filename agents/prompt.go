// Package agents implements knowledge-retrieval backends for session context
// augmentation and full-response generation.
package agents

import "strings"

// retrievalPrompt asks the backend for relevant facts only, optionally
// prefixed with recent conversation turns for better retrieval.
func retrievalPrompt(query string, priorUtterances []string) string {
	const ask = "Based on the knowledge base, what information is relevant to this question (provide key facts only, no full answer): "
	if len(priorUtterances) == 0 {
		return ask + query
	}
	var b strings.Builder
	b.WriteString(ask)
	b.WriteString("Previous conversation context:\n")
	for _, msg := range priorUtterances {
		b.WriteString("- ")
		b.WriteString(msg)
		b.WriteString("\n")
	}
	b.WriteString("\nCurrent question: ")
	b.WriteString(query)
	return b.String()
}

const contextHeader = "Relevant information from knowledge base:\n"
