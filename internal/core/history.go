package core

import (
	"askdb.dev/askdb/internal/llm"
	"askdb.dev/askdb/internal/store"
)

// historyTurns expands stored pairs into alternating user/assistant turns,
// oldest first.
func historyTurns(histories []store.History) []llm.Message {
	turns := make([]llm.Message, 0, 2*len(histories))
	for _, h := range histories {
		turns = append(turns,
			llm.Message{Role: llm.RoleUser, Content: h.Question},
			llm.Message{Role: llm.RoleAssistant, Content: h.Answer},
		)
	}
	return turns
}
