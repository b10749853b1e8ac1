// Package prompt builds the model-facing message sequence from a user
// utterance and a ranked set of retrieved memories. It is the only place
// prompt-construction policy lives: pure, deterministic and free of I/O, so
// it can be tested in isolation.
package prompt

import (
	"strings"

	"github.com/hupe1980/memchat/core"
	"github.com/hupe1980/memchat/model"
)

// instruction is the fixed system preamble preceding the memories section.
const instruction = "You are a helpful AI. Answer the user based on their query and the provided memories."

// Compose produces exactly two messages: a system message embedding the fixed
// instruction plus a bullet list of memory text (one line per item, preserving
// the relevance order reported by the store), followed by the user message
// containing the raw utterance. An empty retrieval set renders an explicitly
// empty memories section; no placeholder text is invented.
func Compose(utterance string, retrieved []core.RetrievedMemory) []model.Message {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\nUser Memories:\n")
	for i, mem := range retrieved {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(mem.Text)
	}

	return []model.Message{
		{Role: model.RoleSystem, Content: b.String()},
		{Role: model.RoleUser, Content: utterance},
	}
}
