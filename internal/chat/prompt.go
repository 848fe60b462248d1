package chat

import (
	"strings"

	"github.com/amezzi/chatterbox/internal/memory"
)

// RenderPrompt embeds the prior turns and the new input into the conversation
// template fed to the model.
func RenderPrompt(turns []memory.Turn, input string) string {
	var b strings.Builder
	b.WriteString("The following is a friendly conversation between a human and an AI assistant.\n")
	b.WriteString("\nCurrent conversation:\n")
	for _, t := range turns {
		b.WriteString("\nHuman: ")
		b.WriteString(t.UserMessage)
		b.WriteString("\nAI: ")
		b.WriteString(t.BotReply)
	}
	b.WriteString("\n\nHuman: ")
	b.WriteString(input)
	b.WriteString("\nAI: ")
	return b.String()
}
