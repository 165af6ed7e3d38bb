package core

import (
	"strings"
)

// ClassificationInstruction asks for exactly one taxonomy label
func ClassificationInstruction() string {
	var b strings.Builder
	b.WriteString("You are an email assistant. Categorize the following email into exactly one of these categories:\n")
	for _, l := range allLabels {
		b.WriteString("- ")
		b.WriteString(string(l))
		b.WriteString("\n")
	}
	b.WriteString("\nRespond only with the label name. No explanation.")
	return b.String()
}

// ClassificationPrompt is the instruction followed by the email text, for
// providers without a separate system message.
func ClassificationPrompt(emailText string) string {
	return ClassificationInstruction() + "\n\nEmail:\n" + emailText
}
