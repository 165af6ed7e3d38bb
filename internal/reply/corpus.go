package reply

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mikey/email-onebox/internal/core"
)

// DefaultExamples is the built-in reply corpus used when no training file is
// configured.
func DefaultExamples() []core.TrainingExample {
	return []core.TrainingExample{
		{
			Input:  "I am applying for a job position. If the lead is interested, share the meeting booking link: https://cal.com/example",
			Output: "Thank you for shortlisting my profile! I'm available for a technical interview. You can book a slot here: https://cal.com/example",
		},
		{
			Input:  "The sender is interested in discussing a partnership opportunity. Respond positively and ask to schedule a call.",
			Output: "Thanks for reaching out! I'd love to explore this partnership further. Feel free to schedule a time here: https://cal.com/example",
		},
		{
			Input:  "The sender confirmed a meeting for tomorrow at 3PM. Acknowledge the confirmation positively.",
			Output: "Thanks for confirming our meeting. I've received the calendar invite and look forward to speaking with you tomorrow at 3PM!",
		},
		{
			Input:  "The sender is marketing a product with a discount. Classify it as spam and ignore.",
			Output: "(No reply needed - marked as spam)",
		},
		{
			Input:  "The sender rejected the proposal. Respond politely, thank them, and offer to stay in touch.",
			Output: "Thank you for getting back to me. I appreciate your time and consideration. Feel free to reach out if your needs change in the future!",
		},
		{
			Input:  "The sender is requesting a demo of your product. Share your calendar link to schedule one.",
			Output: "Thanks for your interest! I'd be happy to walk you through a demo. Please book a time here: https://cal.com/example",
		},
		{
			Input:  "The sender is asking for a proposal document. Respond with confirmation and mention when you'll send it.",
			Output: "Thanks for your interest! I'll share the proposal document with you by the end of the day. Let me know if there's anything specific you'd like included.",
		},
		{
			Input:  "The sender is following up on a previous message. Respond politely and acknowledge the delay if needed.",
			Output: "Thanks for following up and sorry for the delay. I've reviewed your message and will get back to you shortly with more details.",
		},
		{
			Input:  "The sender is interested in collaboration but wants to know more about your services.",
			Output: "Thanks for showing interest in collaborating! I'd love to share more about our services. Let's hop on a quick call. Book a time here: https://cal.com/example",
		},
		{
			Input:  "The sender is confirming attendance for a webinar. Acknowledge and thank them.",
			Output: "Great! Thanks for confirming your attendance. We're looking forward to having you at the webinar!",
		},
	}
}

// LoadExamples reads a JSON array of {"input","output"} objects
func LoadExamples(path string) ([]core.TrainingExample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read training file: %w", err)
	}

	var examples []core.TrainingExample
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("failed to parse training file %s: %w", path, err)
	}

	out := examples[:0]
	for _, ex := range examples {
		if strings.TrimSpace(ex.Input) == "" || strings.TrimSpace(ex.Output) == "" {
			continue
		}
		out = append(out, ex)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: training file %s has no usable examples", core.ErrValidation, path)
	}
	return out, nil
}

// Examples returns the corpus at path, or the built-in one when path is empty
func Examples(path string) ([]core.TrainingExample, error) {
	if path == "" {
		return DefaultExamples(), nil
	}
	return LoadExamples(path)
}
