package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/turnstile/pkg/domain"
)

// renderPrompt turns prompt options into outbound replies.
func renderPrompt(opts domain.PromptOptions) []domain.Reply {
	text := opts.Text
	var actions []domain.CardAction

	if len(opts.Choices) > 0 {
		switch opts.Style {
		case domain.StyleList:
			text = appendLine(text, numbered(opts.Choices))
		case domain.StyleInline:
			text = strings.TrimSpace(text + " " + inline(opts.Choices))
		case domain.StyleNone:
		default:
			actions = make([]domain.CardAction, len(opts.Choices))
			for i, c := range opts.Choices {
				actions[i] = domain.IMBack(c)
			}
		}
	}

	if text == "" && len(opts.Attachments) == 0 && len(actions) == 0 {
		return nil
	}

	reply := domain.Message(text)
	reply.Attachments = opts.Attachments
	reply.AttachmentLayout = opts.AttachmentLayout
	reply.SuggestedActions = actions
	return []domain.Reply{reply}
}

func numbered(choices []string) string {
	var b strings.Builder
	for i, c := range choices {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "   %d. %s", i+1, c)
	}
	return b.String()
}

func inline(choices []string) string {
	parts := make([]string, len(choices))
	for i, c := range choices {
		parts[i] = fmt.Sprintf("(%d) %s", i+1, c)
	}
	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " or " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + ", or " + parts[len(parts)-1]
	}
}

func appendLine(text, block string) string {
	if text == "" {
		return block
	}
	return text + "\n\n" + block
}
