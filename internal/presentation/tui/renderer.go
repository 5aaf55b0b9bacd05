package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// ReplyRenderer turns outbound replies into terminal text.
type ReplyRenderer struct {
	markdown   func(string) (string, error)
	showTraces bool
}

// NewReplyRenderer creates a renderer. Trace replies are hidden unless showTraces is set.
func NewReplyRenderer(markdown func(string) (string, error), showTraces bool) *ReplyRenderer {
	if markdown == nil {
		markdown = func(s string) (string, error) { return s, nil }
	}
	return &ReplyRenderer{markdown: markdown, showTraces: showTraces}
}

// Render formats a single reply. Typing indicators and hidden traces render empty.
func (r *ReplyRenderer) Render(reply domain.Reply) string {
	switch reply.Type {
	case domain.ReplyTyping:
		return ""
	case domain.ReplyTrace:
		if !r.showTraces {
			return ""
		}
		return termenv.String(fmt.Sprintf("[trace] %s: %v", reply.TraceName, reply.TraceValue)).Faint().String() + "\n"
	}

	var sb strings.Builder
	if reply.Text != "" {
		out, err := r.markdown(reply.Text)
		if err != nil {
			out = reply.Text + "\n"
		}
		sb.WriteString(out)
	}

	for _, a := range reply.Attachments {
		sb.WriteString(renderCard(a))
	}

	if len(reply.SuggestedActions) > 0 {
		titles := make([]string, len(reply.SuggestedActions))
		for i, a := range reply.SuggestedActions {
			titles[i] = "[" + a.Title + "]"
		}
		sb.WriteString(termenv.String(strings.Join(titles, " ")).Bold().String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderAll formats replies in order.
func (r *ReplyRenderer) RenderAll(replies []domain.Reply) string {
	var sb strings.Builder
	for _, reply := range replies {
		sb.WriteString(r.Render(reply))
	}
	return sb.String()
}

func renderCard(a domain.Attachment) string {
	var sb strings.Builder
	sb.WriteString("  ┌ ")
	sb.WriteString(termenv.String(a.Title).Bold().String())
	sb.WriteString("\n")
	if a.Subtitle != "" {
		sb.WriteString("  │ " + a.Subtitle + "\n")
	}
	if a.Text != "" {
		sb.WriteString("  │ " + a.Text + "\n")
	}
	for _, b := range a.Buttons {
		sb.WriteString("  │ [" + b.Title + "]\n")
	}
	sb.WriteString("  └\n")
	return sb.String()
}
