package dsl

import "github.com/aretw0/turnstile/pkg/domain"

// PromptBuilder provides a fluent API for configuring a prompt.
type PromptBuilder struct {
	prompt  domain.Prompt
	builder *Builder
}

// Validate sets the predicate applied to recognized input.
func (p *PromptBuilder) Validate(v domain.Validator) *PromptBuilder {
	p.prompt.Validate = v
	return p
}

// Retry sets the message sent when input is rejected.
func (p *PromptBuilder) Retry(message string) *PromptBuilder {
	p.prompt.RetryMessage = message
	return p
}

// Then returns to the dialog builder.
func (p *PromptBuilder) Then() *Builder {
	return p.builder
}

// Text renders a prompt made of a single line of text.
func Text(text string) domain.RenderFunc {
	return domain.Static(domain.PromptOptions{Text: text})
}

// Choices renders a prompt offering a fixed set of choices.
func Choices(text string, style domain.ListStyle, choices ...string) domain.RenderFunc {
	return domain.Static(domain.PromptOptions{
		Text:    text,
		Choices: choices,
		Style:   style,
	})
}

// Cards renders a prompt made of attachments laid out as a carousel.
func Cards(text string, cards ...domain.Attachment) domain.RenderFunc {
	return domain.Static(domain.PromptOptions{
		Text:             text,
		Attachments:      cards,
		AttachmentLayout: domain.LayoutCarousel,
	})
}
