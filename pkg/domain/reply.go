package domain

// ReplyType defines the category of an outbound record.
type ReplyType string

const (
	ReplyMessage ReplyType = "message"
	ReplyTyping  ReplyType = "typing"
	ReplyTrace   ReplyType = "trace"
)

// AttachmentLayout tells the channel how to arrange multiple attachments.
type AttachmentLayout string

const (
	LayoutList     AttachmentLayout = "list"
	LayoutCarousel AttachmentLayout = "carousel"
)

// ActionIMBack posts the action value back as if the user typed it.
const ActionIMBack = "imBack"

// CardAction is a clickable button (suggested action or card button).
type CardAction struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// IMBack builds a button that answers with its own title.
func IMBack(title string) CardAction {
	return CardAction{Type: ActionIMBack, Title: title, Value: title}
}

// Attachment is a channel-neutral rich card.
type Attachment struct {
	ContentType string       `json:"content_type"`
	Title       string       `json:"title,omitempty"`
	Subtitle    string       `json:"subtitle,omitempty"`
	Text        string       `json:"text,omitempty"`
	Images      []string     `json:"images,omitempty"`
	Buttons     []CardAction `json:"buttons,omitempty"`
}

// HeroCardContentType is the content type of a hero card attachment.
const HeroCardContentType = "application/vnd.microsoft.card.hero"

// HeroCard builds a hero card attachment.
func HeroCard(title, subtitle string, images []string, buttons ...CardAction) Attachment {
	return Attachment{
		ContentType: HeroCardContentType,
		Title:       title,
		Subtitle:    subtitle,
		Images:      images,
		Buttons:     buttons,
	}
}

// Reply is one normalized outbound record. Delivery over the wire is the
// transport's concern.
type Reply struct {
	Type             ReplyType        `json:"type"`
	Text             string           `json:"text,omitempty"`
	Attachments      []Attachment     `json:"attachments,omitempty"`
	AttachmentLayout AttachmentLayout `json:"attachment_layout,omitempty"`
	SuggestedActions []CardAction     `json:"suggested_actions,omitempty"`
	TraceName        string           `json:"trace_name,omitempty"`
	TraceValue       any              `json:"trace_value,omitempty"`
}

// Message builds a plain text reply.
func Message(text string) Reply {
	return Reply{Type: ReplyMessage, Text: text}
}

// Typing builds a typing indicator.
func Typing() Reply {
	return Reply{Type: ReplyTyping}
}

// Trace builds a diagnostic record. Channels usually only show it in developer tools.
func Trace(name string, value any) Reply {
	return Reply{Type: ReplyTrace, TraceName: name, TraceValue: value}
}
