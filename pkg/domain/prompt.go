package domain

// InputKind selects how raw input is recognized before validation.
type InputKind string

const (
	InputText     InputKind = "text"
	InputChoice   InputKind = "choice"
	InputConfirm  InputKind = "confirm"
	InputNumber   InputKind = "number"
	InputActivity InputKind = "activity"
)

// ListStyle controls how choices are presented.
type ListStyle string

const (
	StyleSuggestedAction ListStyle = "suggestedAction"
	StyleList            ListStyle = "list"
	StyleInline          ListStyle = "inline"
	StyleNone            ListStyle = "none"
)

// Validator is a pure, deterministic predicate over a recognized value.
type Validator func(value any) bool

// Prompt describes a suspension point: how its input is recognized and
// which values are acceptable.
type Prompt struct {
	ID    string
	Input InputKind

	// Validate runs after recognition. Nil accepts every recognized value.
	Validate Validator

	// RetryMessage is sent before the prompt is re-rendered on rejection.
	RetryMessage string
}

// PromptOptions is the render payload of a prompt. It is snapshotted into the
// frame while the prompt is pending, so it must stay serializable.
type PromptOptions struct {
	Text             string           `json:"text,omitempty"`
	Attachments      []Attachment     `json:"attachments,omitempty"`
	AttachmentLayout AttachmentLayout `json:"attachment_layout,omitempty"`
	Choices          []string         `json:"choices,omitempty"`
	Style            ListStyle        `json:"style,omitempty"`
	RetryText        string           `json:"retry_text,omitempty"`
}
