package yaml

// Definition is the top level of a dialogs file.
type Definition struct {
	Dialogs []DialogDef `mapstructure:"dialogs"`
}

// DialogDef describes one dialog as an ordered list of steps.
type DialogDef struct {
	ID    string    `mapstructure:"id"`
	Steps []StepDef `mapstructure:"steps"`

	// Results declares the types of the values the dialog collects, e.g.
	// {name: string, count: int, note: "string?"}. They are checked when a
	// complete step runs.
	Results map[string]string `mapstructure:"results"`
}

// StepDef describes one step. Exactly one of Say, Ask, Call, Do or Complete
// must be set. Text fields are Go templates evaluated against the frame results.
type StepDef struct {
	Name string `mapstructure:"name"`

	// When skips the step unless the template renders a truthy value.
	When string `mapstructure:"when"`

	// Typing sends a typing indicator before the step output.
	Typing bool `mapstructure:"typing"`

	Say      string  `mapstructure:"say"`
	Ask      *AskDef `mapstructure:"ask"`
	Call     string  `mapstructure:"call"`
	Do       string  `mapstructure:"do"`
	Complete *string `mapstructure:"complete"`
}

// AskDef describes a prompt.
type AskDef struct {
	Input   string    `mapstructure:"input"`
	Text    string    `mapstructure:"text"`
	Choices []string  `mapstructure:"choices"`
	Style   string    `mapstructure:"style"`
	Cards   []CardDef `mapstructure:"cards"`
	Retry   string    `mapstructure:"retry"`

	// Validate lists validators: a registered name, or a map with one of
	// non_empty, min_length, one_of, reject_containing, range.
	Validate []any `mapstructure:"validate"`
}

// CardDef describes a hero card. Buttons answer with their own title.
type CardDef struct {
	Title    string   `mapstructure:"title"`
	Subtitle string   `mapstructure:"subtitle"`
	Text     string   `mapstructure:"text"`
	Images   []string `mapstructure:"images"`
	Buttons  []string `mapstructure:"buttons"`
}
