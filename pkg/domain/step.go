package domain

import "context"

// StepKind discriminates the Step variant.
type StepKind string

const (
	StepPlain  StepKind = "plain"
	StepPrompt StepKind = "prompt"
)

// StepContext is what a step sees of the running turn.
// It is only valid for the duration of the call it was passed to.
type StepContext interface {
	Identity() Identity
	Activity() Activity
	DialogID() string

	// Result returns the value stored under a step name in the current frame.
	Result(name string) (any, bool)
	// Results returns a copy of all values collected by the current frame.
	Results() map[string]any
	// Set stores a value in the current frame.
	Set(name string, value any)

	// Send queues replies for the turn's outbound sequence.
	Send(replies ...Reply)
}

// Action is the body of a Plain step. It must return promptly once ctx is
// done; the engine stops waiting on a timed out turn but cannot stop the action.
type Action func(ctx context.Context, sc StepContext) (StepResult, error)

// RenderFunc builds the options of a Prompt step from the frame so far.
type RenderFunc func(sc StepContext) PromptOptions

// Step is one element of a waterfall. Build it with Plain or PromptStep.
type Step struct {
	Name string
	Kind StepKind

	// Action is set for Plain steps.
	Action Action

	// PromptID and Render are set for Prompt steps.
	PromptID string
	Render   RenderFunc

	// Calls names the child dialog a Plain step begins, when known up front.
	// It is descriptive only and feeds registry validation and diagrams.
	Calls string
}

// Plain builds a step that runs code and returns an explicit StepResult.
func Plain(name string, action Action) Step {
	return Step{Name: name, Kind: StepPlain, Action: action}
}

// PromptStep builds a step that renders a prompt and suspends the dialog.
// The recognized and validated answer is stored under the step name.
func PromptStep(name, promptID string, render RenderFunc) Step {
	return Step{Name: name, Kind: StepPrompt, PromptID: promptID, Render: render}
}

// Static returns a RenderFunc that always yields the same options.
func Static(opts PromptOptions) RenderFunc {
	return func(StepContext) PromptOptions { return opts }
}
