package domain

// ResultKind discriminates the StepResult variant.
type ResultKind int

const (
	ResultAdvance ResultKind = iota
	ResultSuspend
	ResultComplete
	ResultBeginDialog
)

func (k ResultKind) String() string {
	switch k {
	case ResultAdvance:
		return "advance"
	case ResultSuspend:
		return "suspend"
	case ResultComplete:
		return "complete"
	case ResultBeginDialog:
		return "begin_dialog"
	default:
		return "unknown"
	}
}

// StepResult is the control transfer a step hands back to the engine loop.
type StepResult struct {
	Kind ResultKind

	// Suspend
	PromptID string
	Options  PromptOptions

	// Complete
	Value any

	// BeginDialog
	DialogID string
}

// Advance moves to the next step in the same turn.
func Advance() StepResult {
	return StepResult{Kind: ResultAdvance}
}

// Suspend renders the prompt and ends the turn. The next inbound activity
// answers it and the recognized value is stored under the current step name.
func Suspend(promptID string, opts PromptOptions) StepResult {
	return StepResult{Kind: ResultSuspend, PromptID: promptID, Options: opts}
}

// Complete ends the dialog now. Value is handed to the parent frame, if any.
func Complete(value any) StepResult {
	return StepResult{Kind: ResultComplete, Value: value}
}

// BeginDialog pushes a child dialog. Its completion value is stored under the
// current step name of the caller, which then advances.
func BeginDialog(dialogID string) StepResult {
	return StepResult{Kind: ResultBeginDialog, DialogID: dialogID}
}
