package domain

// FrameStatus is the execution state of a frame relative to its dialog.
type FrameStatus string

const (
	FrameAwaitingInput FrameStatus = "awaiting_input"
	FrameAdvancing     FrameStatus = "advancing"
	FrameCompleted     FrameStatus = "completed"
)

// PendingPrompt snapshots the prompt a frame is suspended on.
type PendingPrompt struct {
	PromptID string        `json:"prompt_id"`
	Options  PromptOptions `json:"options"`
}

// Frame is one active dialog invocation.
type Frame struct {
	DialogID string `json:"dialog_id"`

	// StepIndex points into the dialog's steps. len(steps) means completed.
	StepIndex int `json:"step_index"`

	// Results holds recognized answers and values set by steps, by step name.
	Results map[string]any `json:"results"`

	Pending *PendingPrompt `json:"pending,omitempty"`
}

// NewFrame starts a dialog at its first step.
func NewFrame(dialogID string) Frame {
	return Frame{DialogID: dialogID, Results: make(map[string]any)}
}

// Status derives the frame state given the number of steps in its dialog.
func (f *Frame) Status(stepCount int) FrameStatus {
	switch {
	case f.StepIndex >= stepCount:
		return FrameCompleted
	case f.Pending != nil:
		return FrameAwaitingInput
	default:
		return FrameAdvancing
	}
}

// DialogStack is the persisted, per-identity stack of frames (bottom to top).
type DialogStack struct {
	Frames []Frame `json:"frames"`

	// Version is the optimistic concurrency token checked by StateStore.Save.
	// Zero means the stack was never saved.
	Version int64 `json:"version"`
}

// NewStack returns an empty stack.
func NewStack() *DialogStack {
	return &DialogStack{Frames: []Frame{}}
}

// Empty reports whether no dialog is active.
func (s *DialogStack) Empty() bool {
	return len(s.Frames) == 0
}

// Depth returns the number of frames.
func (s *DialogStack) Depth() int {
	return len(s.Frames)
}

// Active returns the top frame, or nil when the stack is empty.
// The pointer is invalidated by Push and Pop.
func (s *DialogStack) Active() *Frame {
	if len(s.Frames) == 0 {
		return nil
	}
	return &s.Frames[len(s.Frames)-1]
}

// Push makes f the active frame.
func (s *DialogStack) Push(f Frame) {
	s.Frames = append(s.Frames, f)
}

// Pop removes and returns the active frame.
func (s *DialogStack) Pop() (Frame, bool) {
	if len(s.Frames) == 0 {
		return Frame{}, false
	}
	f := s.Frames[len(s.Frames)-1]
	s.Frames = s.Frames[:len(s.Frames)-1]
	return f, true
}

// Clear drops every frame but keeps the version.
func (s *DialogStack) Clear() {
	s.Frames = []Frame{}
}

// Clone returns a deep copy, so the copy can be advanced without touching the
// value it came from.
func (s *DialogStack) Clone() *DialogStack {
	if s == nil {
		return NewStack()
	}
	out := &DialogStack{
		Frames:  make([]Frame, len(s.Frames)),
		Version: s.Version,
	}
	for i, f := range s.Frames {
		out.Frames[i] = f.clone()
	}
	return out
}

func (f Frame) clone() Frame {
	out := f
	out.Results = CopyValues(f.Results)
	if f.Pending != nil {
		p := *f.Pending
		p.Options = p.Options.clone()
		out.Pending = &p
	}
	return out
}

func (o PromptOptions) clone() PromptOptions {
	out := o
	if o.Choices != nil {
		out.Choices = append([]string(nil), o.Choices...)
	}
	if o.Attachments != nil {
		out.Attachments = make([]Attachment, len(o.Attachments))
		for i, a := range o.Attachments {
			a.Images = append([]string(nil), a.Images...)
			a.Buttons = append([]CardAction(nil), a.Buttons...)
			out.Attachments[i] = a
		}
	}
	return out
}

// CopyValues deep copies nested maps and slices of a result map.
func CopyValues(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CopyValues(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
