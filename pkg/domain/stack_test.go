package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialogStack_PushPop(t *testing.T) {
	s := domain.NewStack()
	assert.True(t, s.Empty())
	assert.Nil(t, s.Active())

	s.Push(domain.NewFrame("root"))
	s.Push(domain.NewFrame("child"))
	assert.Equal(t, 2, s.Depth())
	assert.Equal(t, "child", s.Active().DialogID)

	f, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, "child", f.DialogID)
	assert.Equal(t, "root", s.Active().DialogID)

	_, _ = s.Pop()
	_, ok = s.Pop()
	assert.False(t, ok)
}

func TestDialogStack_CloneIsDeep(t *testing.T) {
	s := domain.NewStack()
	s.Version = 7
	f := domain.NewFrame("root")
	f.Results["name"] = "Alice"
	f.Results["order"] = map[string]any{"size": "12 inch"}
	f.Pending = &domain.PendingPrompt{
		PromptID: "choice",
		Options:  domain.PromptOptions{Text: "Pick one", Choices: []string{"a", "b"}},
	}
	s.Push(f)

	c := s.Clone()
	c.Active().Results["name"] = "Bob"
	c.Active().Results["order"].(map[string]any)["size"] = "20 inch"
	c.Active().Pending.Options.Choices[0] = "z"
	c.Active().StepIndex = 3

	assert.Equal(t, int64(7), c.Version)
	assert.Equal(t, "Alice", s.Active().Results["name"])
	assert.Equal(t, "12 inch", s.Active().Results["order"].(map[string]any)["size"])
	assert.Equal(t, "a", s.Active().Pending.Options.Choices[0])
	assert.Equal(t, 0, s.Active().StepIndex)
}

func TestDialogStack_CloneNil(t *testing.T) {
	var s *domain.DialogStack
	c := s.Clone()
	require.NotNil(t, c)
	assert.True(t, c.Empty())
}

func TestFrame_Status(t *testing.T) {
	f := domain.NewFrame("root")
	assert.Equal(t, domain.FrameAdvancing, f.Status(3))

	f.Pending = &domain.PendingPrompt{PromptID: "name"}
	assert.Equal(t, domain.FrameAwaitingInput, f.Status(3))

	f.Pending = nil
	f.StepIndex = 3
	assert.Equal(t, domain.FrameCompleted, f.Status(3))
}

func TestDialogStack_JSONRoundTrip(t *testing.T) {
	s := domain.NewStack()
	s.Version = 2
	f := domain.NewFrame("pizza")
	f.StepIndex = 1
	f.Results["name"] = "Alice"
	f.Pending = &domain.PendingPrompt{
		PromptID: "choice",
		Options: domain.PromptOptions{
			Text:    "Pick one",
			Choices: []string{"Cheese", "Veggie"},
			Style:   domain.StyleSuggestedAction,
		},
	}
	s.Push(f)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var loaded domain.DialogStack
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, s, &loaded)
}
