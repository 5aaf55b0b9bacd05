package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/turnstile/internal/runtime"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/dsl"
	"github.com/aretw0/turnstile/pkg/registry"
	"github.com/aretw0/turnstile/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = domain.Identity{ChannelID: "test", ConversationID: "conv", UserID: "alice"}

func orderRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	b := dsl.New("order")
	b.Ask("name", domain.InputText, dsl.Text("What is your name?"))
	b.Ask("choice", domain.InputText, dsl.Text("Which topping?")).
		Validate(validate.RejectContaining("pineapple")).
		Retry("No pineapple.")
	b.Do("finish", func(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
		name, _ := sc.Result("name")
		choice, _ := sc.Result("choice")
		sc.Send(domain.Message(name.(string) + " ordered " + choice.(string)))
		return domain.Complete(choice), nil
	})

	reg := registry.New()
	require.NoError(t, reg.Register(b.MustBuild()))
	return reg
}

func texts(replies []domain.Reply) []string {
	out := make([]string, len(replies))
	for i, r := range replies {
		out[i] = r.Text
	}
	return out
}

func TestRuntime_Waterfall(t *testing.T) {
	ctx := context.Background()
	rt := runtime.New(orderRegistry(t))
	stack := domain.NewStack()

	out, err := rt.Begin(ctx, stack, "order", alice, domain.NewMessage("hi"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuspended, out.Result)
	assert.Equal(t, []string{"What is your name?"}, texts(out.Replies))
	assert.Equal(t, domain.FrameAwaitingInput, stack.Active().Status(3))

	out, err = rt.Continue(ctx, stack, alice, domain.NewMessage("Alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Which topping?"}, texts(out.Replies))
	assert.Equal(t, 1, stack.Active().StepIndex)
	assert.Equal(t, "Alice", stack.Active().Results["name"])

	before := stack.Clone()
	out, err = rt.Continue(ctx, stack, alice, domain.NewMessage("Pineapple"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeRetried, out.Result)
	assert.Equal(t, []string{"No pineapple.", "Which topping?"}, texts(out.Replies))
	assert.Equal(t, before, stack, "rejected input must leave the stack unchanged")

	out, err = rt.Continue(ctx, stack, alice, domain.NewMessage("Cheese"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, out.Result)
	assert.Equal(t, []string{"Alice ordered Cheese"}, texts(out.Replies))
	assert.Equal(t, "Cheese", out.Value)
	assert.True(t, stack.Empty())
}

func TestRuntime_ChildDialogReturnsValue(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(
		dsl.New("size").
			Ask("inches", domain.InputNumber, dsl.Text("How big?")).Then().
			Do("done", func(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
				v, _ := sc.Result("inches")
				return domain.Complete(v), nil
			}).
			MustBuild(),
		dsl.New("parent").
			Call("size", "size").
			Do("report", func(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
				v, _ := sc.Result("size")
				sc.Send(domain.Message("got size"))
				return domain.Complete(v), nil
			}).
			MustBuild(),
	)

	var begun, ended []string
	hooks := domain.LifecycleHooks{
		OnDialogBegin: func(_ context.Context, e *domain.DialogEvent) { begun = append(begun, e.DialogID) },
		OnDialogEnd:   func(_ context.Context, e *domain.DialogEvent) { ended = append(ended, e.DialogID) },
	}
	rt := runtime.New(reg, runtime.WithLifecycleHooks(hooks))
	ctx := context.Background()
	stack := domain.NewStack()

	_, err := rt.Begin(ctx, stack, "parent", alice, domain.NewMessage("go"))
	require.NoError(t, err)
	require.Equal(t, 2, stack.Depth())
	assert.Equal(t, "size", stack.Active().DialogID)

	out, err := rt.Continue(ctx, stack, alice, domain.NewMessage("16"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCompleted, out.Result)
	assert.Equal(t, 16.0, out.Value)
	assert.Equal(t, []string{"parent", "size"}, begun)
	assert.Equal(t, []string{"size", "parent"}, ended)
}

func TestRuntime_FallingOffTheEndReturnsResults(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(dsl.New("d").Ask("q", domain.InputConfirm, dsl.Text("Sure?")).Then().MustBuild())
	rt := runtime.New(reg)
	stack := domain.NewStack()

	_, err := rt.Begin(context.Background(), stack, "d", alice, domain.NewMessage(""))
	require.NoError(t, err)
	out, err := rt.Continue(context.Background(), stack, alice, domain.NewMessage("yes please"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"q": true}, out.Value)
}

func TestRuntime_ConditionalSuspendFromPlainStep(t *testing.T) {
	b := dsl.New("toppings")
	b.Prompt("extra", domain.InputText)
	b.Do("maybe", func(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
		if sc.Activity().Text == "skip" {
			return domain.Advance(), nil
		}
		return domain.Suspend("extra", domain.PromptOptions{Text: "Which extra?"}), nil
	})
	b.Say("bye", "Bye")
	reg := registry.New().MustRegister(b.MustBuild())
	rt := runtime.New(reg)

	skipped := domain.NewStack()
	out, err := rt.Begin(context.Background(), skipped, "toppings", alice, domain.NewMessage("skip"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bye"}, texts(out.Replies))

	asked := domain.NewStack()
	out, err = rt.Begin(context.Background(), asked, "toppings", alice, domain.NewMessage("go"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Which extra?"}, texts(out.Replies))

	_, err = rt.Continue(context.Background(), asked, alice, domain.NewMessage("Olives"))
	require.NoError(t, err)
	assert.True(t, asked.Empty())
}

func TestRuntime_StepErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name   string
		action domain.Action
		want   error
	}{
		{
			name: "returned error",
			action: func(context.Context, domain.StepContext) (domain.StepResult, error) {
				return domain.StepResult{}, boom
			},
			want: boom,
		},
		{
			name: "unknown child dialog",
			action: func(context.Context, domain.StepContext) (domain.StepResult, error) {
				return domain.BeginDialog("ghost"), nil
			},
			want: domain.ErrDialogNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := registry.New().MustRegister(dsl.New("d").Do("s", tt.action).MustBuild())
			_, err := runtime.New(reg).Begin(context.Background(), domain.NewStack(), "d", alice, domain.NewMessage(""))

			var stepErr *domain.StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, "s", stepErr.Step)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("panic", func(t *testing.T) {
		reg := registry.New().MustRegister(dsl.New("d").Do("s", func(context.Context, domain.StepContext) (domain.StepResult, error) {
			panic("kaboom")
		}).MustBuild())
		_, err := runtime.New(reg).Begin(context.Background(), domain.NewStack(), "d", alice, domain.NewMessage(""))
		assert.ErrorContains(t, err, "kaboom")
	})
}

func TestRuntime_StepBudget(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(dsl.New("loop").Call("again", "loop").MustBuild())

	_, err := runtime.New(reg, runtime.WithMaxSteps(10)).
		Begin(context.Background(), domain.NewStack(), "loop", alice, domain.NewMessage(""))
	assert.ErrorIs(t, err, domain.ErrStepBudgetExceeded)
}

func TestRuntime_StaleState(t *testing.T) {
	reg := orderRegistry(t)
	rt := runtime.New(reg)

	pending := func(dialogID string, index int, prompt string) *domain.DialogStack {
		s := domain.NewStack()
		f := domain.NewFrame(dialogID)
		f.StepIndex = index
		f.Pending = &domain.PendingPrompt{PromptID: prompt}
		s.Push(f)
		return s
	}
	nested := func(parentID string, parentIndex int) *domain.DialogStack {
		s := domain.NewStack()
		parent := domain.NewFrame(parentID)
		parent.StepIndex = parentIndex
		s.Push(parent)
		child := domain.NewFrame("order")
		child.Pending = &domain.PendingPrompt{PromptID: "name"}
		s.Push(child)
		return s
	}

	tests := []struct {
		name  string
		stack *domain.DialogStack
	}{
		{"parent dialog removed", nested("removed", 0)},
		{"parent index past last step", nested("order", 3)},
		{"parent index negative", nested("order", -1)},
		{"unknown dialog", pending("removed", 0, "name")},
		{"index out of range", pending("order", 7, "name")},
		{"unknown prompt", pending("order", 0, "gone")},
		{"prompt moved", pending("order", 0, "choice")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.Continue(context.Background(), tt.stack, alice, domain.NewMessage("x"))
			assert.ErrorIs(t, err, domain.ErrStaleState)
		})
	}
}

func TestRuntime_PromptHooks(t *testing.T) {
	var accepted, rejected int
	hooks := domain.LifecycleHooks{
		OnPromptAccepted: func(context.Context, *domain.PromptEvent) { accepted++ },
		OnPromptRejected: func(context.Context, *domain.PromptEvent) { rejected++ },
	}
	rt := runtime.New(orderRegistry(t), runtime.WithLifecycleHooks(hooks), runtime.WithRetryMessage("unused"))
	stack := domain.NewStack()
	ctx := context.Background()

	_, _ = rt.Begin(ctx, stack, "order", alice, domain.NewMessage(""))
	_, _ = rt.Continue(ctx, stack, alice, domain.NewMessage("   "))
	_, _ = rt.Continue(ctx, stack, alice, domain.NewMessage("Alice"))
	_, _ = rt.Continue(ctx, stack, alice, domain.NewMessage("pineapple"))

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 2, rejected)
}

func TestRuntime_DefaultRetryMessage(t *testing.T) {
	reg := registry.New().MustRegister(
		dsl.New("n").Ask("age", domain.InputNumber, dsl.Text("Age?")).Then().MustBuild(),
	)
	rt := runtime.New(reg, runtime.WithRetryMessage("Numbers only."))
	stack := domain.NewStack()

	_, err := rt.Begin(context.Background(), stack, "n", alice, domain.NewMessage(""))
	require.NoError(t, err)
	out, err := rt.Continue(context.Background(), stack, alice, domain.NewMessage("old"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Numbers only.", "Age?"}, texts(out.Replies))
}

func TestRuntime_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runtime.New(orderRegistry(t)).Begin(ctx, domain.NewStack(), "order", alice, domain.NewMessage(""))
	assert.ErrorIs(t, err, context.Canceled)
}
