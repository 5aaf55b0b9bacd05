package dsl

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/turnstile/pkg/domain"
)

type fakeContext struct {
	sent []domain.Reply
}

func (f *fakeContext) Identity() domain.Identity    { return domain.Identity{} }
func (f *fakeContext) Activity() domain.Activity    { return domain.Activity{} }
func (f *fakeContext) DialogID() string             { return "test" }
func (f *fakeContext) Result(string) (any, bool)    { return nil, false }
func (f *fakeContext) Results() map[string]any      { return map[string]any{} }
func (f *fakeContext) Set(string, any)              {}
func (f *fakeContext) Send(replies ...domain.Reply) { f.sent = append(f.sent, replies...) }

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New("order")

	b.Say("welcome", "Hello, DSL!")
	b.Ask("name", domain.InputText, Text("What is your name?"))
	b.Ask("choice", domain.InputChoice, Choices("Pick one", domain.StyleList, "Cheese", "Veggie")).
		Validate(func(v any) bool { return v != "Veggie" }).
		Retry("Not that one.")
	b.Call("extras", "extras")

	d, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if len(d.Steps) != 4 {
		t.Fatalf("Expected 4 steps, got %d", len(d.Steps))
	}
	if d.Steps[0].Kind != domain.StepPlain {
		t.Errorf("Expected welcome to be plain, got %s", d.Steps[0].Kind)
	}
	if d.Steps[1].Kind != domain.StepPrompt || d.Steps[1].PromptID != "name" {
		t.Errorf("Expected name prompt step, got %+v", d.Steps[1])
	}
	if d.Steps[3].Calls != "extras" {
		t.Errorf("Expected Calls='extras', got '%s'", d.Steps[3].Calls)
	}

	p, ok := d.Prompt("choice")
	if !ok {
		t.Fatal("Expected prompt 'choice' to be declared")
	}
	if p.Input != domain.InputChoice {
		t.Errorf("Expected choice input, got %s", p.Input)
	}
	if p.RetryMessage != "Not that one." {
		t.Errorf("Expected retry message, got '%s'", p.RetryMessage)
	}
	if p.Validate("Veggie") {
		t.Error("Expected validator to reject 'Veggie'")
	}

	opts := d.Steps[2].Render(&fakeContext{})
	if len(opts.Choices) != 2 || opts.Style != domain.StyleList {
		t.Errorf("Unexpected render options: %+v", opts)
	}
}

func TestBuilder_StepActions(t *testing.T) {
	d := New("greet").
		Say("hello", "Hi!").
		Call("child", "other").
		MustBuild()

	sc := &fakeContext{}
	res, err := d.Steps[0].Action(context.Background(), sc)
	if err != nil {
		t.Fatalf("Say action failed: %v", err)
	}
	if res.Kind != domain.ResultAdvance {
		t.Errorf("Expected advance, got %s", res.Kind)
	}
	if len(sc.sent) != 1 || sc.sent[0].Text != "Hi!" {
		t.Errorf("Expected one 'Hi!' reply, got %+v", sc.sent)
	}

	res, _ = d.Steps[1].Action(context.Background(), sc)
	if res.Kind != domain.ResultBeginDialog || res.DialogID != "other" {
		t.Errorf("Expected begin dialog 'other', got %+v", res)
	}
}

func TestBuilder_SharedPrompt(t *testing.T) {
	b := New("shared")
	b.Prompt("yesno", domain.InputConfirm).Retry("Yes or no?")
	b.AskWith("first", "yesno", Text("Continue?"))
	b.AskWith("second", "yesno", Text("Really?"))

	d, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if len(d.Prompts) != 1 {
		t.Errorf("Expected 1 shared prompt, got %d", len(d.Prompts))
	}
	if b.Prompt("yesno", domain.InputText).prompt.Input != domain.InputConfirm {
		t.Error("Redeclaring a prompt must return the existing builder")
	}
}

func TestBuilder_Invalid(t *testing.T) {
	if _, err := New("empty").Build(); err == nil {
		t.Error("Expected error for a dialog without steps")
	}

	b := New("dangling").AskWith("q", "missing", Text("?"))
	if _, err := b.Build(); err == nil {
		t.Error("Expected error for a step referencing an unknown prompt")
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected MustBuild to panic")
		}
	}()
	New("dup").Say("a", "x").Say("a", "y").MustBuild()
}

func TestBuilder_CallWhen(t *testing.T) {
	skip := false
	d := New("main").
		CallWhen("maybe", "other", func(domain.StepContext) bool { return !skip }).
		MustBuild()

	if d.Steps[0].Calls != "other" {
		t.Errorf("Expected Calls='other', got '%s'", d.Steps[0].Calls)
	}

	res, _ := d.Steps[0].Action(context.Background(), &fakeContext{})
	if res.Kind != domain.ResultBeginDialog {
		t.Errorf("Expected begin dialog, got %s", res.Kind)
	}

	skip = true
	res, _ = d.Steps[0].Action(context.Background(), &fakeContext{})
	if res.Kind != domain.ResultAdvance {
		t.Errorf("Expected advance when the condition is false, got %s", res.Kind)
	}
}

func TestBuilder_CallIf(t *testing.T) {
	d := New("main").
		CallIf("maybe", "other", func(domain.StepContext) (bool, error) { return false, errors.New("bad condition") }).
		MustBuild()

	if d.Steps[0].Calls != "other" {
		t.Errorf("Expected Calls='other', got '%s'", d.Steps[0].Calls)
	}

	_, err := d.Steps[0].Action(context.Background(), &fakeContext{})
	if err == nil || err.Error() != "bad condition" {
		t.Errorf("Expected the condition error, got %v", err)
	}
}
