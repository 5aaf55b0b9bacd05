package runner

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/turnstile"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/dsl"
	"github.com/aretw0/turnstile/pkg/registry"
)

func newEngine(t *testing.T) *turnstile.Engine {
	t.Helper()
	b := dsl.New("greet")
	b.Say("hello", "Welcome to Turnstile")
	b.Ask("name", domain.InputText, dsl.Text("What is your name?"))
	b.Do("bye", func(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
		name, _ := sc.Result("name")
		sc.Send(domain.Message("Goodbye " + name.(string)))
		return domain.Complete(nil), nil
	})

	engine, err := turnstile.New(turnstile.WithRegistry(registry.New().MustRegister(b.MustBuild())))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func run(t *testing.T, r *Runner, engine *turnstile.Engine) {
	t.Helper()
	done := make(chan error)
	go func() {
		done <- r.Run(context.Background(), engine)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Runner failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Runner timed out")
	}
}

func TestRunner_Run_BasicFlow(t *testing.T) {
	engine := newEngine(t)
	in := bytes.NewBufferString("hi\nAda\n")
	out := &bytes.Buffer{}

	r := NewRunner(WithInputHandler(NewTextHandler(in, out)))
	run(t, r, engine)

	output := out.String()
	for _, want := range []string{"Welcome to Turnstile", "What is your name?", "Goodbye Ada"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got: %s", want, output)
		}
	}
}

func TestRunner_Run_GreetingAndCommands(t *testing.T) {
	engine := newEngine(t)
	in := bytes.NewBufferString("/reset\nexit\nnever read\n")
	out := &bytes.Buffer{}

	r := NewRunner(WithInputHandler(NewTextHandler(in, out)), WithGreeting(true))
	run(t, r, engine)

	output := out.String()
	if !strings.Contains(output, "What is your name?") {
		t.Errorf("Expected greeting to start the dialog, got: %s", output)
	}
	if !strings.Contains(output, "[System] Conversation reset.") {
		t.Errorf("Expected reset notice, got: %s", output)
	}

	if _, err := engine.Inspect(context.Background(), DefaultIdentity); err == nil {
		t.Error("Expected no stored stack after reset")
	}
}

func TestRunner_Run_Headless(t *testing.T) {
	engine := newEngine(t)
	in := bytes.NewBufferString("\"hello\"\n\"/exit\"\n")
	out := &bytes.Buffer{}

	r := NewRunner(WithInputHandler(NewJSONHandler(in, out)))
	run(t, r, engine)

	output := out.String()
	if !strings.Contains(output, `"text":"Welcome to Turnstile"`) {
		t.Errorf("Expected welcome reply in JSON output, got: %s", output)
	}
}

func TestRunner_Run_InvalidIdentity(t *testing.T) {
	r := NewRunner(WithIdentity(domain.Identity{ChannelID: "console"}), WithInputHandler(NewTextHandler(strings.NewReader(""), &bytes.Buffer{})))
	if err := r.Run(context.Background(), newEngine(t)); err == nil {
		t.Error("Expected invalid identity error")
	}
}
