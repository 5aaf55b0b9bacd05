package runner

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/turnstile/pkg/domain"
)

func TestTextHandler_Output(t *testing.T) {
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader(""), outBuf)

	replies := []domain.Reply{
		domain.Typing(),
		domain.Message("Which pizza?"),
		{Type: domain.ReplyMessage, SuggestedActions: []domain.CardAction{domain.IMBack("Cheese"), domain.IMBack("Veggie")}},
		domain.Trace("debug", "hidden"),
	}

	if err := handler.Output(context.Background(), replies); err != nil {
		t.Fatalf("Output failed: %v", err)
	}

	want := "Which pizza?\n[Cheese] [Veggie]\n"
	if outBuf.String() != want {
		t.Errorf("Expected %q, got %q", want, outBuf.String())
	}
}

func TestTextHandler_CustomFormatter(t *testing.T) {
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader(""), outBuf, WithFormatter(func(r []domain.Reply) string {
		return "Rendered: " + r[0].Text
	}))

	if err := handler.Output(context.Background(), []domain.Reply{domain.Message("Hello World")}); err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if !strings.Contains(outBuf.String(), "Rendered: Hello World") {
		t.Errorf("Expected rendered output, got '%s'", outBuf.String())
	}
}

func TestTextHandler_Input(t *testing.T) {
	outBuf := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader("  my user input \nBell\x07\n"), outBuf)

	val, err := handler.Input(context.Background())
	if err != nil {
		t.Fatalf("Input failed: %v", err)
	}
	if val != "my user input" {
		t.Errorf("Expected 'my user input', got '%s'", val)
	}

	val, _ = handler.Input(context.Background())
	if val != "Bell" {
		t.Errorf("Expected control characters stripped, got %q", val)
	}

	if _, err := handler.Input(context.Background()); err != io.EOF {
		t.Errorf("Expected EOF, got %v", err)
	}

	// Not a terminal: no prompt is written
	if outBuf.Len() != 0 {
		t.Errorf("Expected no prompt, got '%s'", outBuf.String())
	}
}

func TestTextHandler_InputCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	handler := NewTextHandler(pr, &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := handler.Input(ctx); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
