package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/turnstile/pkg/domain"
)

func TestJSONHandler_Output(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := NewJSONHandler(strings.NewReader(""), buf)

	if err := handler.Output(context.Background(), []domain.Reply{domain.Message("Hello Intent")}); err != nil {
		t.Fatalf("Output failed: %v", err)
	}

	// Should be a single line of JSON
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}

	var replies []domain.Reply
	if err := json.Unmarshal([]byte(lines[0]), &replies); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if len(replies) != 1 || replies[0].Text != "Hello Intent" {
		t.Errorf("Unexpected replies: %+v", replies)
	}
}

func TestJSONHandler_EmptyOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := NewJSONHandler(strings.NewReader(""), buf)

	if err := handler.Output(context.Background(), nil); err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("Expected empty array, got %q", buf.String())
	}
}

func TestJSONHandler_Input(t *testing.T) {
	handler := NewJSONHandler(strings.NewReader("\"quoted value\"\nraw value\nlast"), &bytes.Buffer{})

	for _, want := range []string{"quoted value", "raw value", "last"} {
		got, err := handler.Input(context.Background())
		if err != nil {
			t.Fatalf("Input failed: %v", err)
		}
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}

func TestJSONHandler_SystemOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := NewJSONHandler(strings.NewReader(""), buf)

	if err := handler.SystemOutput(context.Background(), "Conversation reset."); err != nil {
		t.Fatalf("SystemOutput failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"type":"system"`) {
		t.Errorf("Expected system message, got %q", buf.String())
	}
}
