package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/turnstile/pkg/domain"
	"golang.org/x/term"
)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader    *bufio.Reader
	Writer    io.Writer
	Formatter ReplyFormatter

	// interactive shows a "> " prompt before reading.
	interactive bool

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithFormatter configures how replies are printed.
func WithFormatter(f ReplyFormatter) TextHandlerOption {
	return func(h *TextHandler) {
		h.Formatter = f
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader:      bufio.NewReader(r),
		Writer:      w,
		Formatter:   PlainFormatter,
		interactive: isTerminal(r),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can honor context cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')

		// If we got text (even with EOF), send it
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}

		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

func (h *TextHandler) Output(ctx context.Context, replies []domain.Reply) error {
	out := h.Formatter(replies)
	if out == "" {
		return nil
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimRight(out, "\n"))
	return err
}

func (h *TextHandler) Input(ctx context.Context) (string, error) {
	// Ensure the pump is running
	h.initPump()

	for {
		if h.interactive {
			fmt.Fprint(h.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}

			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "[System] %s\n", msg)
	return err
}

// PlainFormatter prints message text and suggested actions, one reply per line.
// Typing indicators and traces are skipped.
func PlainFormatter(replies []domain.Reply) string {
	var sb strings.Builder
	for _, r := range replies {
		if r.Type != domain.ReplyMessage {
			continue
		}
		if r.Text != "" {
			sb.WriteString(r.Text)
			sb.WriteString("\n")
		}
		for _, a := range r.Attachments {
			sb.WriteString("  * " + a.Title + "\n")
		}
		if len(r.SuggestedActions) > 0 {
			titles := make([]string, len(r.SuggestedActions))
			for i, a := range r.SuggestedActions {
				titles[i] = "[" + a.Title + "]"
			}
			sb.WriteString(strings.Join(titles, " "))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
