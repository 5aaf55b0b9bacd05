package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepContext struct {
	activity domain.Activity
	results  map[string]any
	sent     []domain.Reply
}

func newStepContext(text string, results map[string]any) *stepContext {
	if results == nil {
		results = map[string]any{}
	}
	return &stepContext{activity: domain.Activity{Kind: domain.ActivityMessage, Text: text}, results: results}
}

func (s *stepContext) Identity() domain.Identity {
	return domain.Identity{ChannelID: "test", ConversationID: "c1", UserID: "u1"}
}
func (s *stepContext) Activity() domain.Activity { return s.activity }
func (s *stepContext) DialogID() string          { return "orders" }
func (s *stepContext) Result(name string) (any, bool) {
	v, ok := s.results[name]
	return v, ok
}
func (s *stepContext) Results() map[string]any {
	out := make(map[string]any, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}
func (s *stepContext) Set(name string, value any)   { s.results[name] = value }
func (s *stepContext) Send(replies ...domain.Reply) { s.sent = append(s.sent, replies...) }

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process actions are exercised through sh")
	}
}

func TestRunner_Action(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner()
	runner.Register(Config{Name: "greet", Command: "sh", Args: []string{"-c", `echo "hello $TURNSTILE_RESULT_NAME"`}, Reply: true})
	runner.Register(Config{Name: "quote", Command: "sh", Args: []string{"-c", `echo '{"total": 12.5, "size": "'"$TURNSTILE_RESULT_PIZZA_SIZE"'"}'`}})
	runner.Register(Config{Name: "fail", Command: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})

	t.Run("Stores And Replies Text Output", func(t *testing.T) {
		sc := newStepContext("", map[string]any{"name": "Ada"})
		res, err := runner.Action("greet")(context.Background(), sc)
		require.NoError(t, err)
		assert.Equal(t, domain.ResultAdvance, res.Kind)
		assert.Equal(t, "hello Ada", sc.results["greet"])
		require.Len(t, sc.sent, 1)
		assert.Equal(t, "hello Ada", sc.sent[0].Text)
	})

	t.Run("Decodes JSON Output", func(t *testing.T) {
		sc := newStepContext("", map[string]any{"pizza-size": "Large"})
		_, err := runner.Action("quote")(context.Background(), sc)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"total": 12.5, "size": "Large"}, sc.results["quote"])
		assert.Empty(t, sc.sent)
	})

	t.Run("Failing Command Fails The Step", func(t *testing.T) {
		_, err := runner.Action("fail")(context.Background(), newStepContext("", nil))
		assert.ErrorContains(t, err, "execution failed")
	})

	t.Run("Unregistered Action", func(t *testing.T) {
		_, err := runner.Action("rm")(context.Background(), newStepContext("", nil))
		assert.ErrorContains(t, err, "not registered")
	})
}

func TestRunner_Environment(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner()
	runner.Register(Config{
		Name:        "env",
		Command:     "sh",
		Args:        []string{"-c", `echo "$GREETING|$TURNSTILE_TEXT|$TURNSTILE_DIALOG_ID|$TURNSTILE_IDENTITY|$TURNSTILE_RESULT_TOPPINGS"`},
		Environment: map[string]string{"GREETING": "hi"},
	})

	sc := newStepContext("one more", map[string]any{"toppings": []string{"cheese"}, "count": 2})
	_, err := runner.Action("env")(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, `hi|one more|orders|test/c1/u1|["cheese"]`, sc.results["env"])
}

func TestRunner_Timeout(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner()
	runner.Register(Config{Name: "slow", Command: "sleep", Args: []string{"5"}, Timeout: 50 * time.Millisecond})

	_, err := runner.Action("slow")(context.Background(), newStepContext("", nil))
	assert.Error(t, err)
}

func TestRunner_RegisterAll(t *testing.T) {
	runner := NewRunner(WithActions(map[string]Config{
		"b": {Name: "b", Command: "true"},
		"a": {Name: "a", Command: "true"},
	}))
	assert.Equal(t, []string{"a", "b"}, runner.Names())

	reg := registry.New()
	runner.RegisterAll(reg)
	_, ok := reg.Action("a")
	assert.True(t, ok)
	_, ok = reg.Action("b")
	assert.True(t, ok)
}

func TestLoadActions(t *testing.T) {
	dir := t.TempDir()

	t.Run("YAML", func(t *testing.T) {
		path := filepath.Join(dir, "actions.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
actions:
  - name: quote
    command: ./quote.sh
    args: ["--json"]
    env:
      CURRENCY: EUR
    reply: true
    timeout: 2s
`), 0o644))

		actions, err := LoadActions(path)
		require.NoError(t, err)
		require.Contains(t, actions, "quote")
		a := actions["quote"]
		assert.Equal(t, "./quote.sh", a.Command)
		assert.Equal(t, []string{"--json"}, a.Args)
		assert.Equal(t, "EUR", a.Environment["CURRENCY"])
		assert.True(t, a.Reply)
		assert.Equal(t, "2s", a.Timeout.String())
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(dir, "actions.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"actions":[{"name":"ping","command":"echo"}]}`), 0o644))

		actions, err := LoadActions(path)
		require.NoError(t, err)
		assert.Equal(t, "echo", actions["ping"].Command)
	})

	t.Run("Missing Command", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("actions:\n  - name: nope\n"), 0o644))

		_, err := LoadActions(path)
		assert.ErrorContains(t, err, "command is required")
	})

	t.Run("Missing File", func(t *testing.T) {
		actions, err := LoadActions(filepath.Join(dir, "absent.yaml"))
		require.NoError(t, err)
		assert.Empty(t, actions)
	})
}
