// Package process runs allow-listed local commands as dialog actions.
// Frame results reach the command as TURNSTILE_RESULT_<KEY> environment
// variables, never as arguments.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"github.com/aretw0/turnstile/internal/logging"
	"github.com/aretw0/turnstile/pkg/domain"
)

// EnvPrefix namespaces the variables passed to a command.
const EnvPrefix = "TURNSTILE_"

var envKeyPattern = regexp.MustCompile(`[^A-Z0-9_]`)

// ActionRegistrar receives the named actions.
// *registry.Registry satisfies it.
type ActionRegistrar interface {
	RegisterAction(name string, a domain.Action)
}

// Runner executes registered commands.
type Runner struct {
	actions map[string]Config
	baseDir string
	logger  *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithActions populates the allow-list from a loaded config.
func WithActions(actions map[string]Config) RunnerOption {
	return func(r *Runner) {
		for _, a := range actions {
			r.Register(a)
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithLogger configures the runner logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a new process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		actions: make(map[string]Config),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(cfg Config) {
	r.actions[cfg.Name] = cfg
}

// Names returns the registered action names, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.actions))
	for n := range r.actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RegisterAll exposes every command as a named action.
func (r *Runner) RegisterAll(reg ActionRegistrar) {
	for _, name := range r.Names() {
		reg.RegisterAction(name, r.Action(name))
	}
}

// Action returns a dialog action running the named command. The output is
// stored in the frame under the action name; JSON output is decoded first.
// A failing command fails the step.
func (r *Runner) Action(name string) domain.Action {
	return func(ctx context.Context, sc domain.StepContext) (domain.StepResult, error) {
		cfg, ok := r.actions[name]
		if !ok {
			return domain.StepResult{}, fmt.Errorf("process action not registered: %s", name)
		}

		out, err := r.Execute(ctx, cfg, sc)
		if err != nil {
			return domain.StepResult{}, err
		}

		sc.Set(name, out)
		if s, ok := out.(string); ok && cfg.Reply && s != "" {
			sc.Send(domain.Message(s))
		}
		return domain.Advance(), nil
	}
}

// Execute runs one command with the step context exported as environment.
func (r *Runner) Execute(ctx context.Context, cfg Config, sc domain.StepContext) (any, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = r.baseDir
	cmd.Env = append(cmd.Environ(), environment(cfg, sc)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		r.logger.Warn("process action failed", "action", cfg.Name, "err", err, "stderr", strings.TrimSpace(stderr.String()))
		return nil, fmt.Errorf("action %s: execution failed: %w", cfg.Name, err)
	}
	r.logger.Debug("process action finished", "action", cfg.Name)

	return decodeOutput(stdout.String()), nil
}

func environment(cfg Config, sc domain.StepContext) []string {
	env := make([]string, 0, len(cfg.Environment)+8)
	for k, v := range cfg.Environment {
		env = append(env, k+"="+v)
	}

	id := sc.Identity()
	env = append(env,
		EnvPrefix+"DIALOG_ID="+sc.DialogID(),
		EnvPrefix+"IDENTITY="+id.Key(),
		EnvPrefix+"TEXT="+sc.Activity().Text,
	)

	for k, v := range sc.Results() {
		env = append(env, EnvPrefix+"RESULT_"+envKey(k)+"="+envValue(v))
	}
	return env
}

func envKey(k string) string {
	return envKeyPattern.ReplaceAllString(strings.ToUpper(k), "_")
}

// envValue formats primitives as text and everything else as JSON.
func envValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}

func decodeOutput(output string) any {
	trimmed := strings.TrimSpace(output)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return trimmed
}
