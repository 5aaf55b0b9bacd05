package yaml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/template"

	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/dsl"
	"github.com/aretw0/turnstile/pkg/schema"
	"github.com/aretw0/turnstile/pkg/validate"
	"github.com/mitchellh/mapstructure"
	yamlv3 "gopkg.in/yaml.v3"
)

// Resolver looks up validators and actions referenced by name.
// *registry.Registry satisfies it.
type Resolver interface {
	Validator(name string) (domain.Validator, bool)
	Action(name string) (domain.Action, bool)
}

// Registrar receives the loaded dialogs.
type Registrar interface {
	Resolver
	Register(d *domain.Dialog) error
}

// LoadFile reads a dialogs file and registers every dialog it defines.
func LoadFile(path string, reg Registrar) ([]*domain.Dialog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dialogs file: %w", err)
	}
	defer f.Close()

	dialogs, err := Load(f, reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, d := range dialogs {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	return dialogs, nil
}

// Load parses dialog definitions and builds them without registering.
func Load(r io.Reader, resolver Resolver) ([]*domain.Dialog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read dialogs: %w", err)
	}

	var raw map[string]any
	if err := yamlv3.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse dialogs: %w", err)
	}

	var def Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &def,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode dialogs: %w", err)
	}

	if len(def.Dialogs) == 0 {
		return nil, errors.New("no dialogs defined")
	}

	out := make([]*domain.Dialog, 0, len(def.Dialogs))
	for _, dd := range def.Dialogs {
		d, err := build(dd, resolver)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func build(dd DialogDef, resolver Resolver) (*domain.Dialog, error) {
	results, err := schema.Parse(dd.Results)
	if err != nil {
		return nil, fmt.Errorf("dialog %q results: %w", dd.ID, err)
	}
	if len(results) > 0 && !hasComplete(dd.Steps) {
		return nil, fmt.Errorf("dialog %q declares results but has no complete step", dd.ID)
	}

	b := dsl.New(dd.ID)
	for i, sd := range dd.Steps {
		if err := addStep(b, sd, results, resolver); err != nil {
			return nil, fmt.Errorf("dialog %q step %d (%s): %w", dd.ID, i, sd.Name, err)
		}
	}
	return b.Build()
}

func hasComplete(steps []StepDef) bool {
	for _, sd := range steps {
		if sd.Complete != nil {
			return true
		}
	}
	return false
}

func addStep(b *dsl.Builder, sd StepDef, results schema.Schema, resolver Resolver) error {
	set := 0
	for _, ok := range []bool{sd.Say != "", sd.Ask != nil, sd.Call != "", sd.Do != "", sd.Complete != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return errors.New("exactly one of say, ask, call, do or complete is required")
	}

	when, err := parse(sd.Name+".when", sd.When)
	if err != nil {
		return err
	}

	switch {
	case sd.Say != "":
		text, err := parse(sd.Name+".say", sd.Say)
		if err != nil {
			return err
		}
		b.Do(sd.Name, guard(when, func(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
			if sd.Typing {
				sc.Send(domain.Typing())
			}
			sc.Send(domain.Message(execute(text, sd.Say, sc)))
			return domain.Advance(), nil
		}))

	case sd.Ask != nil:
		return addAsk(b, sd, when, resolver)

	case sd.Call != "":
		b.CallIf(sd.Name, sd.Call, func(sc domain.StepContext) (bool, error) {
			return truthy(when, sc)
		})

	case sd.Do != "":
		action, ok := resolver.Action(sd.Do)
		if !ok {
			return fmt.Errorf("unknown action %q", sd.Do)
		}
		b.Do(sd.Name, guard(when, action))

	case sd.Complete != nil:
		value, err := parse(sd.Name+".complete", *sd.Complete)
		if err != nil {
			return err
		}
		src := *sd.Complete
		b.Do(sd.Name, guard(when, func(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
			if err := results.Validate(sc.Results()); err != nil {
				return domain.StepResult{}, fmt.Errorf("dialog %s: %w", sc.DialogID(), err)
			}
			return domain.Complete(execute(value, src, sc)), nil
		}))
	}
	return nil
}

func addAsk(b *dsl.Builder, sd StepDef, when *template.Template, resolver Resolver) error {
	ask := sd.Ask
	kind := domain.InputKind(ask.Input)
	if kind == "" {
		kind = domain.InputText
		if len(ask.Choices) > 0 {
			kind = domain.InputChoice
		}
	}

	text, err := parse(sd.Name+".text", ask.Text)
	if err != nil {
		return err
	}

	v, err := validators(ask.Validate, resolver)
	if err != nil {
		return err
	}

	style := domain.ListStyle(ask.Style)
	switch style {
	case "", domain.StyleSuggestedAction, domain.StyleList, domain.StyleInline, domain.StyleNone:
	default:
		return fmt.Errorf("unknown list style %q", ask.Style)
	}

	cards := make([]domain.Attachment, len(ask.Cards))
	for i, c := range ask.Cards {
		buttons := make([]domain.CardAction, len(c.Buttons))
		for j, title := range c.Buttons {
			buttons[j] = domain.IMBack(title)
		}
		cards[i] = domain.HeroCard(c.Title, c.Subtitle, c.Images, buttons...)
		cards[i].Text = c.Text
	}

	render := func(sc domain.StepContext) domain.PromptOptions {
		opts := domain.PromptOptions{
			Text:    execute(text, ask.Text, sc),
			Choices: append([]string(nil), ask.Choices...),
			Style:   style,
		}
		if len(cards) > 0 {
			opts.Attachments = append([]domain.Attachment(nil), cards...)
			opts.AttachmentLayout = domain.LayoutCarousel
		}
		return opts
	}

	pb := b.Prompt(sd.Name, kind).Retry(ask.Retry)
	if v != nil {
		pb.Validate(v)
	}

	if when == nil && !sd.Typing {
		b.AskWith(sd.Name, sd.Name, render)
		return nil
	}

	b.Do(sd.Name, guard(when, func(_ context.Context, sc domain.StepContext) (domain.StepResult, error) {
		if sd.Typing {
			sc.Send(domain.Typing())
		}
		return domain.Suspend(sd.Name, render(sc)), nil
	}))
	return nil
}

func validators(specs []any, resolver Resolver) (domain.Validator, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	vs := make([]domain.Validator, 0, len(specs))
	for _, spec := range specs {
		v, err := validator(spec, resolver)
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	if len(vs) == 1 {
		return vs[0], nil
	}
	return validate.All(vs...), nil
}

func validator(spec any, resolver Resolver) (domain.Validator, error) {
	switch t := spec.(type) {
	case string:
		if t == "non_empty" {
			return validate.NonEmpty(), nil
		}
		v, ok := resolver.Validator(t)
		if !ok {
			return nil, fmt.Errorf("unknown validator %q", t)
		}
		return v, nil

	case map[string]any:
		if len(t) != 1 {
			return nil, fmt.Errorf("validator must have exactly one key, got %d", len(t))
		}
		for name, arg := range t {
			return builtin(name, arg)
		}
	}
	return nil, fmt.Errorf("invalid validator %v", spec)
}

func builtin(name string, arg any) (domain.Validator, error) {
	switch name {
	case "min_length":
		var n int
		if err := mapstructure.WeakDecode(arg, &n); err != nil {
			return nil, fmt.Errorf("min_length: %w", err)
		}
		return validate.MinLength(n), nil

	case "one_of", "reject_containing":
		var values []string
		if err := mapstructure.WeakDecode(arg, &values); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if name == "one_of" {
			return validate.OneOf(values...), nil
		}
		return validate.RejectContaining(values...), nil

	case "range":
		var bounds []float64
		if err := mapstructure.WeakDecode(arg, &bounds); err != nil || len(bounds) != 2 {
			return nil, fmt.Errorf("range: want [min, max]")
		}
		return validate.Range(bounds[0], bounds[1]), nil
	}
	return nil, fmt.Errorf("unknown validator %q", name)
}

func parse(name, src string) (*template.Template, error) {
	if src == "" {
		return nil, nil
	}
	t, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	return t, nil
}

// execute renders t against the frame results, falling back to the raw source.
func execute(t *template.Template, src string, sc domain.StepContext) string {
	if t == nil {
		return src
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, sc.Results()); err != nil {
		return src
	}
	return strings.ReplaceAll(buf.String(), "<no value>", "")
}

// truthy evaluates a when condition. Empty output and "false" skip the
// step; a template that fails to execute is an error, not a skip.
func truthy(t *template.Template, sc domain.StepContext) (bool, error) {
	if t == nil {
		return true, nil
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, sc.Results()); err != nil {
		return false, fmt.Errorf("condition %s: %w", t.Name(), err)
	}
	out := strings.TrimSpace(strings.ReplaceAll(buf.String(), "<no value>", ""))
	if out == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(out)
	if err != nil {
		return true, nil
	}
	return b, nil
}

func guard(when *template.Template, action domain.Action) domain.Action {
	if when == nil {
		return action
	}
	return func(ctx context.Context, sc domain.StepContext) (domain.StepResult, error) {
		ok, err := truthy(when, sc)
		if err != nil {
			return domain.StepResult{}, err
		}
		if !ok {
			return domain.Advance(), nil
		}
		return action(ctx, sc)
	}
}
