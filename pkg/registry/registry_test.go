package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plain(name string) domain.Step {
	return domain.Plain(name, func(context.Context, domain.StepContext) (domain.StepResult, error) {
		return domain.Advance(), nil
	})
}

func TestRegistry_Dialogs(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(&domain.Dialog{ID: "b", Steps: []domain.Step{plain("x")}}))
	require.NoError(t, r.Register(&domain.Dialog{ID: "a", Steps: []domain.Step{plain("x")}}))

	d, ok := r.Dialog("a")
	require.True(t, ok)
	assert.Equal(t, "a", d.ID)

	_, ok = r.Dialog("missing")
	assert.False(t, ok)

	ids := []string{}
	for _, d := range r.Dialogs() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)

	r.Unregister("a")
	_, ok = r.Dialog("a")
	assert.False(t, ok)
}

func TestRegistry_RejectsInvalidDialog(t *testing.T) {
	r := registry.New()
	assert.Error(t, r.Register(nil))
	assert.ErrorContains(t, r.Register(&domain.Dialog{ID: "empty"}), "has no steps")
	assert.Panics(t, func() { r.MustRegister(&domain.Dialog{}) })
}

func TestRegistry_NamedFunctions(t *testing.T) {
	r := registry.New()
	r.RegisterValidator("nonEmpty", func(v any) bool { return v != "" })
	r.RegisterAction("noop", func(context.Context, domain.StepContext) (domain.StepResult, error) {
		return domain.Advance(), nil
	})

	v, ok := r.Validator("nonEmpty")
	require.True(t, ok)
	assert.False(t, v(""))

	_, ok = r.Action("noop")
	assert.True(t, ok)
	_, ok = r.Action("ghost")
	assert.False(t, ok)
}
