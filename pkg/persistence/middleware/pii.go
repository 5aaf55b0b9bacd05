package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/ports"
)

// Mask replaces values whose result key matches a PII pattern.
const Mask = "***"

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks frame results whose keys
// match the patterns before they reach the store. Masked answers cannot be
// read back, so only mask values that later steps do not need.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, id domain.Identity, stack *domain.DialogStack) error {
	// 1. Deep Clone to avoid side effects on the stack used by the Engine.
	cloned := stack.Clone()

	// 2. Mask PII
	for i := range cloned.Frames {
		maskMap(cloned.Frames[i].Results, m.patterns)
	}

	if err := m.next.Save(ctx, id, cloned); err != nil {
		return err
	}
	stack.Version = cloned.Version
	return nil
}

func (m *piiMiddleware) Load(ctx context.Context, id domain.Identity) (*domain.DialogStack, error) {
	return m.next.Load(ctx, id)
}

func (m *piiMiddleware) Delete(ctx context.Context, id domain.Identity) error {
	return m.next.Delete(ctx, id)
}

func (m *piiMiddleware) List(ctx context.Context) ([]domain.Identity, error) {
	return m.next.List(ctx)
}

// Helpers

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		// Check key against patterns
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}

		// Recurse if map
		if subMap, ok := v.(map[string]any); ok && !masked {
			maskMap(subMap, patterns)
		}
	}
}
