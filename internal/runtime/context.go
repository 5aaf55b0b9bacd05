package runtime

import "github.com/aretw0/turnstile/pkg/domain"

// stepContext exposes the running turn to a step, scoped to the frame the
// step belongs to.
type stepContext struct {
	turn     *turn
	frame    int
	dialogID string
}

func (c *stepContext) Identity() domain.Identity { return c.turn.identity }
func (c *stepContext) Activity() domain.Activity { return c.turn.activity }
func (c *stepContext) DialogID() string          { return c.dialogID }

func (c *stepContext) Result(name string) (any, bool) {
	v, ok := c.results()[name]
	return v, ok
}

func (c *stepContext) Results() map[string]any {
	return domain.CopyValues(c.results())
}

func (c *stepContext) Set(name string, value any) {
	f := &c.turn.stack.Frames[c.frame]
	if f.Results == nil {
		f.Results = make(map[string]any)
	}
	f.Results[name] = value
}

func (c *stepContext) Send(replies ...domain.Reply) {
	c.turn.replies = append(c.turn.replies, replies...)
}

func (c *stepContext) results() map[string]any {
	return c.turn.stack.Frames[c.frame].Results
}
