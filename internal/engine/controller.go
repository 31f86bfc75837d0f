package engine

import (
	"fmt"
	"time"

	"github.com/dgallion1/bionic/internal/settings"
)

// Phase is the controller's state.
type Phase string

const (
	PhaseDisabled  Phase = "disabled"
	PhaseApplying  Phase = "applying"
	PhaseApplied   Phase = "applied"
	PhaseReverting Phase = "reverting"
)

// Scheduler runs fn on the page loop after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// Controller sequences enable, disable and re-apply requests against an
// Engine. Every transition fully reverts before it applies, so ratio changes
// never stack on already-bolded text. Requests that arrive while a sequence
// is waiting to settle are buffered; only the latest one is acted on.
type Controller struct {
	e      *Engine
	sched  Scheduler
	settle time.Duration

	phase   Phase
	current settings.Settings
	pending *settings.Settings
	waiting bool
	waiters []func(Response)
}

// NewController wires a controller to e. With a positive settle duration the
// controller pauses between a revert and the following apply.
func NewController(e *Engine, sched Scheduler, settle time.Duration) *Controller {
	cur := settings.Default()
	cur.Enabled = false
	return &Controller{
		e:       e,
		sched:   sched,
		settle:  settle,
		phase:   PhaseDisabled,
		current: cur,
	}
}

func (c *Controller) Phase() Phase { return c.phase }

// Settings returns the most recently accepted settings.
func (c *Controller) Settings() settings.Settings { return c.current }

// Handle executes msg and calls respond exactly once, when the controller
// has reached a stable phase.
func (c *Controller) Handle(msg Message, respond func(Response)) {
	switch msg.Action {
	case ActionCheckStatus:
		respond(Response{Loaded: true, Applied: boolPtr(c.e.applied)})
	case ActionToggle, ActionToggleBionic, ActionApply:
		next := c.current
		if c.pending != nil {
			next = *c.pending
		}
		switch {
		case msg.Enabled != nil:
			next.Enabled = *msg.Enabled
		case msg.Action != ActionApply:
			next.Enabled = !next.Enabled
		}
		if msg.BoldRatio != nil {
			next.BoldRatio = *msg.BoldRatio
		}
		c.Update(next, respond)
	default:
		respond(Response{Error: fmt.Sprintf("unknown action %q", msg.Action)})
	}
}

// Update buffers s and runs the revert-then-apply sequence unless one is
// already waiting to settle.
func (c *Controller) Update(s settings.Settings, respond func(Response)) {
	s = s.Normalize()
	c.pending = &s
	if respond != nil {
		c.waiters = append(c.waiters, respond)
	}
	if c.waiting {
		return
	}
	c.run()
}

func (c *Controller) run() {
	for c.pending != nil {
		s := *c.pending
		c.pending = nil
		c.current = s

		if c.phase == PhaseApplied || c.e.registry.Len() > 0 {
			c.phase = PhaseReverting
		}
		reverted := c.e.Revert()
		if reverted > 0 {
			c.e.log.Info("bionic reverted", "containers", reverted)
		}

		if !s.Enabled {
			c.phase = PhaseDisabled
			continue
		}

		c.phase = PhaseApplying
		if reverted > 0 && c.settle > 0 && c.sched != nil {
			c.waiting = true
			c.sched.AfterFunc(c.settle, c.resume)
			return
		}
		c.apply(s)
	}
	c.release()
}

// resume continues a sequence after the settle delay. A request that arrived
// meanwhile replaces the one that was waiting.
func (c *Controller) resume() {
	c.waiting = false
	if c.pending == nil {
		c.apply(c.current)
	}
	c.run()
}

func (c *Controller) apply(s settings.Settings) {
	if !c.e.attached {
		c.phase = PhaseDisabled
		return
	}
	c.e.ratio = s.BoldRatio
	n := c.e.Traverse(c.e.root)
	c.e.applied = true
	c.phase = PhaseApplied
	c.e.startObserver()
	c.e.log.Info("bionic applied", "ratio", s.BoldRatio, "containers", n)
}

func (c *Controller) release() {
	waiters := c.waiters
	c.waiters = nil
	for _, respond := range waiters {
		respond(Response{Success: true, Enabled: boolPtr(c.e.applied)})
	}
}
