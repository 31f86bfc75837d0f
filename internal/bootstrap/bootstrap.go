// Package bootstrap auto-applies bionic reading to freshly loaded pages.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/bionic/internal/engine"
	"github.com/dgallion1/bionic/internal/page"
	"github.com/dgallion1/bionic/internal/settings"
)

// Stylesheet gives the marker elements their emphasis.
const Stylesheet = ".bionic-text b { font-weight: 700; }"

// DefaultDelay lets the page finish its own startup scripts first.
const DefaultDelay = 500 * time.Millisecond

// Outcome describes what PageLoaded did.
type Outcome string

const (
	OutcomeDisabled       Outcome = "disabled"
	OutcomeAlreadyApplied Outcome = "already_applied"
	OutcomeApplied        Outcome = "applied"
	OutcomeInjected       Outcome = "injected"
)

// Target is a page the bootstrapper can probe, inject into and command.
type Target interface {
	Send(ctx context.Context, msg engine.Message) (engine.Response, error)
	Inject(ctx context.Context, stylesheet string) error
}

var _ Target = (*page.Session)(nil)

type Bootstrapper struct {
	settings settings.Store
	delay    time.Duration
	log      *slog.Logger
}

func New(store settings.Store, delay time.Duration, log *slog.Logger) *Bootstrapper {
	if log == nil {
		log = slog.Default()
	}
	if delay < 0 {
		delay = 0
	}
	return &Bootstrapper{settings: store, delay: delay, log: log}
}

// PageLoaded runs the auto-apply sequence for a page that finished loading.
// A settings load error is logged and the defaults are used.
func (b *Bootstrapper) PageLoaded(ctx context.Context, t Target) (Outcome, error) {
	s, err := b.settings.Load(ctx)
	if err != nil {
		b.log.Warn("settings unavailable, using defaults", "error", err)
		s = settings.Default()
	}
	if !s.Enabled {
		return OutcomeDisabled, nil
	}

	if b.delay > 0 {
		timer := time.NewTimer(b.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		}
	}

	outcome := OutcomeApplied
	r, err := t.Send(ctx, engine.CheckStatus())
	switch {
	case err == nil && r.Applied != nil && *r.Applied:
		return OutcomeAlreadyApplied, nil
	case err == nil && r.Loaded:
	case err != nil && ctx.Err() != nil:
		return "", ctx.Err()
	default:
		if err != nil && !errors.Is(err, page.ErrNotLoaded) {
			b.log.Debug("status probe failed, injecting", "error", err)
		}
		if err := t.Inject(ctx, Stylesheet); err != nil {
			return "", fmt.Errorf("inject engine: %w", err)
		}
		outcome = OutcomeInjected
	}

	r, err = t.Send(ctx, engine.Toggle(s.Enabled, s.BoldRatio))
	if err != nil {
		return "", fmt.Errorf("send toggle: %w", err)
	}
	if r.Error != "" {
		return "", fmt.Errorf("toggle rejected: %s", r.Error)
	}
	b.log.Info("bionic auto-applied", "outcome", outcome, "ratio", s.BoldRatio)
	return outcome, nil
}
