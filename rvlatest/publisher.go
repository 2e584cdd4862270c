package rvlatest

import (
	"errors"
	"log/slog"

	"github.com/gordian-engine/rivulet"
)

// Config is the configuration for a [Publisher].
type Config[P, S, O any] struct {
	// Primary drives output: each primary value produces one output value.
	Primary rivulet.Publisher[P]

	// Secondary supplies the latest value paired with each primary value.
	Secondary rivulet.Publisher[S]

	// Combine produces an output value from a primary value
	// and the latest secondary value.
	Combine func(P, S) O
}

// validate panics if any required field is missing.
func (c Config[P, S, O]) validate() {
	var panicErrs error

	if c.Primary == nil {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("Config.Primary must not be nil"),
		)
	}

	if c.Secondary == nil {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("Config.Secondary must not be nil"),
		)
	}

	if c.Combine == nil {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("Config.Combine must not be nil"),
		)
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

// Publisher is a [rivulet.Publisher] of combined values.
// Every downstream subscriber gets independent subscriptions
// to both the primary and the secondary publishers.
type Publisher[P, S, O any] struct {
	log *slog.Logger
	cfg Config[P, S, O]
}

// New returns a Publisher configured by cfg.
// New panics if cfg is missing a required field.
func New[P, S, O any](log *slog.Logger, cfg Config[P, S, O]) *Publisher[P, S, O] {
	cfg.validate()

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	return &Publisher[P, S, O]{
		log: log,
		cfg: cfg,
	}
}

// WithLatestFrom is shorthand for calling [New] with a [Config]
// built from the arguments.
func WithLatestFrom[P, S, O any](
	log *slog.Logger,
	primary rivulet.Publisher[P],
	secondary rivulet.Publisher[S],
	combine func(P, S) O,
) *Publisher[P, S, O] {
	return New(log, Config[P, S, O]{
		Primary:   primary,
		Secondary: secondary,
		Combine:   combine,
	})
}

func (p *Publisher[P, S, O]) Subscribe(s rivulet.Subscriber[O]) {
	sub := newSubscription(p.log, p.cfg, s)

	// Hand out the subscription before touching the secondary,
	// so that a secondary completing synchronously
	// cannot reach downstream ahead of its subscription.
	s.ReceiveSubscription(sub)

	sub.start()
}
