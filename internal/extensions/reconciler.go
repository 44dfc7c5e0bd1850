package extensions

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/danmuck/storesync/internal/host"
	"github.com/danmuck/storesync/internal/report"
	"github.com/rs/zerolog/log"
)

// RefreshHint is printed and logged for every install blocked by a missing
// extension base class.
const RefreshHint = "Execute plugin:refresh before plugin:sync !"

// Host performs lifecycle operations for one extension at a time.
// Install may fail with host.ErrBaseClassNotFound.
type Host interface {
	Install(ctx context.Context, name string) error
	Uninstall(ctx context.Context, name string) error
}

// Outcome is the final state of one extension after a run.
type Outcome int

const (
	OutcomeEnabled Outcome = iota + 1
	OutcomeDisabled
	OutcomeInstallFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEnabled:
		return "enabled"
	case OutcomeDisabled:
		return "disabled"
	case OutcomeInstallFailed:
		return "install-failed"
	default:
		return "unknown"
	}
}

// Result aggregates a run. Failures sums the final attempt of every group.
type Result struct {
	Failures int
	// Attempts is the largest number of install passes any group needed.
	Attempts int
	Outcomes map[string]Outcome
}

func (r Result) Failed() bool {
	return r.Failures > 0
}

type Reconciler struct {
	host        Host
	maxAttempts int
	backoff     BackoffConfig
	sleep       SleepFunc
	rng         *rand.Rand
}

type Option func(*Reconciler)

// WithMaxAttempts bounds the install passes per group. Values below 1 mean 1.
func WithMaxAttempts(n int) Option {
	return func(r *Reconciler) {
		if n < 1 {
			n = 1
		}
		r.maxAttempts = n
	}
}

func WithBackoff(cfg BackoffConfig) Option {
	return func(r *Reconciler) {
		r.backoff = cfg
	}
}

func WithSleep(fn SleepFunc) Option {
	return func(r *Reconciler) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

func NewReconciler(h Host, opts ...Option) *Reconciler {
	r := &Reconciler{
		host:        h,
		maxAttempts: 1,
		sleep:       sleepContext,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reconciles groups in the given order. Each group uninstalls its disabled
// entries, then installs and activates its enabled entries. Only
// base-class-not-found install failures are tallied; any other install error
// stops the run.
func (r *Reconciler) Run(ctx context.Context, groups []Group, out report.Reporter) (Result, error) {
	res := Result{Outcomes: make(map[string]Outcome)}

	for _, g := range groups {
		disabled, enabled := g.Partition()
		log.Debug().
			Str("group", g.Name).
			Int("disabled", len(disabled)).
			Int("enabled", len(enabled)).
			Msg("extensions: group start")

		for _, name := range disabled {
			out.WriteLine("")
			report.Writef(out, `Uninstalling plugin: "%s"`, name)
			if err := r.host.Uninstall(ctx, name); err != nil {
				log.Debug().Err(err).Str("group", g.Name).Str("extension", name).Msg("extensions: uninstall failed, ignored")
			}
			res.Outcomes[name] = OutcomeDisabled
		}

		failures, attempts, err := r.installPass(ctx, g.Name, enabled, out, res.Outcomes)
		if attempts > res.Attempts {
			res.Attempts = attempts
		}
		res.Failures += failures
		if err != nil {
			return res, err
		}
	}

	log.Info().
		Int("groups", len(groups)).
		Int("failures", res.Failures).
		Int("attempts", res.Attempts).
		Msg("extensions: run complete")
	return res, nil
}

func (r *Reconciler) installPass(
	ctx context.Context,
	group string,
	enabled []string,
	out report.Reporter,
	outcomes map[string]Outcome,
) (failures int, attempt int, err error) {
	if len(enabled) == 0 {
		return 0, 0, nil
	}
	for attempt = 1; ; attempt++ {
		failures = 0
		for _, name := range enabled {
			out.WriteLine("")
			report.Writef(out, `Installing plugin: "%s"`, name)
			installErr := r.host.Install(ctx, name)
			switch {
			case installErr == nil:
				outcomes[name] = OutcomeEnabled
			case errors.Is(installErr, host.ErrBaseClassNotFound):
				failures++
				outcomes[name] = OutcomeInstallFailed
				log.Error().
					Err(installErr).
					Str("group", group).
					Str("extension", name).
					Int("attempt", attempt).
					Msg(RefreshHint)
				out.WriteLine(RefreshHint)
			default:
				outcomes[name] = OutcomeInstallFailed
				return failures, attempt, fmt.Errorf("extensions: install %s (group %s): %w", name, group, installErr)
			}
		}
		if failures == 0 || attempt >= r.maxAttempts {
			return failures, attempt, nil
		}

		delay := r.backoff.Delay(attempt, r.rng)
		log.Warn().
			Str("group", group).
			Int("failures", failures).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("extensions: retrying install pass")
		if err := r.sleep(ctx, delay); err != nil {
			return failures, attempt, fmt.Errorf("extensions: retry wait (group %s): %w", group, err)
		}
	}
}
