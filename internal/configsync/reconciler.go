package configsync

import (
	"context"
	"fmt"

	"github.com/danmuck/storesync/internal/document"
	"github.com/danmuck/storesync/internal/report"
	"github.com/danmuck/storesync/internal/scopes"
	"github.com/danmuck/storesync/internal/store"
	"github.com/rs/zerolog/log"
)

// WriteFailurePolicy decides what a failed key write does to the run.
type WriteFailurePolicy int

const (
	// FireAndForget reports the failure and moves on to the next key.
	FireAndForget WriteFailurePolicy = iota
	// Abort stops the run at the first failed write.
	Abort
)

// ParseWriteFailurePolicy accepts "continue"/"fire-and-forget" and "abort".
func ParseWriteFailurePolicy(raw string) (WriteFailurePolicy, error) {
	switch raw {
	case "", "continue", "fire-and-forget", "fire_and_forget":
		return FireAndForget, nil
	case "abort":
		return Abort, nil
	default:
		return FireAndForget, fmt.Errorf("configsync: unknown write failure policy %q", raw)
	}
}

// ScopeResolver yields the live scope directory.
type ScopeResolver interface {
	Resolve(ctx context.Context) (scopes.Directory, error)
}

// Report summarizes one config sync run.
type Report struct {
	// Updated lists the scope names whose settings were reconciled, global
	// first.
	Updated []string
	// NotUpdated lists scope ids for which none of their names matched.
	NotUpdated []store.ScopeID
	// UnknownScopes lists document scope names matching no live scope.
	UnknownScopes []string
	// Written counts changed keys; under dry run, the writes that would
	// have happened.
	Written     int
	Unchanged   int
	WriteErrors int
}

// Reconciler drives the live configuration towards a config document.
type Reconciler struct {
	store    store.ConfigStore
	resolver ScopeResolver
	policy   WriteFailurePolicy
	dryRun   bool
}

type Option func(*Reconciler)

func WithWriteFailurePolicy(p WriteFailurePolicy) Option {
	return func(r *Reconciler) {
		r.policy = p
	}
}

// WithDryRun computes and reports deltas without writing.
func WithDryRun(enabled bool) Option {
	return func(r *Reconciler) {
		r.dryRun = enabled
	}
}

func NewReconciler(cs store.ConfigStore, resolver ScopeResolver, opts ...Option) *Reconciler {
	r := &Reconciler{store: cs, resolver: resolver}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reconciles the global scope, then every live scope the document names.
// Scope resolution and store read failures abort the run; write failures
// follow the configured policy.
func (r *Reconciler) Run(ctx context.Context, doc document.ConfigDocument, out report.Reporter) (Report, error) {
	var rep Report

	if settings, ok := doc.Lookup(document.GlobalScope); ok {
		out.WriteLine(report.Separator)
		if err := r.applyScope(ctx, document.GlobalScope, settings, nil, out, &rep); err != nil {
			return rep, err
		}
		out.WriteLine(report.Separator)
		rep.Updated = append(rep.Updated, document.GlobalScope)
	}

	dir, err := r.resolver.Resolve(ctx)
	if err != nil {
		return rep, err
	}

	updated := make(map[store.ScopeID]string)
	notUpdated := make(map[store.ScopeID]string)
	var notUpdatedOrder []store.ScopeID

	for _, entry := range dir.Entries() {
		settings, ok := doc.Lookup(entry.Name)
		if !ok {
			if _, seen := notUpdated[entry.ID]; !seen {
				notUpdatedOrder = append(notUpdatedOrder, entry.ID)
			}
			notUpdated[entry.ID] = entry.Name
			continue
		}
		if err := r.applyScope(ctx, entry.Name, settings, store.Scope(entry.ID), out, &rep); err != nil {
			return rep, err
		}
		updated[entry.ID] = entry.Name
		rep.Updated = append(rep.Updated, entry.Name)
		out.WriteLine(report.Separator)
	}

	// One scope carries a name per translation; it only warrants a notice
	// when none of them matched.
	for _, id := range notUpdatedOrder {
		if _, ok := updated[id]; ok {
			continue
		}
		rep.NotUpdated = append(rep.NotUpdated, id)
		report.Writef(out, `>>> No config update for SalesChannel with id: "%s" <<<`, id)
	}

	for _, name := range doc.Names() {
		if name == document.GlobalScope {
			continue
		}
		if _, ok := dir.Lookup(name); ok {
			continue
		}
		rep.UnknownScopes = append(rep.UnknownScopes, name)
		log.Warn().Str("scope", name).Msg("configsync: document scope matches no sales channel")
	}

	log.Info().
		Int("written", rep.Written).
		Int("unchanged", rep.Unchanged).
		Int("write_errors", rep.WriteErrors).
		Int("not_updated", len(rep.NotUpdated)).
		Bool("dry_run", r.dryRun).
		Msg("configsync: run complete")
	return rep, nil
}

func (r *Reconciler) applyScope(
	ctx context.Context,
	name string,
	settings []document.Setting,
	scope *store.ScopeID,
	out report.Reporter,
	rep *Report,
) error {
	report.Writef(out, `Current config scope: "%s"`, name)
	out.WriteLine(report.Separator)

	deltas, err := ComputeDelta(ctx, settings, func(ctx context.Context, key string) (any, error) {
		return r.store.Get(ctx, key, scope)
	})
	if err != nil {
		return fmt.Errorf("configsync: read scope %q: %w", name, err)
	}

	log.Debug().
		Str("scope", name).
		Int("keys", len(deltas)).
		Int("changed", len(Changed(deltas))).
		Msg("configsync: scope diff")

	for _, d := range deltas {
		report.Writef(out, `Current value: "%s" for key: "%s"`, d.CurrentCanonical, d.Key)
		if !d.Changed {
			rep.Unchanged++
			report.Writef(out, `Did not changed the value for key: "%s"`, d.Key)
			continue
		}
		if r.dryRun {
			rep.Written++
			report.Writef(out, `Would change value to: "%s" for key: "%s"`, d.DesiredCanonical, d.Key)
			continue
		}
		if err := r.store.Set(ctx, d.Key, d.Desired, scope); err != nil {
			rep.WriteErrors++
			log.Warn().Err(err).Str("scope", name).Str("key", d.Key).Msg("configsync: write failed")
			report.Writef(out, `Failed to change value for key: "%s": %v`, d.Key, err)
			if r.policy == Abort {
				return fmt.Errorf("configsync: write scope %q key %q: %w", name, d.Key, err)
			}
			continue
		}
		rep.Written++
		report.Writef(out, `Changed value to: "%s" for key: "%s"`, d.DesiredCanonical, d.Key)
	}
	return nil
}
