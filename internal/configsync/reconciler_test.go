package configsync

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/storesync/internal/document"
	"github.com/danmuck/storesync/internal/report"
	"github.com/danmuck/storesync/internal/scopes"
	"github.com/danmuck/storesync/internal/store"
	"github.com/danmuck/storesync/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func newDoc(in ...document.Scope) document.ConfigDocument {
	return document.ConfigDocument{Scopes: in}
}

func settings(kv ...any) []document.Setting {
	out := make([]document.Setting, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, document.Setting{Key: kv[i].(string), Value: kv[i+1]})
	}
	return out
}

func newReconciler(mem *store.Memory, opts ...Option) *Reconciler {
	return NewReconciler(mem, scopes.NewResolver(mem), opts...)
}

func TestRunGlobalAndMatchedScope(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	mem.AddScope("id7", "Shop A")
	mem.Seed("a", "0", nil)
	mem.Seed("b", "2", store.Scope("id7"))

	doc := newDoc(
		document.Scope{Name: "global", Settings: settings("a", "1")},
		document.Scope{Name: "Shop A", Settings: settings("b", "2")},
	)
	rec := &report.Recorder{}
	rep, err := newReconciler(mem).Run(context.Background(), doc, rec)
	require.NoError(t, err)

	writes := mem.Writes()
	require.Len(t, writes, 1)
	require.Equal(t, "a", writes[0].Key)
	require.Equal(t, "1", writes[0].Value)
	require.Nil(t, writes[0].Scope)

	require.Equal(t, []string{"global", "Shop A"}, rep.Updated)
	require.Empty(t, rep.NotUpdated)
	require.Equal(t, 1, rep.Written)
	require.Equal(t, 1, rep.Unchanged)

	require.Equal(t, []string{
		report.Separator,
		`Current config scope: "global"`,
		report.Separator,
		`Current value: "0" for key: "a"`,
		`Changed value to: "1" for key: "a"`,
		report.Separator,
		`Current config scope: "Shop A"`,
		report.Separator,
		`Current value: "2" for key: "b"`,
		`Did not changed the value for key: "b"`,
		report.Separator,
	}, rec.Lines())
}

func TestRunNeverWritesCanonicallyEqualValues(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	mem.Seed("int", int64(5), nil)
	mem.Seed("bool", true, nil)
	mem.Seed("list", []any{"x", "y"}, nil)
	mem.Seed("float", 2.0, nil)

	doc := newDoc(document.Scope{Name: "global", Settings: settings(
		"int", "5",
		"bool", "1",
		"list", []any{"x", "y"},
		"float", int64(2),
		"missing", nil,
	)})
	rep, err := newReconciler(mem).Run(context.Background(), doc, report.Discard)
	require.NoError(t, err)
	require.Empty(t, mem.Writes())
	require.Equal(t, 5, rep.Unchanged)
}

func TestRunWritesEachChangedKeyOnce(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	mem.Seed("a", "old", nil)
	doc := newDoc(document.Scope{Name: "global", Settings: settings(
		"a", "new",
		"b", []any{"1", "2"},
		"c", false,
	)})
	_, err := newReconciler(mem).Run(context.Background(), doc, report.Discard)
	require.NoError(t, err)

	writes := mem.Writes()
	require.Len(t, writes, 2)
	require.Equal(t, "a", writes[0].Key)
	require.Equal(t, "new", writes[0].Value)
	require.Equal(t, "b", writes[1].Key)
	require.Equal(t, []any{"1", "2"}, writes[1].Value)
}

func TestRunGlobalBeforeNamedScopesInDirectoryOrder(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	mem.AddScope("id2", "Second")
	mem.AddScope("id1", "First")

	doc := newDoc(
		document.Scope{Name: "First", Settings: settings("k", "1")},
		document.Scope{Name: "Second", Settings: settings("k", "2")},
		document.Scope{Name: "global", Settings: settings("k", "g")},
	)
	rep, err := newReconciler(mem).Run(context.Background(), doc, report.Discard)
	require.NoError(t, err)
	require.Equal(t, []string{"global", "Second", "First"}, rep.Updated)

	writes := mem.Writes()
	require.Len(t, writes, 3)
	require.Nil(t, writes[0].Scope)
	require.Equal(t, store.ScopeID("id2"), *writes[1].Scope)
	require.Equal(t, store.ScopeID("id1"), *writes[2].Scope)
}

func TestRunTranslatedScopeMatchedOnceIsNotReported(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	mem.AddScope("id1", "Storefront", "Schaufenster", "Vitrine")

	doc := newDoc(document.Scope{Name: "Schaufenster", Settings: settings("k", "v")})
	rec := &report.Recorder{}
	rep, err := newReconciler(mem).Run(context.Background(), doc, rec)
	require.NoError(t, err)
	require.Equal(t, []string{"Schaufenster"}, rep.Updated)
	require.Empty(t, rep.NotUpdated)
	for _, line := range rec.Lines() {
		require.NotContains(t, line, "No config update")
	}
}

func TestRunUnmatchedScopeReportedOnce(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	mem.AddScope("id1", "Storefront", "Schaufenster", "Vitrine")
	mem.AddScope("id2", "Headless")

	doc := newDoc(document.Scope{Name: "Headless", Settings: settings("k", "v")})
	rec := &report.Recorder{}
	rep, err := newReconciler(mem).Run(context.Background(), doc, rec)
	require.NoError(t, err)
	require.Equal(t, []store.ScopeID{"id1"}, rep.NotUpdated)

	notices := 0
	for _, line := range rec.Lines() {
		if strings.Contains(line, "No config update") {
			notices++
			require.Equal(t, `>>> No config update for SalesChannel with id: "id1" <<<`, line)
		}
	}
	require.Equal(t, 1, notices)
}

func TestRunReportsUnknownDocumentScopes(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	mem.AddScope("id1", "Storefront")
	doc := newDoc(
		document.Scope{Name: "global"},
		document.Scope{Name: "Storefront"},
		document.Scope{Name: "Typo Shop", Settings: settings("k", "v")},
	)
	rep, err := newReconciler(mem).Run(context.Background(), doc, report.Discard)
	require.NoError(t, err)
	require.Equal(t, []string{"Typo Shop"}, rep.UnknownScopes)
	require.Empty(t, mem.Writes())
}

func TestRunWriteFailureContinuesByDefault(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	mem.AddScope("id1", "Storefront")
	mem.FailWrite("a", errors.New("readonly"))

	doc := newDoc(
		document.Scope{Name: "global", Settings: settings("a", "1", "b", "2")},
		document.Scope{Name: "Storefront", Settings: settings("c", "3")},
	)
	rec := &report.Recorder{}
	rep, err := newReconciler(mem).Run(context.Background(), doc, rec)
	require.NoError(t, err)
	require.Equal(t, 1, rep.WriteErrors)
	require.Equal(t, 2, rep.Written)

	var failed []string
	for _, line := range rec.Lines() {
		if strings.HasPrefix(line, "Failed to change value") {
			failed = append(failed, line)
		}
	}
	require.Len(t, failed, 1)
	require.Contains(t, failed[0], `Failed to change value for key: "a"`)
	require.NotContains(t, rec.Lines(), `Changed value to: "1" for key: "a"`)
	require.Contains(t, rec.Lines(), `Changed value to: "2" for key: "b"`)

	writes := mem.Writes()
	require.Len(t, writes, 2)
	require.Equal(t, "b", writes[0].Key)
	require.Equal(t, "c", writes[1].Key)
}

func TestRunWriteFailureAbortPolicy(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	mem.FailWrite("a", errors.New("readonly"))

	doc := newDoc(document.Scope{Name: "global", Settings: settings("a", "1", "b", "2")})
	_, err := newReconciler(mem, WithWriteFailurePolicy(Abort)).Run(context.Background(), doc, report.Discard)
	require.ErrorIs(t, err, store.ErrWrite)
	require.Empty(t, mem.Writes())
}

func TestRunDryRunDoesNotWrite(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	doc := newDoc(document.Scope{Name: "global", Settings: settings("a", "1")})
	rec := &report.Recorder{}
	rep, err := newReconciler(mem, WithDryRun(true)).Run(context.Background(), doc, rec)
	require.NoError(t, err)
	require.Empty(t, mem.Writes())
	require.Equal(t, 1, rep.Written)
	require.Contains(t, rec.Lines(), `Would change value to: "1" for key: "a"`)
}

func TestRunScopeSourceFailureAborts(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	mem.FailList(errors.New("connection refused"))
	doc := newDoc(document.Scope{Name: "global", Settings: settings("a", "1")})

	_, err := newReconciler(mem).Run(context.Background(), doc, report.Discard)
	require.ErrorIs(t, err, scopes.ErrScopeSourceUnavailable)
	// Global is applied before scopes are resolved.
	require.Len(t, mem.Writes(), 1)
}

func TestRunWithoutGlobalSkipsGlobalBlock(t *testing.T) {
	testlog.Start(t)

	mem := store.NewMemory()
	rec := &report.Recorder{}
	_, err := newReconciler(mem).Run(context.Background(), newDoc(), rec)
	require.NoError(t, err)
	require.Empty(t, rec.Lines())
}

func TestParseWriteFailurePolicy(t *testing.T) {
	p, err := ParseWriteFailurePolicy("abort")
	require.NoError(t, err)
	require.Equal(t, Abort, p)

	p, err = ParseWriteFailurePolicy("")
	require.NoError(t, err)
	require.Equal(t, FireAndForget, p)

	_, err = ParseWriteFailurePolicy("panic")
	require.Error(t, err)
}
