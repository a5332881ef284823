package resolver

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/credgate/pkg/schema"
)

// fakeCLI is an in-memory SecretCLI that counts invocations per reference.
type fakeCLI struct {
	values map[string]string
	calls  map[string]int
}

func newFakeCLI(values map[string]string) *fakeCLI {
	return &fakeCLI{values: values, calls: make(map[string]int)}
}

func (f *fakeCLI) Read(_ context.Context, ref string) (string, error) {
	f.calls[ref]++
	v, ok := f.values[ref]
	if !ok {
		return "", schema.NewErrorf(schema.ErrCodeResolve, "secret CLI failed for %s: not found", ref)
	}
	return v, nil
}

func testResolver(cli SecretCLI) *Resolver {
	return New(cli, slog.New(slog.DiscardHandler))
}

func TestResolveIndirectReferences(t *testing.T) {
	cli := newFakeCLI(map[string]string{
		"op://vault/tracker/token": "tok-123",
	})
	r := testResolver(cli)

	resolved, report := r.ResolveEnviron(context.Background(),
		[]string{"API_TOKEN"},
		map[string]string{"API_TOKEN": "op://vault/tracker/token"},
		nil)

	assert.Equal(t, map[string]string{"API_TOKEN": "tok-123"}, resolved)
	assert.Equal(t, StatusResolved, report.Statuses["API_TOKEN"])
}

func TestResolveSharedReferenceSingleInvocation(t *testing.T) {
	// Two keys aliasing one reference: identical values, one CLI call.
	cli := newFakeCLI(map[string]string{
		"op://vault/shared/secret": "shared-value",
	})
	r := testResolver(cli)

	resolved, report := r.ResolveEnviron(context.Background(),
		[]string{"KEY_A", "KEY_B"},
		map[string]string{
			"KEY_A": "op://vault/shared/secret",
			"KEY_B": "op://vault/shared/secret",
		},
		nil)

	require.Equal(t, "shared-value", resolved["KEY_A"])
	require.Equal(t, "shared-value", resolved["KEY_B"])
	assert.Equal(t, 1, cli.calls["op://vault/shared/secret"])
	assert.Equal(t, StatusResolved, report.Statuses["KEY_A"])
	assert.Equal(t, StatusResolved, report.Statuses["KEY_B"])
}

func TestResolveInheritedEnvironmentWins(t *testing.T) {
	cli := newFakeCLI(map[string]string{
		"op://vault/tracker/token": "from-vault",
	})
	r := testResolver(cli)

	resolved, report := r.ResolveEnviron(context.Background(),
		[]string{"API_TOKEN"},
		map[string]string{"API_TOKEN": "op://vault/tracker/token"},
		map[string]string{"API_TOKEN": "from-ci"})

	assert.Empty(t, resolved)
	assert.Equal(t, StatusInherited, report.Statuses["API_TOKEN"])
	assert.Zero(t, cli.calls["op://vault/tracker/token"])
}

func TestResolveLiteralValuesSkipCLI(t *testing.T) {
	cli := newFakeCLI(nil)
	r := testResolver(cli)

	resolved, report := r.ResolveEnviron(context.Background(),
		[]string{"ZONE_ID", "BASE_URL"},
		map[string]string{
			"ZONE_ID":  "zone-8812",
			"BASE_URL": "https://api.example.com",
		},
		nil)

	assert.Equal(t, "zone-8812", resolved["ZONE_ID"])
	assert.Equal(t, "https://api.example.com", resolved["BASE_URL"])
	assert.Equal(t, StatusLiteral, report.Statuses["ZONE_ID"])
	assert.Empty(t, cli.calls)
}

func TestResolvePartialDegradation(t *testing.T) {
	// One of three keys fails: the other two are still populated and the
	// pass completes.
	cli := newFakeCLI(map[string]string{
		"op://vault/a": "value-a",
		"op://vault/c": "value-c",
	})
	r := testResolver(cli)

	resolved, report := r.ResolveEnviron(context.Background(),
		[]string{"A", "B", "C"},
		map[string]string{
			"A": "op://vault/a",
			"B": "op://vault/b",
			"C": "op://vault/c",
		},
		nil)

	assert.Equal(t, "value-a", resolved["A"])
	assert.Equal(t, "value-c", resolved["C"])
	_, hasB := resolved["B"]
	assert.False(t, hasB)
	assert.Equal(t, StatusFailed, report.Statuses["B"])
	assert.Equal(t, []string{"B"}, report.Failed())
}

func TestResolveFailureNotRetriedWithinProcess(t *testing.T) {
	cli := newFakeCLI(nil) // everything fails
	r := testResolver(cli)

	_, report := r.ResolveEnviron(context.Background(),
		[]string{"A", "B"},
		map[string]string{
			"A": "op://vault/broken",
			"B": "op://vault/broken",
		},
		nil)

	assert.Equal(t, 1, cli.calls["op://vault/broken"])
	assert.Equal(t, StatusFailed, report.Statuses["A"])
	assert.Equal(t, StatusFailed, report.Statuses["B"])
}

func TestResolveUnmappedKeyLeftUnset(t *testing.T) {
	r := testResolver(newFakeCLI(nil))

	resolved, report := r.ResolveEnviron(context.Background(),
		[]string{"OPTIONAL_KEY"},
		map[string]string{},
		nil)

	assert.Empty(t, resolved)
	assert.Equal(t, StatusUnmapped, report.Statuses["OPTIONAL_KEY"])
}

func TestIsIndirectRef(t *testing.T) {
	assert.True(t, IsIndirectRef("op://vault/item/field"))
	assert.False(t, IsIndirectRef("https://api.example.com"))
	assert.False(t, IsIndirectRef("plain-value"))
	assert.False(t, IsIndirectRef(""))
}

func TestEnvironHelpers(t *testing.T) {
	m := EnvironMap([]string{"A=1", "B=x=y", "MALFORMED"})
	assert.Equal(t, "1", m["A"])
	assert.Equal(t, "x=y", m["B"])
	_, ok := m["MALFORMED"]
	assert.False(t, ok)

	merged := MergeEnviron([]string{"A=1"}, map[string]string{"B": "2"})
	assert.Contains(t, merged, "A=1")
	assert.Contains(t, merged, "B=2")
}
