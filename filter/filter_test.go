package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/reportree/merge"
	"github.com/ethereum-optimism/infra/reportree/tree"
	"github.com/ethereum-optimism/infra/reportree/types"
)

func testcase(uid string, status types.Status, opts ...types.Option) *types.Entry {
	return types.MustEntry(types.CategoryTestcase, uid, uid, append(opts, types.WithStatus(status))...)
}

func suite(uid string, opts []types.Option, children ...*types.Entry) *types.Entry {
	return types.MustEntry(types.CategorySuite, uid, uid, append(opts, types.WithChildren(children...))...)
}

func uids(entries []*types.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.UID)
	}
	return out
}

func mergedScenario(t *testing.T) *types.Entry {
	t.Helper()
	in := types.MustEntry(types.CategoryTestplan, "plan", "Plan", types.WithChildren(
		types.MustEntry(types.CategoryMultitest, "p0", "Suite - part(0/2)", types.WithPart(0, 2), types.WithChildren(
			suite("A", nil, testcase("c1", types.StatusPassed), testcase("c3", types.StatusPassed)),
		)),
		types.MustEntry(types.CategoryMultitest, "p1", "Suite - part(1/2)", types.WithPart(1, 2), types.WithChildren(
			suite("A", nil, testcase("c2", types.StatusFailed)),
		)),
	))
	result, err := merge.Merge(in, merge.Options{})
	require.NoError(t, err)
	return result.Root
}

func TestApply_TextKeepsCanonicalCounters(t *testing.T) {
	root := mergedScenario(t)

	filtered, err := Apply(root, Text("c2"))
	require.NoError(t, err)

	require.Equal(t, 1, filtered.Entries.Len())
	mt := filtered.Entries.At(0)
	require.Equal(t, 1, mt.Entries.Len())
	a := mt.Entries.At(0)
	assert.Equal(t, []string{"c2"}, uids(a.Entries.Entries()))

	assert.Equal(t, 3, a.Counter.Total)
	assert.Equal(t, 3, mt.Counter.Total)
	assert.Equal(t, types.StatusFailed, mt.Status)
	// canonical tree untouched
	assert.Equal(t, 3, root.Entries.At(0).Entries.At(0).Entries.Len())
	// derived nodes keep canonical addresses
	assert.Equal(t, types.Address{0, 0, 2}, a.Entries.At(0).Address)
}

func TestApply_Identity(t *testing.T) {
	root := mergedScenario(t)
	empty := ""
	for _, x := range []Expression{{}, {Text: &empty}, {Tags: []string{}}} {
		filtered, err := Apply(root, x)
		require.NoError(t, err)
		assert.Same(t, root, filtered)
		assert.Empty(t, tree.Diff(root, filtered))
	}

	// an expression matching everything prunes nothing either
	all, err := Apply(root, Text(""))
	require.NoError(t, err)
	assert.Same(t, root, all)
	everything := Prune(root, func(*types.Entry) bool { return true })
	assert.Same(t, root, everything)
}

func TestApply_CaseInsensitive(t *testing.T) {
	root := types.MustEntry(types.CategoryTestplan, "plan", "Plan", types.WithChildren(
		types.MustEntry(types.CategoryMultitest, "m", "MT", types.WithChildren(
			suite("s", nil, testcase("LoginWorks", types.StatusPassed), testcase("logout", types.StatusPassed)),
		)),
	))
	filtered, err := Apply(root, Text("LOGIN"))
	require.NoError(t, err)
	assert.Equal(t, []string{"LoginWorks"}, uids(filtered.Entries.At(0).Entries.At(0).Entries.Entries()))
}

func TestApply_AncestorsPreserved(t *testing.T) {
	root := mergedScenario(t)
	filtered, err := Apply(root, Text("c"))
	require.NoError(t, err)

	kept := make(map[string]bool)
	tree.Walk(filtered, func(e *types.Entry, _ types.Address) bool {
		kept[e.Address.String()] = true
		return !e.Category.IsBottommost()
	})
	m, err := Compile(Text("c"))
	require.NoError(t, err)
	for _, match := range tree.Find(root, m.Match) {
		for depth := 0; depth <= len(match.Address); depth++ {
			assert.True(t, kept[match.Address[:depth].String()], "ancestor %s of %s", match.Address[:depth], match.Address)
		}
	}
}

func TestApply_Tags(t *testing.T) {
	root := types.MustEntry(types.CategoryTestplan, "plan", "Plan", types.WithChildren(
		types.MustEntry(types.CategoryMultitest, "m1", "Tagged", types.WithTags("smoke"), types.WithChildren(
			suite("s1", []types.Option{types.WithTags("smoke")},
				testcase("t1", types.StatusPassed, types.WithTags("smoke")),
				testcase("t2", types.StatusPassed),
			),
			suite("s2", nil, testcase("t3", types.StatusPassed)),
		)),
		types.MustEntry(types.CategoryMultitest, "m2", "Sibling", types.WithChildren(
			suite("s3", nil, testcase("t4", types.StatusPassed)),
		)),
		types.MustEntry(types.CategoryMultitest, "m3", "Colored", types.WithChildren(
			suite("s4", []types.Option{types.WithTags("color=red")}, testcase("t5", types.StatusFailed)),
		)),
	))
	root = tree.Aggregate(root)

	// descendants inherit the tags of a matching multitest, siblings do not
	filtered, err := Apply(root, Expression{Tags: []string{"smoke"}})
	require.NoError(t, err)
	require.Equal(t, []string{"m1"}, uids(filtered.Entries.Entries()))
	m1 := filtered.Entries.At(0)
	assert.Equal(t, []string{"s1", "s2"}, uids(m1.Entries.Entries()))
	assert.Equal(t, []string{"t1", "t2"}, uids(m1.Entries.At(0).Entries.Entries()))
	assert.Equal(t, 3, m1.Counter.Total)

	filtered, err = Apply(root, Expression{Tags: []string{"color=red", "nothing"}})
	require.NoError(t, err)
	require.Equal(t, []string{"m3"}, uids(filtered.Entries.Entries()))
	assert.Equal(t, []string{"t5"}, uids(filtered.Entries.At(0).Entries.At(0).Entries.Entries()))

	// text and tags must both match
	text := "t2"
	filtered, err = Apply(root, Expression{Text: &text, Tags: []string{"smoke"}})
	require.NoError(t, err)
	require.Equal(t, []string{"m1"}, uids(filtered.Entries.Entries()))
	assert.Equal(t, []string{"s1"}, uids(filtered.Entries.At(0).Entries.Entries()))
	assert.Equal(t, []string{"t2"}, uids(filtered.Entries.At(0).Entries.At(0).Entries.Entries()))

	text = "t4"
	filtered, err = Apply(root, Expression{Text: &text, Tags: []string{"smoke"}})
	require.NoError(t, err)
	assert.Equal(t, 0, filtered.Entries.Len())

	// a matching group with no matching children keeps no children
	text = "s4"
	filtered, err = Apply(root, Expression{Text: &text, Tags: []string{"color=red"}})
	require.NoError(t, err)
	require.Equal(t, []string{"m3"}, uids(filtered.Entries.Entries()))
	assert.Equal(t, 0, filtered.Entries.At(0).Entries.At(0).Entries.Len())

	// Match alone looks at the node's own tags
	m, err := Compile(Expression{Tags: []string{"smoke"}})
	require.NoError(t, err)
	assert.False(t, m.Match(testcase("t2", types.StatusPassed)))

	_, err = Apply(root, Expression{Tags: []string{"color="}})
	assert.Error(t, err)
}

func TestApply_PendingStaysPending(t *testing.T) {
	root := types.MustEntry(types.CategoryTestplan, "plan", "Plan", types.WithChildren(
		types.MustEntry(types.CategoryMultitest, "lazy", "Lazy", types.WithPendingChildren()),
		types.MustEntry(types.CategoryMultitest, "other", "Other", types.WithPendingChildren()),
	))
	filtered, err := Apply(root, Text("lazy"))
	require.NoError(t, err)
	require.Equal(t, []string{"lazy"}, uids(filtered.Entries.Entries()))
	assert.Equal(t, types.StatePending, filtered.Entries.At(0).Entries.State())
}

func TestApply_NothingMatches(t *testing.T) {
	root := mergedScenario(t)
	filtered, err := Apply(root, Text("does not exist"))
	require.NoError(t, err)
	assert.Equal(t, "plan", filtered.UID)
	assert.Equal(t, 0, filtered.Entries.Len())
	assert.Equal(t, root.Counter, filtered.Counter)
}

func TestStatusFilter(t *testing.T) {
	root := types.MustEntry(types.CategoryTestplan, "plan", "Plan", types.WithChildren(
		types.MustEntry(types.CategoryMultitest, "m", "MT", types.WithChildren(
			suite("s1", nil,
				testcase("ok", types.StatusPassed),
				testcase("bad", types.StatusFailed),
				&types.Entry{Category: types.CategoryTestcase, UID: "skip", Name: "skip",
					Status: types.StatusPassed, RawStatus: "skipped", Counter: types.Counter{Total: 1}},
			),
			suite("s2", nil, testcase("boom", types.StatusError)),
		)),
	))
	root = tree.Aggregate(root)

	tests := []struct {
		flags string
		want  []string
	}{
		{flags: "EF", want: []string{"bad", "boom"}},
		{flags: "P", want: []string{"ok"}},
		{flags: "S", want: []string{"skip"}},
		{flags: "ps", want: []string{"bad", "boom"}},
		{flags: "e", want: []string{"ok", "bad", "skip"}},
	}
	for _, tt := range tests {
		t.Run(tt.flags, func(t *testing.T) {
			f, err := ParseStatusFilter(tt.flags)
			require.NoError(t, err)
			filtered := f.Apply(root)
			var got []string
			for _, l := range tree.Find(filtered, func(e *types.Entry) bool { return e.Category.IsBottommost() }) {
				got = append(got, l.Entry.UID)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, root.Counter, filtered.Counter)
		})
	}

	for _, bad := range []string{"", "Ef", "Z"} {
		_, err := ParseStatusFilter(bad)
		assert.Error(t, err, "flags %q", bad)
	}

	byStatus := ByStatus(types.StatusError).Apply(root)
	assert.Equal(t, []string{"s2"}, uids(byStatus.Entries.At(0).Entries.Entries()))
	assert.Equal(t, []string{"error"}, ByStatus(types.StatusError).Statuses())
}
