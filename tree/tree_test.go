package tree

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/reportree/types"
)

func testcase(uid string, status types.Status) *types.Entry {
	return types.MustEntry(types.CategoryTestcase, uid, uid, types.WithStatus(status))
}

func suite(uid string, children ...*types.Entry) *types.Entry {
	return types.MustEntry(types.CategorySuite, uid, uid, types.WithChildren(children...))
}

func multitest(uid string, children ...*types.Entry) *types.Entry {
	return types.MustEntry(types.CategoryMultitest, uid, uid, types.WithChildren(children...))
}

func plan(children ...*types.Entry) *types.Entry {
	return types.MustEntry(types.CategoryTestplan, "plan", "Plan", types.WithChildren(children...))
}

func assertion(uid string, status types.Status, children ...*types.Entry) *types.Entry {
	return &types.Entry{
		Category: types.CategoryAssertionGroup,
		UID:      uid,
		Name:     uid,
		Status:   status,
		Payload:  []byte(fmt.Sprintf(`{"type": "Equal", "passed": %t}`, status == types.StatusPassed)),
		Entries:  types.Loaded(children...),
	}
}

func sampleTree() *types.Entry {
	return plan(
		multitest("mt1",
			suite("s1", testcase("c1", types.StatusPassed), testcase("c2", types.StatusFailed)),
			suite("s2", testcase("c3", types.StatusPassed)),
		),
		multitest("mt2",
			suite("s3", testcase("c4", types.StatusError)),
		),
	)
}

func TestIndex(t *testing.T) {
	root := sampleTree()
	indexed, err := Index(root)
	require.NoError(t, err)

	assert.Nil(t, root.Address, "input must not be modified")
	assert.Equal(t, types.Address{}, indexed.Address)

	Walk(indexed, func(e *types.Entry, addr types.Address) bool {
		assert.Equal(t, addr, e.Address, "node %s", e.UID)
		resolved, err := Resolve(indexed, e.Address)
		require.NoError(t, err)
		assert.Same(t, e, resolved)
		return true
	})

	c2, err := Resolve(indexed, types.Address{0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, "c2", c2.UID)
}

func TestIndex_KeepsPending(t *testing.T) {
	root := plan(
		types.MustEntry(types.CategoryMultitest, "mt", "mt", types.WithPendingChildren()),
	)
	indexed, err := Index(root)
	require.NoError(t, err)
	mt := indexed.Entries.At(0)
	assert.Equal(t, types.StatePending, mt.Entries.State())
	assert.Equal(t, types.Address{0}, mt.Address)

	_, err = Resolve(indexed, types.Address{0, 0})
	assert.True(t, errors.Is(err, ErrNotLoaded))
	_, err = Resolve(indexed, types.Address{5})
	assert.True(t, errors.Is(err, ErrAddressNotFound))
}

func TestIndex_Errors(t *testing.T) {
	tests := []struct {
		name string
		root *types.Entry
	}{
		{
			name: "nil child",
			root: &types.Entry{Category: types.CategoryTestplan, UID: "p", Entries: types.Loaded(nil)},
		},
		{
			name: "shallower child",
			root: &types.Entry{Category: types.CategoryTestplan, UID: "p", Entries: types.Loaded(
				&types.Entry{Category: types.CategorySuite, UID: "s", Entries: types.Loaded(
					&types.Entry{Category: types.CategoryMultitest, UID: "m"},
				)},
			)},
		},
		{
			name: "unknown category",
			root: &types.Entry{Category: "bogus", UID: "p"},
		},
		{
			name: "nil root",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Index(tt.root)
			require.Error(t, err)
			assert.True(t, types.IsTreeIntegrityError(err))
		})
	}
}

func TestAggregate(t *testing.T) {
	root := Aggregate(sampleTree())

	assert.Equal(t, types.Counter{Passed: 2, Failed: 1, Error: 1, Total: 4}, root.Counter)
	assert.Equal(t, types.StatusError, root.Status)

	mt1 := root.Entries.At(0)
	assert.Equal(t, types.Counter{Passed: 2, Failed: 1, Total: 3}, mt1.Counter)
	assert.Equal(t, types.StatusFailed, mt1.Status)
	assert.Equal(t, types.StatusPassed, mt1.Entries.At(1).Status)
}

func TestAggregate_Idempotent(t *testing.T) {
	once := Aggregate(sampleTree())
	twice := Aggregate(once)
	assert.Same(t, once, twice)
	assert.Empty(t, Diff(once, twice))
}

func TestAggregate_CounterAdditivity(t *testing.T) {
	root := Aggregate(sampleTree())
	Walk(root, func(e *types.Entry, _ types.Address) bool {
		if !e.Category.IsGroup() || e.Entries.Len() == 0 {
			return true
		}
		var sum types.Counter
		for _, child := range e.Entries.Entries() {
			sum = sum.Add(child.Counter)
		}
		assert.Equal(t, sum, e.Counter, "node %s", e.UID)
		return true
	})
}

func TestAggregate_Leaves(t *testing.T) {
	tests := []struct {
		name        string
		entry       *types.Entry
		wantStatus  types.Status
		wantCounter types.Counter
	}{
		{
			name:        "empty group without status",
			entry:       &types.Entry{Category: types.CategorySuite, UID: "s"},
			wantStatus:  types.StatusUnknown,
			wantCounter: types.Counter{},
		},
		{
			name:        "empty group keeps decoded status",
			entry:       &types.Entry{Category: types.CategorySuite, UID: "s", Status: types.StatusPassed},
			wantStatus:  types.StatusPassed,
			wantCounter: types.Counter{},
		},
		{
			name: "pending group leans incomplete and keeps counter",
			entry: &types.Entry{Category: types.CategoryMultitest, UID: "m", Status: types.StatusPassed,
				Counter: types.Counter{Passed: 3, Total: 3}, Entries: types.Pending()},
			wantStatus:  types.StatusIncomplete,
			wantCounter: types.Counter{Passed: 3, Total: 3},
		},
		{
			name: "failed load keeps a failed status",
			entry: &types.Entry{Category: types.CategoryMultitest, UID: "m", Status: types.StatusFailed,
				Counter: types.Counter{Failed: 1, Total: 1}, Entries: types.FailedLoad(errors.New("boom"))},
			wantStatus:  types.StatusFailed,
			wantCounter: types.Counter{Failed: 1, Total: 1},
		},
		{
			name:        "testcase without status",
			entry:       &types.Entry{Category: types.CategoryTestcase, UID: "c"},
			wantStatus:  types.StatusUnknown,
			wantCounter: types.Counter{Total: 1},
		},
		{
			name: "testcase with a failed nested assertion",
			entry: &types.Entry{Category: types.CategoryTestcase, UID: "c",
				Entries: types.Loaded(
					assertion("0", types.StatusPassed),
					assertion("1", types.StatusUnknown, assertion("0", types.StatusFailed)),
				)},
			wantStatus:  types.StatusFailed,
			wantCounter: types.Counter{Failed: 1, Total: 1},
		},
		{
			name: "testcase with passing assertions",
			entry: &types.Entry{Category: types.CategoryTestcase, UID: "c",
				Entries: types.Loaded(assertion("0", types.StatusPassed), assertion("1", types.StatusUnknown))},
			wantStatus:  types.StatusPassed,
			wantCounter: types.Counter{Passed: 1, Total: 1},
		},
		{
			name: "recorded status wins over assertions",
			entry: &types.Entry{Category: types.CategoryTestcase, UID: "c", Status: types.StatusPassed,
				Entries: types.Loaded(assertion("0", types.StatusFailed))},
			wantStatus:  types.StatusPassed,
			wantCounter: types.Counter{Passed: 1, Total: 1},
		},
		{
			name: "expected failure counts towards the total only",
			entry: &types.Entry{Category: types.CategoryTestcase, UID: "c", Status: types.StatusPassed, RawStatus: "xfail",
				Entries: types.Loaded(assertion("0", types.StatusFailed))},
			wantStatus:  types.StatusPassed,
			wantCounter: types.Counter{Total: 1},
		},
		{
			name: "testcase with pending assertions keeps its status",
			entry: &types.Entry{Category: types.CategoryTestcase, UID: "c", Status: types.StatusPassed,
				Entries: types.Pending()},
			wantStatus:  types.StatusPassed,
			wantCounter: types.Counter{Passed: 1, Total: 1},
		},
		{
			name: "partial multitest leans incomplete",
			entry: &types.Entry{Category: types.CategoryMultitest, UID: "m", Partial: true,
				Entries: types.Loaded(suite("s", testcase("c", types.StatusPassed)))},
			wantStatus:  types.StatusIncomplete,
			wantCounter: types.Counter{Passed: 1, Total: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.entry)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantCounter, got.Counter)
			assert.Same(t, got, Aggregate(got))
		})
	}
}

func TestAggregate_WireStatuses(t *testing.T) {
	decode := func(t *testing.T, testcases string) *types.Entry {
		t.Helper()
		root, err := types.DecodeReport([]byte(`{"uid": "plan", "category": "testplan", "entries": [
			{"uid": "mt", "category": "multitest", "entries": [
				{"uid": "s", "category": "testsuite", "entries": [`+testcases+`]}
			]}
		]}`), types.DecodeOptions{})
		require.NoError(t, err)
		root, err = Index(root)
		require.NoError(t, err)
		return Aggregate(root)
	}

	tests := []struct {
		name        string
		testcases   string
		wantStatus  types.Status
		wantCounter types.Counter
	}{
		{
			name: "skipped and expected failures under a pass",
			testcases: `{"uid": "ok", "category": "testcase", "status": "passed", "entries": []},
				{"uid": "skip", "category": "testcase", "status": "skipped", "entries": []},
				{"uid": "xf", "category": "testcase", "status": "xfail", "entries": [{"type": "Equal", "passed": false}]}`,
			wantStatus:  types.StatusPassed,
			wantCounter: types.Counter{Passed: 1, Total: 3},
		},
		{
			name: "recorded pass with a failed assertion",
			testcases: `{"uid": "ok", "category": "testcase", "status": "passed", "entries": [{"type": "Equal", "passed": false}]},
				{"uid": "unstable", "category": "testcase", "status": "unstable", "entries": []}`,
			wantStatus:  types.StatusPassed,
			wantCounter: types.Counter{Passed: 1, Total: 2},
		},
		{
			name: "unrecorded status follows the assertions",
			testcases: `{"uid": "a", "category": "testcase", "entries": [{"type": "Equal", "passed": false}]},
				{"uid": "skip", "category": "testcase", "status": "skipped", "entries": []}`,
			wantStatus:  types.StatusFailed,
			wantCounter: types.Counter{Failed: 1, Total: 2},
		},
		{
			name: "strict unexpected pass fails",
			testcases: `{"uid": "ok", "category": "testcase", "status": "passed", "entries": []},
				{"uid": "xp", "category": "testcase", "status": "xpass-strict", "entries": []}`,
			wantStatus:  types.StatusFailed,
			wantCounter: types.Counter{Passed: 1, Failed: 1, Total: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := decode(t, tt.testcases)
			assert.Equal(t, tt.wantStatus, root.Status)
			assert.Equal(t, tt.wantCounter, root.Counter)
			assert.Same(t, root, Aggregate(root))
		})
	}

	t.Run("wire status survives aggregation", func(t *testing.T) {
		root := decode(t, `{"uid": "xf", "category": "testcase", "status": "xfail", "entries": [{"type": "Equal", "passed": false}]}`)
		tc := root.Entries.At(0).Entries.At(0).Entries.At(0)
		assert.Equal(t, types.StatusPassed, tc.Status)
		assert.Equal(t, "xfail", tc.WireStatus())
	})
}

func TestAggregatePath(t *testing.T) {
	root := plan(
		multitest("mt1", suite("s1",
			types.MustEntry(types.CategoryTestcase, "c1", "c1", types.WithPendingChildren()),
		)),
		multitest("mt2", suite("s2", testcase("c2", types.StatusPassed))),
	)
	root, err := Index(root)
	require.NoError(t, err)
	root = Aggregate(root)
	assert.Equal(t, types.StatusUnknown, root.Status)
	assert.Equal(t, types.Counter{Passed: 1, Total: 2}, root.Counter)

	addr := types.Address{0, 0, 0}
	tc, err := Resolve(root, addr)
	require.NoError(t, err)
	loaded := tc.WithEntries(types.Loaded(assertion("0", types.StatusFailed)))

	replaced, err := Replace(root, addr, loaded)
	require.NoError(t, err)
	updated, err := AggregatePath(replaced, addr)
	require.NoError(t, err)

	assert.Equal(t, types.StatusFailed, updated.Status)
	assert.Equal(t, types.Counter{Passed: 1, Failed: 1, Total: 2}, updated.Counter)
	assert.Same(t, root.Entries.At(1), updated.Entries.At(1), "untouched subtree is shared")
	assert.Equal(t, types.StatusUnknown, root.Status, "input is not modified")

	assert.Equal(t, []types.Address{{}, {0}, {0, 0}, {0, 0, 0}, {0, 0, 0, 0}}, Diff(root, updated))
	assert.Equal(t, Aggregate(updated), updated)
}

func TestFind(t *testing.T) {
	root := Aggregate(sampleTree())
	failing := Find(root, func(e *types.Entry) bool {
		return e.Category.IsBottommost() && e.Status.IsFailure()
	})
	require.Len(t, failing, 2)
	assert.Equal(t, "c2", failing[0].Entry.UID)
	assert.Equal(t, types.Address{0, 0, 1}, failing[0].Address)
	assert.Equal(t, "c4", failing[1].Entry.UID)
}

func TestTagIndex(t *testing.T) {
	tc := types.MustEntry(types.CategoryTestcase, "c", "c", types.WithTags("slow"))
	s := types.MustEntry(types.CategorySuite, "s", "s", types.WithTags("color=red"), types.WithChildren(tc))
	m := types.MustEntry(types.CategoryMultitest, "m", "m", types.WithTags("fast"), types.WithChildren(s))
	root := plan(m)

	index := TagIndex(root)
	assert.Equal(t, []string{"fast", "slow", "color=red"}, index["/"].Strings())
	assert.Equal(t, []string{"fast"}, index["0"].Strings())
	assert.Equal(t, []string{"fast", "color=red"}, index["0/0"].Strings())
	assert.Equal(t, []string{"fast", "slow", "color=red"}, index["0/0/0"].Strings())
}

func TestPatch(t *testing.T) {
	pendingCase := func(uid string) *types.Entry {
		return types.MustEntry(types.CategoryTestcase, uid, uid,
			types.WithStatus(types.StatusPassed), types.WithPendingChildren())
	}
	root, err := Index(plan(
		multitest("mt1", suite("s1", pendingCase("c1"), pendingCase("c2"))),
		multitest("mt2", suite("s2", pendingCase("c3"))),
		multitest("mt3", suite("s3", testcase("c4", types.StatusPassed))),
	))
	require.NoError(t, err)
	root = Aggregate(root)

	patches := []Located{
		{Address: types.Address{0, 0, 1}, Entry: root.Entries.At(0).Entries.At(0).Entries.At(1).
			WithEntries(types.Loaded(assertion("0", types.StatusFailed)))},
		{Address: types.Address{1, 0, 0}, Entry: root.Entries.At(1).Entries.At(0).Entries.At(0).
			WithEntries(types.Loaded(assertion("0", types.StatusPassed)))},
	}
	patched, err := Patch(root, patches)
	require.NoError(t, err)

	assert.Equal(t, types.StatusFailed, patched.Status)
	assert.Equal(t, types.Counter{Passed: 3, Failed: 1, Total: 4}, patched.Counter)
	assert.Equal(t, types.StatusFailed, patched.Entries.At(0).Status)
	assert.Equal(t, types.StatusPassed, patched.Entries.At(1).Status)
	assert.Same(t, root.Entries.At(2), patched.Entries.At(2))
	assert.Same(t, root.Entries.At(0).Entries.At(0).Entries.At(0), patched.Entries.At(0).Entries.At(0).Entries.At(0))
	assert.Equal(t, 1, patched.Entries.At(1).Entries.At(0).Entries.At(0).Entries.Len())
	assert.Same(t, patched, Aggregate(patched))

	_, err = Patch(root, []Located{{Address: types.Address{9}, Entry: testcase("x", types.StatusPassed)}})
	assert.True(t, errors.Is(err, ErrAddressNotFound))

	same, err := Patch(root, nil)
	require.NoError(t, err)
	assert.Same(t, root, same)
}
