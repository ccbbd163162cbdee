package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `{
  "uid": "plan",
  "name": "Plan",
  "category": "testplan",
  "status": "failed",
  "resource_meta_path": "/tmp/resource.json",
  "meta": {"user": "ci"},
  "counter": {"passed": 1, "failed": 1, "total": 2},
  "entries": [
    {
      "uid": "mt-0",
      "name": "MT - part(0/2)",
      "category": "multitest",
      "part": [0, 2],
      "tags": {"simple": ["fast"], "color": ["red"]},
      "counter": {"passed": 1},
      "entries": [
        {
          "uid": "suite",
          "name": "Suite",
          "category": "testsuite",
          "entries": [
            {
              "uid": "case",
              "name": "case",
              "type": "TestCaseReport",
              "status": "passed",
              "entries": [
                {"type": "Equal", "description": "eq", "passed": true},
                {"type": "Group", "description": "grp", "passed": false, "entries": [
                  {"type": "Fail", "passed": false}
                ]},
                {"type": "Log", "description": "note"}
              ]
            }
          ]
        }
      ]
    },
    {
      "uid": "mt-1",
      "name": "MT - part(1/2)",
      "category": "multitest",
      "part": {"index": 1, "total": 2},
      "status": "skipped",
      "entries": null
    }
  ]
}`

func TestDecodeReport(t *testing.T) {
	root, err := DecodeReport([]byte(sampleReport), DecodeOptions{})
	require.NoError(t, err)

	assert.Equal(t, CategoryTestplan, root.Category)
	assert.Equal(t, StatusFailed, root.Status)
	assert.Equal(t, "/tmp/resource.json", root.ResourceMetaPath)
	assert.JSONEq(t, `{"user": "ci"}`, string(root.Extra["meta"]))
	require.Equal(t, 2, root.Entries.Len())

	mt0 := root.Entries.At(0)
	assert.Equal(t, &Part{Index: 0, Total: 2}, mt0.Part)
	assert.Equal(t, Counter{Passed: 1, Total: 1}, mt0.Counter)
	assert.True(t, mt0.Tags.Contains(Tag{Name: "color", Value: "red"}))

	suite := mt0.Entries.At(0)
	assert.Equal(t, CategorySuite, suite.Category)
	assert.Equal(t, "testsuite", suite.Kind)

	tc := suite.Entries.At(0)
	assert.Equal(t, CategoryTestcase, tc.Category)
	require.Equal(t, 3, tc.Entries.Len())
	assert.Equal(t, StatusPassed, tc.Entries.At(0).Status)
	assert.Equal(t, "Equal", tc.Entries.At(0).Kind)
	assert.Equal(t, "0", tc.Entries.At(0).UID)
	group := tc.Entries.At(1)
	assert.Equal(t, StatusFailed, group.Status)
	require.Equal(t, 1, group.Entries.Len())
	assert.Equal(t, "Fail", group.Entries.At(0).Name)
	assert.Equal(t, StatusUnknown, tc.Entries.At(2).Status)

	mt1 := root.Entries.At(1)
	assert.Equal(t, StatePending, mt1.Entries.State())
	assert.Equal(t, StatusPassed, mt1.Status)
	assert.Equal(t, "skipped", mt1.RawStatus)
}

func TestDecodeReport_PendingAssertions(t *testing.T) {
	doc := `{"uid": "p", "category": "testplan", "entries": [
		{"uid": "m", "category": "multitest", "entries": [
			{"uid": "s", "category": "testsuite", "entries": [
				{"uid": "c", "category": "testcase", "status": "passed", "entries": []}
			]}
		]}
	]}`

	root, err := DecodeReport([]byte(doc), DecodeOptions{PendingAssertions: true})
	require.NoError(t, err)
	tc := root.Entries.At(0).Entries.At(0).Entries.At(0)
	assert.Equal(t, StatePending, tc.Entries.State())

	root, err = DecodeReport([]byte(doc), DecodeOptions{})
	require.NoError(t, err)
	tc = root.Entries.At(0).Entries.At(0).Entries.At(0)
	assert.True(t, tc.Entries.IsLoaded())
	assert.Equal(t, 0, tc.Entries.Len())
}

func TestDecodeReport_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "entries wrong type", doc: `{"uid": "p", "category": "testplan", "entries": "nope"}`},
		{name: "unknown category", doc: `{"uid": "p", "category": "mystery"}`},
		{name: "missing uid", doc: `{"category": "testplan"}`},
		{name: "not an object", doc: `[1, 2]`},
		{name: "shallower child", doc: `{"uid": "p", "category": "testplan", "entries": [
			{"uid": "s", "category": "testsuite", "entries": [{"uid": "m", "category": "multitest"}]}
		]}`},
		{name: "part on suite", doc: `{"uid": "p", "category": "testplan", "entries": [
			{"uid": "s", "category": "testsuite", "part": [0, 2]}
		]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeReport([]byte(tt.doc), DecodeOptions{})
			require.Error(t, err)
			assert.True(t, IsTreeIntegrityError(err), "unexpected error type: %v", err)
		})
	}
}

func TestEncodeReport(t *testing.T) {
	root, err := DecodeReport([]byte(sampleReport), DecodeOptions{})
	require.NoError(t, err)

	data, err := EncodeReport(root, false)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "testplan", doc["category"])
	assert.Equal(t, map[string]any{"user": "ci"}, doc["meta"])

	entries := doc["entries"].([]any)
	mt0 := entries[0].(map[string]any)
	assert.Equal(t, []any{0.0, 2.0}, mt0["part"])
	suite := mt0["entries"].([]any)[0].(map[string]any)
	assert.Equal(t, "testsuite", suite["category"])
	tc := suite["entries"].([]any)[0].(map[string]any)
	assertions := tc["entries"].([]any)
	assert.Equal(t, "Group", assertions[1].(map[string]any)["type"])

	mt1 := entries[1].(map[string]any)
	assert.Nil(t, mt1["entries"])
	assert.Equal(t, "skipped", mt1["status"])

	again, err := DecodeReport(data, DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, root.Entries.At(0).Entries.At(0).Entries.At(0).Entries.Len(),
		again.Entries.At(0).Entries.At(0).Entries.At(0).Entries.Len())
	assert.Equal(t, StatePending, again.Entries.At(1).Entries.State())
}

func TestEntryValidate(t *testing.T) {
	_, err := NewEntry(CategorySuite, "s", "Suite", WithPart(0, 2))
	assert.True(t, IsTreeIntegrityError(err))

	_, err = NewEntry(CategoryMultitest, "", "MT")
	assert.True(t, IsTreeIntegrityError(err))

	// part ranges are left to the merger
	_, err = NewEntry(CategoryMultitest, "m", "MT - part(2/2)", WithPart(2, 2))
	require.NoError(t, err)
	root, err := DecodeReport([]byte(`{"uid": "p", "category": "testplan", "entries": [
		{"uid": "m", "category": "multitest", "part": [2, 2], "entries": []}
	]}`), DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, &Part{Index: 2, Total: 2}, root.Entries.At(0).Part)

	_, err = NewEntry(CategoryTestcase, "c", "case", func(e *Entry) { e.Unloaded = Counter{Total: 1} })
	assert.True(t, IsTreeIntegrityError(err))

	tc := MustEntry(CategoryTestcase, "c", "case", WithStatus(StatusFailed))
	assert.Equal(t, Counter{Failed: 1, Total: 1}, tc.Counter)

	_, err = NewEntry(CategorySuite, "s", "Suite", WithChildren(tc, nil))
	assert.True(t, IsTreeIntegrityError(err))

	suite, err := NewEntry(CategorySuite, "s", "Suite", WithChildren(tc))
	require.NoError(t, err)
	assert.Equal(t, 1, suite.Entries.Len())
}

func TestEncodeReport_MergeState(t *testing.T) {
	suite := MustEntry(CategorySuite, "s", "Suite", WithChildren())
	suite.Partial = true
	suite.Unloaded = Counter{Passed: 1, Failed: 1, Total: 2}

	data, err := EncodeReport(suite, false)
	require.NoError(t, err)
	again, err := DecodeReport(data, DecodeOptions{})
	require.NoError(t, err)
	assert.True(t, again.Partial)
	assert.Equal(t, suite.Unloaded, again.Unloaded)
}

func TestAddress(t *testing.T) {
	addr := Address{0, 2}.Child(1)
	assert.Equal(t, "0/2/1", addr.String())
	assert.Equal(t, "/", Address{}.String())
	parsed, err := ParseAddress("0/2/1")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(addr))
	assert.True(t, addr.HasPrefix(Address{0, 2}))
	assert.False(t, addr.HasPrefix(Address{1}))
	_, err = ParseAddress("0/x")
	assert.Error(t, err)
}
