package types

import "strings"

// Category is the closed set of report entry kinds, ordered by nesting depth
type Category string

const (
	CategoryRoot              Category = "root"
	CategoryTestplan          Category = "testplan"
	CategoryMultitest         Category = "multitest"
	CategorySuite             Category = "suite"
	CategoryParametrizedGroup Category = "parametrized-group"
	CategoryTestcase          Category = "testcase"
	CategoryAssertionGroup    Category = "assertion-group"
)

var categoryDepth = map[Category]int{
	CategoryRoot:              0,
	CategoryTestplan:          1,
	CategoryMultitest:         2,
	CategorySuite:             3,
	CategoryParametrizedGroup: 4,
	CategoryTestcase:          5,
	CategoryAssertionGroup:    6,
}

// wireCategories maps testplan report categories onto the closed set.
// Test-level runners collapse to multitest and their suites to suite.
var wireCategories = map[string]Category{
	"root":               CategoryRoot,
	"testplan":           CategoryTestplan,
	"multitest":          CategoryMultitest,
	"testgroup":          CategoryMultitest,
	"task_rerun":         CategoryMultitest,
	"gtest":              CategoryMultitest,
	"cppunit":            CategoryMultitest,
	"boost-test":         CategoryMultitest,
	"hobbestest":         CategoryMultitest,
	"pytest":             CategoryMultitest,
	"pyunit":             CategoryMultitest,
	"unittest":           CategoryMultitest,
	"qunit":              CategoryMultitest,
	"junit":              CategoryMultitest,
	"error":              CategoryMultitest,
	"suite":              CategorySuite,
	"testsuite":          CategorySuite,
	"gtest-suite":        CategorySuite,
	"cppunit-suite":      CategorySuite,
	"boost-suite":        CategorySuite,
	"hobbestest-suite":   CategorySuite,
	"parametrization":    CategoryParametrizedGroup,
	"parametrized-group": CategoryParametrizedGroup,
	"testcase":           CategoryTestcase,
	"synthesized":        CategoryTestcase,
	"assertion-group":    CategoryAssertionGroup,
}

// ParseCategory maps a wire category name onto the closed set
func ParseCategory(s string) (Category, bool) {
	c, ok := wireCategories[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// IsValid reports whether c belongs to the closed set
func (c Category) IsValid() bool {
	_, ok := categoryDepth[c]
	return ok
}

// Depth returns the nesting depth of the category, root being 0
func (c Category) Depth() int {
	d, ok := categoryDepth[c]
	if !ok {
		return -1
	}
	return d
}

// IsBottommost reports whether c is the category owning an assertions attachment
func (c Category) IsBottommost() bool {
	return c == CategoryTestcase
}

// IsGroup reports whether entries of this category roll up their children
func (c Category) IsGroup() bool {
	switch c {
	case CategoryRoot, CategoryTestplan, CategoryMultitest, CategorySuite, CategoryParametrizedGroup:
		return true
	}
	return false
}

// CanContain reports whether an entry of category c may hold a child of category child
func (c Category) CanContain(child Category) bool {
	if !c.IsValid() || !child.IsValid() {
		return false
	}
	switch c {
	case CategoryTestcase:
		return child == CategoryAssertionGroup
	case CategoryAssertionGroup:
		return child == CategoryAssertionGroup
	case CategoryParametrizedGroup:
		// parametrized groups only hold generated testcases
		return child == CategoryTestcase
	}
	return child.Depth() > c.Depth() && child != CategoryAssertionGroup
}
