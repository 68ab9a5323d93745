// Package tt supports table-driven tests with little boilerplate.
package tt

import (
	"fmt"
	"reflect"
	"strings"
)

// Table represents a test table.
type Table []*Case

// Case represents a test case. It is created by the Args function, and
// offers setters that augment and return itself, so calls can be chained
// like Args(...).Rets(...).
type Case struct {
	args     []interface{}
	wantRets []interface{}
}

// Args returns a new Case with the given arguments.
func Args(args ...interface{}) *Case {
	return &Case{args: args}
}

// Rets modifies the test case so that it requires the return values to
// match the given values, and returns the receiver. An argument may
// implement the Matcher interface, in which case its Match method decides;
// otherwise reflect.DeepEqual is used.
func (c *Case) Rets(matchers ...interface{}) *Case {
	c.wantRets = matchers
	return c
}

// FnToTest describes a function to test.
type FnToTest struct {
	name string
	body interface{}
}

// Fn makes a new FnToTest with the given function name and body.
func Fn(name string, body interface{}) *FnToTest {
	return &FnToTest{name, body}
}

// T is the subset of testing.T used by Test.
type T interface {
	Helper()
	Errorf(format string, args ...interface{})
}

// Test tests a function against test cases.
func Test(t T, fn *FnToTest, tests Table) {
	t.Helper()
	for _, test := range tests {
		rets := call(fn.body, test.args)
		if !match(test.wantRets, rets) {
			t.Errorf("%s(%s) -> %s, want %s", fn.name,
				sprintList(test.args), sprintList(rets), sprintList(test.wantRets))
		}
	}
}

// RetValue is an empty interface used in the Matcher interface.
type RetValue interface{}

// Matcher wraps the Match method.
type Matcher interface {
	// Match reports whether a return value is considered a match. The
	// argument is of type RetValue so that it cannot be implemented
	// accidentally.
	Match(RetValue) bool
}

// Any is a Matcher that matches any value.
var Any Matcher = anyMatcher{}

type anyMatcher struct{}

func (anyMatcher) Match(RetValue) bool { return true }

func match(matchers, actual []interface{}) bool {
	for i, matcher := range matchers {
		if m, ok := matcher.(Matcher); ok {
			if !m.Match(actual[i]) {
				return false
			}
		} else if !reflect.DeepEqual(matcher, actual[i]) {
			return false
		}
	}
	return true
}

func sprintList(values []interface{}) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%v", v)
	}
	return sb.String()
}

func call(fn interface{}, args []interface{}) []interface{} {
	argValues := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			// reflect.ValueOf(nil) returns a zero Value; work around this
			// by taking the ValueOf a pointer to nil and dereferencing.
			var v interface{}
			argValues[i] = reflect.ValueOf(&v).Elem()
		} else {
			argValues[i] = reflect.ValueOf(arg)
		}
	}
	retValues := reflect.ValueOf(fn).Call(argValues)
	rets := make([]interface{}, len(retValues))
	for i, ret := range retValues {
		rets[i] = ret.Interface()
	}
	return rets
}
