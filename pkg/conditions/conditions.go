// Package conditions provides the predicates used by conditional properties.
//
// A condition expression has the form "?prefix.postfix=value", for example
// "?os.platform=windows". Conditions are registered by (prefix, postfix) and
// evaluated against the running environment.
package conditions

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"sync"
)

var (
	// ErrUnknownPrefix is returned when no condition is registered under a prefix.
	ErrUnknownPrefix = errors.New("condition prefix not found")

	// ErrUnknownPostfix is returned when a prefix has no condition with the postfix.
	ErrUnknownPostfix = errors.New("condition postfix not found")

	// ErrMalformedExpression is returned for keys not matching the condition grammar.
	ErrMalformedExpression = errors.New("malformed condition expression")

	// ErrInvalidName is returned when registering a condition under a name outside [a-zA-Z]+.
	ErrInvalidName = errors.New("invalid condition name")
)

var (
	expressionPattern = regexp.MustCompile(`^\?([a-zA-Z]+)\.([a-zA-Z]+)=(.+)$`)
	namePattern       = regexp.MustCompile(`^[a-zA-Z]+$`)
)

// Condition evaluates one environment predicate.
type Condition interface {
	// Match reports whether the environment currently has the given value.
	Match(value string) bool
	// Values lists the values the condition can take, for display purposes.
	Values() []string
}

// Expression is a parsed "?prefix.postfix=value" key.
type Expression struct {
	Prefix  string
	Postfix string
	Value   string
}

// String renders the expression back into its key form.
func (e Expression) String() string {
	return fmt.Sprintf("?%s.%s=%s", e.Prefix, e.Postfix, e.Value)
}

// ParseExpression parses a condition key.
func ParseExpression(key string) (Expression, error) {
	match := expressionPattern.FindStringSubmatch(key)
	if match == nil {
		return Expression{}, fmt.Errorf("%w: %q", ErrMalformedExpression, key)
	}
	return Expression{Prefix: match[1], Postfix: match[2], Value: match[3]}, nil
}

// IsExpression reports whether key follows the condition grammar.
func IsExpression(key string) bool {
	return expressionPattern.MatchString(key)
}

// Registry holds conditions keyed by prefix and postfix.
type Registry struct {
	mu         sync.RWMutex
	conditions map[string]map[string]Condition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conditions: make(map[string]map[string]Condition)}
}

// Default returns a registry with the os.platform and os.arch conditions
// bound to the running process.
func Default() *Registry {
	r := NewRegistry()
	_ = r.Register("os", "platform", Platform(runtime.GOOS))
	_ = r.Register("os", "arch", Arch(runtime.GOARCH))
	return r
}

// Register adds or replaces a condition.
func (r *Registry) Register(prefix, postfix string, c Condition) error {
	if !namePattern.MatchString(prefix) {
		return fmt.Errorf("%w: prefix %q", ErrInvalidName, prefix)
	}
	if !namePattern.MatchString(postfix) {
		return fmt.Errorf("%w: postfix %q", ErrInvalidName, postfix)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conditions[prefix] == nil {
		r.conditions[prefix] = make(map[string]Condition)
	}
	r.conditions[prefix][postfix] = c
	return nil
}

// Lookup returns the condition registered under prefix and postfix.
func (r *Registry) Lookup(prefix, postfix string) (Condition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	postfixes, ok := r.conditions[prefix]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrefix, prefix)
	}
	c, ok := postfixes[postfix]
	if !ok {
		return nil, fmt.Errorf("%w: %q under prefix %q", ErrUnknownPostfix, postfix, prefix)
	}
	return c, nil
}

// Match evaluates a single condition. Unknown conditions are errors.
func (r *Registry) Match(prefix, postfix, value string) (bool, error) {
	c, err := r.Lookup(prefix, postfix)
	if err != nil {
		return false, err
	}
	return c.Match(value), nil
}

// Evaluate parses a condition key and evaluates it.
func (r *Registry) Evaluate(key string) (bool, error) {
	expr, err := ParseExpression(key)
	if err != nil {
		return false, err
	}
	matched, err := r.Match(expr.Prefix, expr.Postfix, expr.Value)
	if err != nil {
		return false, fmt.Errorf("%w (in %q)", err, key)
	}
	return matched, nil
}

// Available lists every registered condition as "prefix.postfix" with its values.
func (r *Registry) Available() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string)
	for prefix, postfixes := range r.conditions {
		for postfix, c := range postfixes {
			values := append([]string(nil), c.Values()...)
			sort.Strings(values)
			out[prefix+"."+postfix] = values
		}
	}
	return out
}

// Platform values
const (
	PlatformWindows = "windows"
	PlatformUnix    = "unix"
)

type platformCondition struct {
	platform string
}

// Platform returns the os.platform condition for the given GOOS. Every
// non-windows operating system is reported as unix.
func Platform(goos string) Condition {
	if goos == "windows" {
		return platformCondition{platform: PlatformWindows}
	}
	return platformCondition{platform: PlatformUnix}
}

func (c platformCondition) Match(value string) bool { return c.platform == value }

func (c platformCondition) Values() []string {
	return []string{PlatformWindows, PlatformUnix}
}

type archCondition struct {
	arch string
}

// Arch returns the os.arch condition for the given GOARCH.
func Arch(goarch string) Condition {
	return archCondition{arch: goarch}
}

func (c archCondition) Match(value string) bool { return c.arch == value }

func (c archCondition) Values() []string {
	return []string{"386", "amd64", "arm", "arm64"}
}
