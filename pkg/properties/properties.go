// Package properties resolves conditional properties and substitutes $(name) tokens.
package properties

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/poltergeist/phasebuild/pkg/conditions"
	"github.com/poltergeist/phasebuild/pkg/document"
)

var tokenPattern = regexp.MustCompile(`\$\(([a-zA-Z._]+)\)`)

// Resolver turns raw property lists into fully expanded name/value pairs.
type Resolver struct {
	conditions *conditions.Registry
}

// NewResolver creates a resolver evaluating conditions with registry.
func NewResolver(registry *conditions.Registry) *Resolver {
	if registry == nil {
		registry = conditions.Default()
	}
	return &Resolver{conditions: registry}
}

// ResolveConditional returns a plain string unchanged and evaluates a
// conditional object, returning the value of the first matching condition.
func (r *Resolver) ResolveConditional(name string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case *document.Object:
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			matched, err := r.conditions.Evaluate(pair.Key)
			if err != nil {
				return "", fmt.Errorf("property %q: %w", name, err)
			}
			if !matched {
				continue
			}
			resolved, ok := pair.Value.(string)
			if !ok {
				return "", fmt.Errorf("%w: property %q", ErrConditionValueType, name)
			}
			return resolved, nil
		}
		return "", fmt.Errorf("%w: property %q", ErrNoConditionMet, name)
	default:
		return "", fmt.Errorf("%w: property %q", ErrWrongType, name)
	}
}

// Parse resolves every conditional property, validates the result, rejects
// circular references and expands all tokens. The input is left untouched and
// the returned object keeps the input key order.
func (r *Resolver) Parse(props *document.Object) (*document.Object, error) {
	if err := ValidateProperties(props); err != nil {
		return nil, err
	}

	var errs []error
	resolved := document.NewObject()
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		value, err := r.ResolveConditional(pair.Key, pair.Value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		resolved.Set(pair.Key, value)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := ValidateProperties(resolved); err != nil {
		return nil, err
	}

	order, err := dependencyOrder(resolved)
	if err != nil {
		return nil, err
	}

	expanded := make(map[string]string, resolved.Len())
	for _, name := range order {
		raw, ok := resolved.Get(name)
		if !ok {
			continue
		}
		value, err := substituteString(raw.(string), expanded)
		if err != nil {
			return nil, err
		}
		expanded[name] = value
	}

	out := document.NewObject()
	for _, name := range document.Keys(resolved) {
		out.Set(name, expanded[name])
	}
	return out, nil
}

// ValidateProperties checks the shape of a property list: it must be a
// non-empty object whose entries satisfy ValidateProperty. It stops at the
// first invalid property.
func ValidateProperties(value any) error {
	props, ok := value.(*document.Object)
	if !ok || props == nil {
		return ErrWrongListType
	}
	if props.Len() == 0 {
		return ErrEmptyList
	}
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		if err := ValidateProperty(pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

// ValidateProperty checks a single property. Strings must be non-empty;
// conditional objects need at least one condition, keys following the
// condition grammar and string values. Every condition problem is reported.
func ValidateProperty(name string, value any) error {
	switch v := value.(type) {
	case string:
		if v == "" {
			return fmt.Errorf("%w: property %q", ErrEmptyString, name)
		}
		return nil
	case *document.Object:
		if v.Len() == 0 {
			return fmt.Errorf("%w: property %q", ErrEmptyObject, name)
		}
		var errs []error
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			if !conditions.IsExpression(pair.Key) {
				errs = append(errs, fmt.Errorf("%w: property %q key %q", ErrConditionFormat, name, pair.Key))
				continue
			}
			if _, ok := pair.Value.(string); !ok {
				errs = append(errs, fmt.Errorf("%w: property %q key %q", ErrConditionValueType, name, pair.Key))
			}
		}
		return errors.Join(errs...)
	default:
		return fmt.Errorf("%w: property %q is %s", ErrWrongType, name, document.TypeName(value))
	}
}

// CheckCircularDependency walks the token graph of props depth first and
// fails on the first reference back into the current path.
func CheckCircularDependency(props *document.Object) error {
	_, err := dependencyOrder(props)
	return err
}

// dependencyOrder returns property names so that every property comes after
// the properties it references.
func dependencyOrder(props *document.Object) ([]string, error) {
	graph := make(map[string][]string, props.Len())
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		if s, ok := pair.Value.(string); ok {
			graph[pair.Key] = Tokens(s)
		}
	}

	var (
		order    []string
		resolved = make(map[string]bool)
		seen     = make(map[string]bool)
	)

	var walk func(property string) error
	walk = func(property string) error {
		seen[property] = true
		for _, dependency := range graph[property] {
			if resolved[dependency] {
				continue
			}
			if seen[dependency] {
				return fmt.Errorf("%w: %q in %q property", ErrCircularDependency, dependency, property)
			}
			if err := walk(dependency); err != nil {
				return err
			}
		}
		delete(seen, property)
		resolved[property] = true
		order = append(order, property)
		return nil
	}

	for _, name := range document.Keys(props) {
		if resolved[name] {
			continue
		}
		if err := walk(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Tokens returns the property names referenced by s, in order of appearance.
func Tokens(s string) []string {
	matches := tokenPattern.FindAllStringSubmatch(s, -1)
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, match[1])
	}
	return names
}

// Substitute replaces every $(name) token in strings nested anywhere inside
// value. It returns a new value and never modifies its input.
func Substitute(value any, props map[string]string) (any, error) {
	switch v := value.(type) {
	case string:
		return substituteString(v, props)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			substituted, err := Substitute(item, props)
			if err != nil {
				return nil, err
			}
			out[i] = substituted
		}
		return out, nil
	case *document.Object:
		if v == nil {
			return v, nil
		}
		out := document.NewObject()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			substituted, err := Substitute(pair.Value, props)
			if err != nil {
				return nil, err
			}
			out.Set(pair.Key, substituted)
		}
		return out, nil
	default:
		return v, nil
	}
}

// Apply substitutes tokens in value using the string entries of props.
func Apply(value any, props *document.Object) (any, error) {
	return Substitute(value, Values(props))
}

// ApplyString substitutes tokens in a single string.
func ApplyString(s string, props *document.Object) (string, error) {
	return substituteString(s, Values(props))
}

// Values flattens the string entries of props into a map.
func Values(props *document.Object) map[string]string {
	values := make(map[string]string)
	if props == nil {
		return values
	}
	for pair := props.Oldest(); pair != nil; pair = pair.Next() {
		if s, ok := pair.Value.(string); ok {
			values[pair.Key] = s
		}
	}
	return values
}

func substituteString(s string, props map[string]string) (string, error) {
	var missing string
	out := tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := tokenPattern.FindStringSubmatch(token)[1]
		value, ok := props[name]
		if !ok || value == "" {
			if missing == "" {
				missing = name
			}
			return token
		}
		return value
	})
	if missing != "" {
		return "", fmt.Errorf("%w: %q", ErrMissingToken, missing)
	}
	return out, nil
}
