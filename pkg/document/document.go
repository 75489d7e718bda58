// Package document holds JSON values whose objects keep their key order.
//
// Values are represented with plain Go types: string, float64, bool, nil,
// []any and *Object. Key order matters for configurations because phase task
// order and conditional property matching follow declaration order.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/poltergeist/phasebuild/pkg/types"
)

// ErrInvalidJSON is returned when input is not a well-formed JSON document.
var ErrInvalidJSON = errors.New("invalid JSON")

// Object is a JSON object preserving insertion order.
type Object = orderedmap.OrderedMap[string, any]

// NewObject creates an empty object.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// Parse decodes data into a document value preserving object key order.
func Parse(data []byte) (any, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// ParseObject decodes data and requires the top-level value to be an object.
func ParseObject(data []byte) (*Object, error) {
	value, err := Parse(data)
	if err != nil {
		return nil, err
	}
	obj, ok := value.(*Object)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is %s, not an object", ErrInvalidJSON, TypeName(value))
	}
	return obj, nil
}

func fromResult(r gjson.Result) any {
	switch {
	case r.IsObject():
		obj := NewObject()
		r.ForEach(func(key, value gjson.Result) bool {
			obj.Set(key.String(), fromResult(value))
			return true
		})
		return obj
	case r.IsArray():
		items := make([]any, 0)
		r.ForEach(func(_, value gjson.Result) bool {
			items = append(items, fromResult(value))
			return true
		})
		return items
	}

	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Num
	case gjson.True:
		return true
	case gjson.False:
		return false
	default:
		return nil
	}
}

// Keys returns the keys of obj in order.
func Keys(obj *Object) []string {
	if obj == nil {
		return nil
	}
	keys := make([]string, 0, obj.Len())
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Clone returns a deep copy of a document value.
func Clone(value any) any {
	switch v := value.(type) {
	case *Object:
		return CloneObject(v)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = Clone(item)
		}
		return items
	default:
		return v
	}
}

// CloneObject returns a deep copy of obj. A nil object clones to nil.
func CloneObject(obj *Object) *Object {
	if obj == nil {
		return nil
	}
	out := NewObject()
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, Clone(pair.Value))
	}
	return out
}

// Equal reports whether two document values are deeply equal. Object key order is ignored.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case *Object:
		bv, ok := b.(*Object)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for pair := av.Oldest(); pair != nil; pair = pair.Next() {
			other, present := bv.Get(pair.Key)
			if !present || !Equal(pair.Value, other) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

// IsEmpty reports whether value is null, an empty string, an empty array or an empty object.
// Numbers and booleans are never empty.
func IsEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case *Object:
		return v == nil || v.Len() == 0
	default:
		return false
	}
}

// Arrayify wraps a non-array value into a one-element array. Empty values yield an empty array.
func Arrayify(value any) []any {
	if IsEmpty(value) {
		return []any{}
	}
	if items, ok := value.([]any); ok {
		return items
	}
	return []any{value}
}

// Strings converts a string or an array of strings into a slice.
// It returns false if any element is not a string.
func Strings(value any) ([]string, bool) {
	items := Arrayify(value)
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// TypeOf maps a document value to its option type.
func TypeOf(value any) types.OptionType {
	switch value.(type) {
	case string:
		return types.OptionString
	case []any:
		return types.OptionArray
	case *Object, map[string]any:
		return types.OptionObject
	case float64, int, int64:
		return types.OptionNumber
	case bool:
		return types.OptionBoolean
	default:
		return types.OptionNull
	}
}

// TypeName returns a lower-case type name for messages.
func TypeName(value any) string {
	switch TypeOf(value) {
	case types.OptionString:
		return "string"
	case types.OptionArray:
		return "array"
	case types.OptionObject:
		return "object"
	case types.OptionNumber:
		return "number"
	case types.OptionBoolean:
		return "boolean"
	default:
		return "null"
	}
}

// ToNative converts objects into map[string]any recursively.
func ToNative(value any) any {
	switch v := value.(type) {
	case *Object:
		out := make(map[string]any, v.Len())
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			out[pair.Key] = ToNative(pair.Value)
		}
		return out
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = ToNative(item)
		}
		return items
	default:
		return v
	}
}

// Marshal encodes value as indented JSON, preserving object key order.
func Marshal(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return pretty.PrettyOptions(data, &pretty.Options{Width: 80, Indent: "  "}), nil
}
