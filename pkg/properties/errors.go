package properties

import "errors"

var (
	// ErrWrongListType is returned when the property list is not an object.
	ErrWrongListType = errors.New("properties should be of type object")

	// ErrEmptyList is returned when a property list is present but holds no property.
	ErrEmptyList = errors.New("properties are provided but do not contain any property")

	// ErrWrongType is returned when a property is neither a string nor a conditional object.
	ErrWrongType = errors.New("property should be of type string or object")

	// ErrEmptyString is returned for properties with an empty string value.
	ErrEmptyString = errors.New("property should have content")

	// ErrEmptyObject is returned for conditional properties without conditions.
	ErrEmptyObject = errors.New("conditional property should have at least one condition")

	// ErrConditionValueType is returned when a condition maps to a non-string value.
	ErrConditionValueType = errors.New("property conditions should have values of type string")

	// ErrConditionFormat is returned when a condition key does not follow "?prefix.postfix=value".
	ErrConditionFormat = errors.New("property condition should look like \"?os.platform=unix\"")

	// ErrNoConditionMet is returned when none of the conditions of a property matched.
	ErrNoConditionMet = errors.New("none of the conditions matched")

	// ErrMissingToken is returned when a $(name) token references an undefined property.
	ErrMissingToken = errors.New("replaceable property not found in list of properties")

	// ErrCircularDependency is returned when properties reference each other in a cycle.
	ErrCircularDependency = errors.New("circular dependency")
)
