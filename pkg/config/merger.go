package config

import (
	"github.com/poltergeist/phasebuild/pkg/document"
	"github.com/poltergeist/phasebuild/pkg/types"
)

// Merge layers child over parent and returns a new configuration.
// Properties and phases merge by key with the child winning, external task
// directories are concatenated parent first and de-duplicated, and the child
// default phase wins when present. Other keys are carried over with the child
// winning. Neither input is modified.
func Merge(child, parent *document.Object) *document.Object {
	if isAbsent(child) && isAbsent(parent) {
		return document.NewObject()
	}
	if isAbsent(child) {
		return document.CloneObject(parent)
	}
	if isAbsent(parent) {
		return document.CloneObject(child)
	}

	merged := document.CloneObject(parent)

	for pair := child.Oldest(); pair != nil; pair = pair.Next() {
		switch pair.Key {
		case types.FieldProperties:
			parentProps, _ := merged.Get(types.FieldProperties)
			merged.Set(types.FieldProperties, MergeProperties(pair.Value, parentProps))
		case types.FieldExternalTasks:
			parentTasks, _ := merged.Get(types.FieldExternalTasks)
			merged.Set(types.FieldExternalTasks, MergeTasks(pair.Value, parentTasks))
		case types.FieldPhases:
			parentPhases, _ := merged.Get(types.FieldPhases)
			merged.Set(types.FieldPhases, MergePhases(pair.Value, parentPhases))
		default:
			merged.Set(pair.Key, document.Clone(pair.Value))
		}
	}

	return merged
}

// MergeProperties merges property lists by key, child overriding parent.
// When either side is not an object the other side is returned as is.
func MergeProperties(child, parent any) any {
	return mergeByKey(child, parent)
}

// MergePhases merges phase maps by phase name. A phase present in both is
// replaced by the child phase rather than merged.
func MergePhases(child, parent any) any {
	return mergeByKey(child, parent)
}

// MergeTasks concatenates external task directories, parent entries first,
// keeping the first occurrence of duplicates.
func MergeTasks(child, parent any) any {
	combined := append(append([]any{}, document.Arrayify(document.Clone(parent))...), document.Arrayify(document.Clone(child))...)

	seen := make([]any, 0, len(combined))
	for _, item := range combined {
		duplicate := false
		for _, existing := range seen {
			if document.Equal(existing, item) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			seen = append(seen, item)
		}
	}
	return seen
}

func mergeByKey(child, parent any) any {
	childObj, childOK := child.(*document.Object)
	parentObj, parentOK := parent.(*document.Object)

	switch {
	case !childOK || childObj == nil:
		if child == nil {
			return document.Clone(parent)
		}
		return document.Clone(child)
	case childObj.Len() == 0:
		if parent == nil {
			return document.Clone(child)
		}
		return document.Clone(parent)
	case !parentOK || parentObj == nil:
		return document.Clone(child)
	}

	merged := document.CloneObject(parentObj)
	for pair := childObj.Oldest(); pair != nil; pair = pair.Next() {
		merged.Set(pair.Key, document.Clone(pair.Value))
	}
	return merged
}

func isAbsent(obj *document.Object) bool {
	return obj == nil || obj.Len() == 0
}
