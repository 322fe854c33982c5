// FILE: cfgman/merge.go
package cfgman

// MergeLayers folds an ordered list of layers into one tree. Later layers win.
//
// Rules:
//   - mappings are merged recursively
//   - sequences are concatenated in layer order, duplicates kept
//   - any other value replaces what was there
//   - the Absence Marker unsets an existing value; a later layer may set it again
//   - a sequence and a non-sequence at the same path is a *ConflictError
//
// Every entry still holding the Absence Marker after the fold is removed.
// A marker never creates a mapping, but it does clear the key it lands on:
// layers {"name": "x"} then {"name": Missing} merge to {}.
// The input layers are never modified.
func MergeLayers(layers ...Tree) (Tree, error) {
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}

	acc := cloneMap(layers[0])

	for _, layer := range layers[1:] {
		var err error
		walkLeaves(cloneMap(layer), nil, func(path Path, value any) bool {
			err = mergeNode(acc, path, value)
			return err == nil
		})
		if err != nil {
			return nil, err
		}
	}

	prune(acc)
	return Tree(acc), nil
}

// mergeNode applies one leaf of a layer to the accumulator.
func mergeNode(acc map[string]any, path Path, value any) error {
	leafKind := KindOf(value)

	if leafKind == KindMissing {
		parent, ok := lookupParent(acc, path)
		if !ok {
			return nil
		}
		key := path[len(path)-1]
		if _, exists := parent[key]; exists {
			parent[key] = Missing
		}
		return nil
	}

	if err := checkPrefix(acc, path); err != nil {
		return err
	}

	parent, key := EnsurePathPrefix(acc, path)
	current, exists := parent[key]
	currentKind := KindOf(current)
	if !exists {
		currentKind = KindMissing
	}

	switch leafKind {
	case KindSequence:
		switch currentKind {
		case KindMissing:
			parent[key] = value
		case KindSequence:
			parent[key] = append(current.([]any), value.([]any)...)
		default:
			return &ConflictError{Path: path.String()}
		}

	case KindMapping:
		// only empty mappings reach this point
		switch currentKind {
		case KindMapping:
		case KindSequence:
			return &ConflictError{Path: path.String()}
		default:
			parent[key] = value
		}

	default:
		if currentKind == KindSequence {
			return &ConflictError{Path: path.String()}
		}
		parent[key] = value
	}

	return nil
}

// checkPrefix rejects descending through a sequence.
func checkPrefix(acc map[string]any, path Path) error {
	current := acc
	for i, segment := range path[:len(path)-1] {
		value, exists := current[segment]
		if !exists {
			return nil
		}
		if KindOf(value) == KindSequence {
			return &ConflictError{Path: path[:i+1].String()}
		}
		next, ok := asMap(value)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}
