package registry

import (
	"fmt"
	"strings"
)

/*
getReferencedType returns the fully qualified name of a referenced type, be it
a top level, nested or imported entity. If not found it returns an error.
Ref - https://github.com/protocolbuffers/protobuf/blob/b7a5772caf08d62a20fd1bca258f501fa4db022c/src/google/protobuf/descriptor.proto#L186-L191
*/
func getReferencedType(typeName, prefix string, exists func(string) bool) (string, error) {
	// check if fully qualifed prefixed by dot
	if strings.HasPrefix(typeName, ".") {
		return getFullyQualifiedType(typeName, exists)
	}
	// try resolving from inner entities up till the parent package
	if result, ok := splitNameAndCheck(typeName, prefix, exists); ok {
		return result, nil
	}
	// check if the entity is referenced from the root, e.g. via its package name
	if exists(typeName) {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve type name: %s", typeName)
}

// splitNameAndCheck splits the prefixName and tries to append the typeName and find the entity for resolution
// it also tries the find the entities defined using relative path
func splitNameAndCheck(typeName, prefix string, exists func(string) bool) (string, bool) {
	if prefix == "" {
		return "", false
	}
	prefixSplit := strings.Split(prefix, ".")

	for len(prefixSplit) > 0 {
		entityName := strings.Join(prefixSplit, ".") + "." + typeName
		if exists(entityName) {
			return entityName, true
		}
		// Omit the last element in each iteration as we go level above to outer entity
		prefixSplit = prefixSplit[:len(prefixSplit)-1]
	}
	return "", false
}

func getFullyQualifiedType(typeName string, exists func(string) bool) (string, error) {
	typeName = strings.TrimPrefix(typeName, ".")
	if exists(typeName) {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve fully qualified (.) type name: %s", typeName)
}
