package httpclient

import (
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-httpclient/internal/logger"
	"github.com/samvad-hq/samvad-httpclient/pkg/jsontree"
)

// ErrUnexpectedShape is returned when an error-shaped tree holds a nested structure where
// a display string was expected.
var ErrUnexpectedShape = errors.New("unexpected tree shape")

// HasChild reports whether tree has a direct child with the exact name. A nil tree has none.
func HasChild(tree *jsontree.Tree, name string) bool {
	return tree.HasChild(name)
}

// CheckErrorShape reports whether tree is one of the known upstream error layouts and logs
// the diagnostics it carries. The first match wins, in this order: nil tree, info plus
// traceback, djerror, error. A matched child that is not a leaf yields true together with
// an error wrapping ErrUnexpectedShape.
func CheckErrorShape(tree *jsontree.Tree) (bool, error) {
	if tree == nil {
		logger.ErrorObj("JSON error: null tree", "httpclient_error_shape", map[string]any{
			"channel": channel,
		})
		return true, nil
	}

	switch {
	case tree.HasChild("info") && tree.HasChild("traceback"):
		info, err := leafOf(tree, "info")
		if err != nil {
			return true, err
		}
		traceback, err := leafOf(tree, "traceback")
		if err != nil {
			return true, err
		}
		logger.ErrorObj("Django error", "httpclient_error_shape", map[string]any{
			"channel":   channel,
			"info":      info,
			"traceback": traceback,
		})
		return true, nil
	case tree.HasChild("djerror"):
		msg, err := leafOf(tree, "djerror")
		if err != nil {
			return true, err
		}
		logger.ErrorObj("Django error", "httpclient_error_shape", map[string]any{
			"channel": channel,
			"djerror": msg,
		})
		return true, nil
	case tree.HasChild("error"):
		msg, err := leafOf(tree, "error")
		if err != nil {
			return true, err
		}
		logger.ErrorObj("HTTP error", "httpclient_error_shape", map[string]any{
			"channel": channel,
			"error":   msg,
		})
		return true, nil
	}
	return false, nil
}

// IsKnownErrorShape is CheckErrorShape without the error; an unexpected shape is logged
// and still counts as an error payload.
func IsKnownErrorShape(tree *jsontree.Tree) bool {
	matched, err := CheckErrorShape(tree)
	if err != nil {
		logger.ErrorObj("error payload has unexpected shape", "httpclient_error_shape", map[string]any{
			"channel": channel,
			"error":   err.Error(),
		})
	}
	return matched
}

func leafOf(tree *jsontree.Tree, name string) (string, error) {
	child, _ := tree.Child(name)
	v, err := child.LeafValue()
	if err != nil {
		return "", fmt.Errorf("%w: child %q is a %s", ErrUnexpectedShape, name, child.Kind())
	}
	return v, nil
}
