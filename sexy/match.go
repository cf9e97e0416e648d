package sexy

import (
	"fmt"
	"strconv"
)

// Match reports whether actual matches pattern. An ellipsis in pattern
// matches any datum, and inside a list it matches any run of items
// (including none). The returned error describes the first mismatch and where
// it occurred.
func Match(pattern, actual *Node) error {
	return match(pattern, actual, "root")
}

func match(pattern, actual *Node, path string) error {
	if pattern.Type == NodeEllipsis {
		return nil
	}
	if pattern.Type != actual.Type {
		return fmt.Errorf("at %s: expected %s %s, got %s %s", path, pattern.Type, pattern, actual.Type, actual)
	}
	if pattern.Type != NodeList {
		if pattern.Text != actual.Text {
			return fmt.Errorf("at %s: expected %s, got %s", path, pattern, actual)
		}
		return nil
	}
	if !matchItems(pattern.Items, actual.Items, path) {
		// Recompute the most useful diagnostic: the first differing item.
		return listMismatch(pattern, actual, path)
	}
	return nil
}

func matchItems(pattern, actual []*Node, path string) bool {
	if len(pattern) == 0 {
		return len(actual) == 0
	}
	if pattern[0].Type == NodeEllipsis {
		for skip := 0; skip <= len(actual); skip++ {
			if matchItems(pattern[1:], actual[skip:], path) {
				return true
			}
		}
		return false
	}
	if len(actual) == 0 {
		return false
	}
	if match(pattern[0], actual[0], path) != nil {
		return false
	}
	return matchItems(pattern[1:], actual[1:], path)
}

func listMismatch(pattern, actual *Node, path string) error {
	for i, p := range pattern.Items {
		if p.Type == NodeEllipsis {
			break
		}
		itemPath := path + "[" + strconv.Itoa(i) + "]"
		if i >= len(actual.Items) {
			return fmt.Errorf("at %s: expected %s, got end of list", itemPath, p)
		}
		if err := match(p, actual.Items[i], itemPath); err != nil {
			return err
		}
	}
	return fmt.Errorf("at %s: expected %s, got %s", path, pattern, actual)
}
