package model

import "fmt"

// ValidationError identifies the first failing descriptor check. It names
// the offending section, optionally the item within it, and the check that
// rejected it.
type ValidationError struct {
	Section string
	Item    string
	Check   string
}

func (e ValidationError) Error() string {
	if e.Item == "" {
		return fmt.Sprintf("failed check %s: %s", e.Section, e.Check)
	}
	return fmt.Sprintf("failed check %s/%s: %s", e.Section, e.Item, e.Check)
}
