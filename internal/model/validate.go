package model

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Check names used in ValidationError.Check, in checklist order.
const (
	CheckIsType     = "is-type"
	CheckNotEmpty   = "not-empty"
	CheckPathExists = "path-exists"
	CheckKeyExists  = "key-exists"
)

// Validate runs the descriptor checklist and stops at the first failing
// check. nbPath is the notebook root used by the path-exists check; that
// check is deliberately weak: a missing notebook is logged at warn level
// and execution proceeds.
func (p NotebookParams) Validate(ctx context.Context, nbPath string) error {
	if p.execNode.Kind != yaml.MappingNode {
		return ValidationError{Section: "exec", Check: CheckIsType}
	}
	if len(p.execNode.Content) == 0 {
		return ValidationError{Section: "exec", Check: CheckNotEmpty}
	}

	if p.Exec.Notebook == "" {
		return ValidationError{Section: "exec", Item: "notebook", Check: CheckIsType}
	}
	if _, err := os.Stat(filepath.Join(nbPath, p.Exec.Notebook)); err != nil {
		slog.WarnContext(ctx, "notebook path check failed",
			"check", CheckPathExists,
			"notebook", p.Exec.Notebook,
			"nb_path", nbPath,
			"error", err)
	}

	for _, key := range p.Exec.Identifier {
		if !Truthy(p.Papermill[key]) {
			return ValidationError{Section: "exec", Item: "identifier", Check: CheckKeyExists}
		}
	}

	if p.Papermill == nil {
		return ValidationError{Section: "papermill", Check: CheckIsType}
	}
	if len(p.Papermill) == 0 {
		return ValidationError{Section: "papermill", Check: CheckNotEmpty}
	}
	return nil
}

// Truthy mirrors the loose semantics of descriptor values: nil, false,
// empty strings, zero numbers and empty collections do not count.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case uint64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
