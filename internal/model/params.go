package model

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// descriptor mirrors the two top level sections of a job file. The exec
// section is kept as a raw node so the validator can check its shape.
type descriptor struct {
	Papermill map[string]any `yaml:"papermill"`
	Exec      yaml.Node      `yaml:"exec"`
}

// StringList accepts either a scalar string or a sequence of strings.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*l = StringList(ss)
		return nil
	default:
		return fmt.Errorf("identifier: expected a string or a sequence of strings")
	}
}

// ExecOptions are the allow-listed execution engine options. Keys outside
// this set are ignored, never errors.
type ExecOptions struct {
	EngineName               string `yaml:"engine_name"`
	RequestSaveOnCellExecute *bool  `yaml:"request_save_on_cell_execute"`
	AutosaveCellEvery        *int   `yaml:"autosave_cell_every"`
	KernelName               string `yaml:"kernel_name"`
	Language                 string `yaml:"language"`
	ProgressBar              *bool  `yaml:"progress_bar"`
	LogOutput                *bool  `yaml:"log_output"`
	ReportMode               *bool  `yaml:"report_mode"`
}

// ExecParams is the typed view of the descriptor's exec section.
type ExecParams struct {
	Notebook   string      `yaml:"notebook"`
	Identifier StringList  `yaml:"identifier"`
	Options    ExecOptions `yaml:",inline"`
}

// NotebookParams is the parsed, validated representation of one job.
type NotebookParams struct {
	Papermill   map[string]any
	Exec        ExecParams
	Identifier  string
	SourceFile  string
	WorkingFile string
	JobID       string

	// raw exec section, retained for the validator's shape checks
	execNode yaml.Node
}

// ParseParams decodes a claimed descriptor body and derives the identifier.
// jobID, sourceFile and workingFile are recorded verbatim.
func ParseParams(body []byte, jobID, sourceFile, workingFile string) (NotebookParams, error) {
	var d descriptor
	if err := yaml.Unmarshal(body, &d); err != nil {
		return NotebookParams{}, fmt.Errorf("decoding descriptor: %w", err)
	}

	var exec ExecParams
	if d.Exec.Kind == yaml.MappingNode {
		if err := d.Exec.Decode(&exec); err != nil {
			return NotebookParams{}, fmt.Errorf("decoding exec section: %w", err)
		}
	}

	p := NotebookParams{
		Papermill:   d.Papermill,
		Exec:        exec,
		SourceFile:  sourceFile,
		WorkingFile: workingFile,
		JobID:       jobID,
		execNode:    d.Exec,
	}
	p.Identifier = deriveIdentifier(p.Papermill, exec.Identifier)
	return p, nil
}

var (
	illegalCharsRx = regexp.MustCompile(`[<>:"/\\|?*]`)
	repeatedDashRx = regexp.MustCompile(`-{2,}`)
)

// deriveIdentifier joins the named papermill values with '-' and makes the
// result filesystem safe: illegal characters become '-', repeated
// separators collapse to one. Missing keys contribute empty segments.
func deriveIdentifier(papermill map[string]any, keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		v, ok := papermill[key]
		if !ok || v == nil {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, fmt.Sprint(v))
	}
	id := strings.Join(parts, "-")
	id = illegalCharsRx.ReplaceAllString(id, "-")
	id = repeatedDashRx.ReplaceAllString(id, "-")
	return id
}
