// Package notebook reads executed notebook artifacts. Notebooks are plain
// JSON documents; scrapbook stores named output values ("scraps") inside
// cell outputs under a dedicated MIME type.
package notebook

import (
	"encoding/json"
	"fmt"
	"os"
)

const scrapMIME = "application/scrapbook.scrap.json+json"

type rawNotebook struct {
	Cells []struct {
		Outputs []struct {
			Data map[string]json.RawMessage `json:"data"`
		} `json:"outputs"`
	} `json:"cells"`
}

type scrapPayload struct {
	Name string `json:"name"`
	Data any    `json:"data"`
}

// ReadScraps extracts named scrapbook output values from an executed
// notebook. Notebooks without scraps yield an empty map. Outputs that carry
// the scrap MIME type but do not decode are skipped.
func ReadScraps(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading notebook: %w", err)
	}

	var nb rawNotebook
	if err := json.Unmarshal(b, &nb); err != nil {
		return nil, fmt.Errorf("decoding notebook %s: %w", path, err)
	}

	scraps := make(map[string]any)
	for _, cell := range nb.Cells {
		for _, out := range cell.Outputs {
			raw, ok := out.Data[scrapMIME]
			if !ok {
				continue
			}
			var scrap scrapPayload
			if err := json.Unmarshal(raw, &scrap); err != nil || scrap.Name == "" {
				continue
			}
			scraps[scrap.Name] = scrap.Data
		}
	}
	return scraps, nil
}
