// Package export provides backup export/import and tabular export for alist-cli.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/robertmeta/alist-cli/model"
)

// TableHeader is the first row of the tabular export.
var TableHeader = []string{"title", "watchDate", "countsTowardMembership", "rating", "addedManually"}

// Document is the full backup: settings plus every record.
type Document struct {
	Settings model.Settings      `json:"settings"`
	Movies   []model.WatchRecord `json:"movies"`
}

// WriteJSON writes a full backup document.
func WriteJSON(w io.Writer, settings model.Settings, movies []model.WatchRecord) error {
	if movies == nil {
		movies = []model.WatchRecord{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(Document{Settings: settings, Movies: movies}); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// ReadJSON reads and validates a backup document.
func ReadJSON(r io.Reader) (*Document, error) {
	doc := &Document{Settings: model.DefaultSettings()}
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to parse export: %w", err)
	}

	if err := doc.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings in export: %w", err)
	}

	seen := make(map[string]bool, len(doc.Movies))
	for i := range doc.Movies {
		m := &doc.Movies[i]
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("invalid movie at index %d: %w", i, err)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("duplicate movie id %q", m.ID)
		}
		seen[m.ID] = true
	}

	return doc, nil
}

// WriteTable writes one comma-separated row per record, header first. Commas
// in titles become spaces; nothing else is quoted or escaped.
func WriteTable(w io.Writer, movies []model.WatchRecord) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(strings.Join(TableHeader, ",") + "\n"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, m := range movies {
		row := []string{
			strings.ReplaceAll(m.Title, ",", " "),
			m.WatchDate.String(),
			strconv.FormatBool(m.CountsTowardMembership),
			formatRating(m.Rating),
			strconv.FormatBool(m.AddedManually),
		}
		if _, err := bw.WriteString(strings.Join(row, ",") + "\n"); err != nil {
			return fmt.Errorf("failed to write row for %q: %w", m.ID, err)
		}
	}

	return bw.Flush()
}

func formatRating(r *float64) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}
