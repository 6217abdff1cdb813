package catalog

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"catalog-service/internal/models"
)

var csvHeader = []string{"ID", "Name", "Slug", "Description"}

// renderExport serializes the rows as CSV or JSON and returns the body with
// its content type. CSV quoting is delegated to encoding/csv so names like
// `Tax, LLC` survive round trips.
func renderExport(rows []models.Service, format string) ([]byte, string, error) {
	switch format {
	case "csv", "":
		body, err := renderCSV(rows)
		return body, "text/csv", err
	case "json":
		body, err := json.Marshal(rows)
		if err != nil {
			return nil, "", fmt.Errorf("export json: %w", err)
		}
		return body, "application/json", nil
	default:
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
}

func renderCSV(rows []models.Service) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	for i := range rows {
		svc := &rows[i]
		record := []string{svc.ID, svc.Name, svc.Slug, strDeref(svc.Description)}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("export csv: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}
	return buf.Bytes(), nil
}

func strDeref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
