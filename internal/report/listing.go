package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const filenamePrefix = "inspection_report_"

// ReportFile is an exported report found in an output directory
type ReportFile struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// ListReports returns the exported reports in dir, newest first. query
// filters by project name words; in-progress exports are never listed.
func ListReports(dir, query string) ([]ReportFile, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read directory: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	var out []ReportFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isReportFile(name) || !matchesQuery(name, query) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, ReportFile{
			Name:     name,
			Path:     filepath.Join(dir, name),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Modified.Equal(out[j].Modified) {
			return out[i].Modified.After(out[j].Modified)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func isReportFile(name string) bool {
	return strings.HasPrefix(name, filenamePrefix) && strings.HasSuffix(strings.ToLower(name), ".pdf")
}

// matchesQuery requires every query word to appear in some word of the
// project part of the file name
func matchesQuery(filename, query string) bool {
	if query == "" {
		return true
	}
	project := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(filename, filenamePrefix), ".pdf"))
	if strings.Contains(project, query) {
		return true
	}

	words := splitIntoWords(project)
	for _, q := range splitIntoWords(query) {
		found := false
		for _, w := range words {
			if strings.Contains(w, q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func splitIntoWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ' ', '_', '-', '.', '(', ')', '[', ']':
			return true
		}
		return false
	})
}
