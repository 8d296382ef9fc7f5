package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultTemplate locates a dataset CSV from its version label.
const DefaultTemplate = "understat_data/Dataset_Version_%s.csv"

// PathForVersion renders a dataset path from a printf-style template.
func PathForVersion(template, version string) string {
	if template == "" {
		template = DefaultTemplate
	}
	return fmt.Sprintf(template, version)
}

// ModTime returns the file modification time in fractional unix seconds.
func ModTime(path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return float64(info.ModTime().UnixNano()) / 1e9, nil
}

// GuessVersionFromName returns the first all-digit "_"-separated token of a file name,
// e.g. "Dataset_Version_7.csv" -> "7".
func GuessVersionFromName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, token := range strings.Split(name, "_") {
		if token != "" && isDigits(token) {
			return token
		}
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
