// Package corpus locates and inspects the regulatory PDFs the chatbot
// answers from: mailed letters and city ordinances, plus the statewide ADU
// handbook that takes precedence over everything else.
package corpus

import (
	"os"
	"path/filepath"
	"strings"
)

type Category string

const (
	CategoryLetter    Category = "letter"
	CategoryOrdinance Category = "ordinance"
)

// File is one corpus PDF found on disk.
type File struct {
	Path      string
	Filename  string
	Category  Category
	Statewide bool
}

// Scan walks the letters and ordinances directories for PDFs. The statewide
// handbook is ordered first, then letters, then the remaining ordinance
// files; upload order decides precedence on the hosted side. Missing
// directories are skipped.
func Scan(lettersDir, ordinancesDir, handbook string) []File {
	var files []File

	for _, name := range listPDFs(lettersDir) {
		files = append(files, File{
			Path:     filepath.Join(lettersDir, name),
			Filename: name,
			Category: CategoryLetter,
		})
	}

	statewidePath := filepath.Join(ordinancesDir, handbook)
	if _, err := os.Stat(statewidePath); err == nil {
		files = append([]File{{
			Path:      statewidePath,
			Filename:  handbook,
			Category:  CategoryOrdinance,
			Statewide: true,
		}}, files...)
	}

	for _, name := range listPDFs(ordinancesDir) {
		if name == handbook {
			continue
		}
		files = append(files, File{
			Path:     filepath.Join(ordinancesDir, name),
			Filename: name,
			Category: CategoryOrdinance,
		})
	}

	return files
}

func listPDFs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	return names
}
