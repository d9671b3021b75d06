package corpus

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Info summarizes an inspected corpus PDF.
type Info struct {
	Pages       int
	TextBytes   int
	SectionRefs []string
}

// maxSectionRefs caps how many distinct references a single document
// contributes; ordinances repeat their own numbering constantly.
const maxSectionRefs = 64

var sectionRefPattern = regexp.MustCompile(`(?i)(?:section|sec\.|§)\s*(\d+(?:\.\d+){0,2})`)

// Inspect opens a PDF and reports page count, extractable text size, and
// the ordinance section numbers it cites. Pages that fail to extract are
// skipped, matching how uploads tolerate partially scanned documents.
func Inspect(content []byte, maxSize int64) (Info, error) {
	if maxSize > 0 && int64(len(content)) > maxSize {
		return Info{}, fmt.Errorf("file too large: %d bytes (max %d)", len(content), maxSize)
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Info{}, fmt.Errorf("not a readable PDF: %w", err)
	}

	info := Info{Pages: reader.NumPage()}

	var textBuilder strings.Builder
	for pageNum := 1; pageNum <= info.Pages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	text := textBuilder.String()
	info.TextBytes = len(text)
	info.SectionRefs = SectionRefs(text)
	return info, nil
}

// SectionRefs extracts distinct ordinance section numbers ("Section 3.2",
// "§ 17.28.010") in order of first appearance.
func SectionRefs(text string) []string {
	matches := sectionRefPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var refs []string
	for _, m := range matches {
		ref := m[1]
		if seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
		if len(refs) == maxSectionRefs {
			break
		}
	}
	return refs
}
