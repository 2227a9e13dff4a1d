// Package splitter divides a raw document into a metadata header and an
// indexable body using the literal START/END markers Project Gutenberg
// texts carry, and extracts a handful of metadata fields from the header.
package splitter

import (
	"regexp"
	"strings"
)

const (
	startMarker = "*** start of"
	endMarker   = "*** end of"
)

// Split finds the first line containing startMarker (case-insensitive) and
// the first subsequent line containing endMarker. header is everything
// before the START line; body runs from the START line up to (excluding)
// the END line. If START is absent, header is empty and body is the whole
// text.
func Split(raw []byte) (header, body string) {
	text := string(raw)
	start := indexOfLineContaining(text, startMarker, 0)
	end := -1
	if start >= 0 {
		end = indexOfLineContaining(text, endMarker, start)
	}

	if start < 0 {
		return "", strings.TrimSpace(text)
	}

	header = strings.TrimSpace(text[:start])
	if end >= 0 && end > start {
		body = strings.TrimSpace(text[start:end])
	} else {
		body = strings.TrimSpace(text[start:])
	}
	return header, body
}

// indexOfLineContaining returns the byte offset of the start of the first
// line at or after fromOffset whose contents contain marker
// (case-insensitive), or -1 if none does.
func indexOfLineContaining(text, marker string, fromOffset int) int {
	lowerMarker := strings.ToLower(marker)
	from := fromOffset
	for from < len(text) {
		nl := strings.IndexByte(text[from:], '\n')
		var lineEnd int
		if nl < 0 {
			lineEnd = len(text)
		} else {
			lineEnd = from + nl
		}
		line := strings.ToLower(text[from:lineEnd])
		if strings.Contains(line, lowerMarker) {
			return from
		}
		if nl < 0 {
			break
		}
		from = lineEnd + 1
	}
	return -1
}

var (
	titleRe   = regexp.MustCompile(`(?im)^\s*Title:\s*(.+?)\s*$`)
	authorRe  = regexp.MustCompile(`(?im)^\s*Author:\s*(.+?)\s*$`)
	releaseRe = regexp.MustCompile(`(?im)^\s*Release Date:\s*(.+?)\s*$`)
	langRe    = regexp.MustCompile(`(?im)^\s*Language:\s*(.+?)\s*$`)
	ebookTag  = regexp.MustCompile(`(?i)\s*\[eBook\s*#\s*\d+\]\s*$`)
)

// Metadata holds the fields extracted from a document's header.
type Metadata struct {
	Title       *string
	Author      *string
	ReleaseDate *string
	Language    *string
}

// ExtractMetadata scans header for Title/Author/Release Date/Language
// fields. A missing or empty field is left nil. Release Date values have
// a trailing "[eBook #NNN]" tag stripped.
func ExtractMetadata(header string) Metadata {
	return Metadata{
		Title:       extractField(titleRe, header),
		Author:      extractField(authorRe, header),
		ReleaseDate: cleanReleaseDate(extractField(releaseRe, header)),
		Language:    extractField(langRe, header),
	}
}

func extractField(re *regexp.Regexp, header string) *string {
	m := re.FindStringSubmatch(header)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return nil
	}
	return &v
}

func cleanReleaseDate(v *string) *string {
	if v == nil {
		return nil
	}
	cleaned := strings.TrimSpace(ebookTag.ReplaceAllString(*v, ""))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
