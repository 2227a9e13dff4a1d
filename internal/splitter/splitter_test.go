package splitter

import (
	"strings"
	"testing"
)

func TestSplitWithBothMarkers(t *testing.T) {
	raw := "Title: Demo Book\nAuthor: Jane Doe\n" +
		"*** START OF THE PROJECT GUTENBERG EBOOK DEMO ***\n" +
		"Body line one.\nBody line two.\n" +
		"*** END OF THE PROJECT GUTENBERG EBOOK DEMO ***\n" +
		"Trailer text."

	header, body := Split([]byte(raw))

	if !strings.Contains(header, "Title: Demo Book") {
		t.Fatalf("header missing title line: %q", header)
	}
	if strings.Contains(header, "START OF") {
		t.Fatalf("header should not contain the START marker: %q", header)
	}
	if !strings.HasPrefix(body, "*** START OF") {
		t.Fatalf("body should start at the START line: %q", body)
	}
	if strings.Contains(body, "Trailer text") {
		t.Fatalf("body should not include text after END marker: %q", body)
	}
	if strings.Contains(body, "END OF") {
		t.Fatalf("body should exclude the END line itself: %q", body)
	}
}

func TestSplitWithoutStartMarker(t *testing.T) {
	raw := "Just plain text, no markers at all."
	header, body := Split([]byte(raw))
	if header != "" {
		t.Fatalf("expected empty header, got %q", header)
	}
	if body != raw {
		t.Fatalf("expected body to equal the full text, got %q", body)
	}
}

func TestSplitStartWithoutEnd(t *testing.T) {
	raw := "Header stuff\n*** START OF EBOOK ***\nRest of the content, no end marker."
	header, body := Split([]byte(raw))
	if header != "Header stuff" {
		t.Fatalf("unexpected header: %q", header)
	}
	if !strings.HasPrefix(body, "*** START OF EBOOK ***") {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestExtractMetadata(t *testing.T) {
	header := "Title: The Great Test\r\nAuthor: A. Writer\nRelease Date: January 1, 2001 [eBook #12345]\nLanguage: English\n"
	md := ExtractMetadata(header)
	if md.Title == nil || *md.Title != "The Great Test" {
		t.Fatalf("unexpected title: %v", md.Title)
	}
	if md.Author == nil || *md.Author != "A. Writer" {
		t.Fatalf("unexpected author: %v", md.Author)
	}
	if md.ReleaseDate == nil || *md.ReleaseDate != "January 1, 2001" {
		t.Fatalf("unexpected release date: %v", md.ReleaseDate)
	}
	if md.Language == nil || *md.Language != "English" {
		t.Fatalf("unexpected language: %v", md.Language)
	}
}

func TestExtractMetadataMissingFieldsAreNil(t *testing.T) {
	md := ExtractMetadata("No recognizable fields here.")
	if md.Title != nil || md.Author != nil || md.ReleaseDate != nil || md.Language != nil {
		t.Fatalf("expected all nil fields, got %+v", md)
	}
}
