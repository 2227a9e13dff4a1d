package datalake

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
)

// logEntry is one line of the append-only ingestions.log: the record of a
// successful ingest used to answer "is this book locally present?" and to
// replay the set of known books.
type logEntry struct {
	Timestamp time.Time
	BookID    int
	Path      string
	Bytes     int
}

// logLineRe matches "<ISO-8601-local-datetime>;book=<int>;path=<rel>;bytes=<int>".
// Lines that don't match (including a partial final line left by a crash
// mid-append) are skipped rather than treated as a parse error.
var logLineRe = regexp.MustCompile(`^(\S+);book=(\d+);path=([^;]+);bytes=(\d+)$`)

func formatLogLine(e logEntry) string {
	return fmt.Sprintf("%s;book=%d;path=%s;bytes=%d\n",
		e.Timestamp.Format(time.RFC3339), e.BookID, e.Path, e.Bytes)
}

func parseLogLine(line string) (logEntry, bool) {
	m := logLineRe.FindStringSubmatch(line)
	if m == nil {
		return logEntry{}, false
	}
	ts, err := time.Parse(time.RFC3339, m[1])
	if err != nil {
		return logEntry{}, false
	}
	bookID, err := strconv.Atoi(m[2])
	if err != nil {
		return logEntry{}, false
	}
	size, err := strconv.Atoi(m[4])
	if err != nil {
		return logEntry{}, false
	}
	return logEntry{Timestamp: ts, BookID: bookID, Path: m[3], Bytes: size}, true
}

// appendLogLine appends one line to the ingestions log. Sequential append
// is the only write mode used, so ordering is preserved across crashes and
// a torn final line is simply skipped by the reader.
func appendLogLine(path string, e logEntry) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening ingestion log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(formatLogLine(e)); err != nil {
		return fmt.Errorf("appending to ingestion log: %w", err)
	}
	return nil
}

// readLogEntries streams the log file, skipping malformed lines (including
// a truncated final line from a crash mid-append).
func readLogEntries(path string) ([]logEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ingestion log: %w", err)
	}
	defer f.Close()

	var entries []logEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		entry, ok := parseLogLine(scanner.Text())
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("scanning ingestion log: %w", err)
	}
	return entries, nil
}
