package catalog

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// Entry is one API row parsed from the public-apis README table.
type Entry struct {
	Name        string
	URL         string
	Description string
}

// mdLink captures the text and target of the first markdown link in a cell.
var mdLink = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)

// ParseReadme extracts API rows from the markdown tables in r.
//
// A row looks like:
//
//	| [Cat Facts](https://catfact.ninja) | Daily cat facts | No | Yes | No |
//
// Header separators ("|---", "|:---") and any row without at least five
// cells, without a link in the first cell, or whose link is not http(s)
// are skipped. "Back to Index" navigation text is not a description.
func ParseReadme(r io.Reader) ([]Entry, error) {
	var entries []Entry

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "|") {
			continue
		}
		if strings.HasPrefix(line, "|:---") || strings.HasPrefix(line, "|---") {
			continue
		}
		if e, ok := parseRow(line); ok {
			entries = append(entries, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func parseRow(line string) (Entry, bool) {
	// The leading "|" yields an empty first element, so five cells need six parts.
	cols := strings.Split(line, "|")
	if len(cols) < 6 {
		return Entry{}, false
	}

	m := mdLink.FindStringSubmatch(strings.TrimSpace(cols[1]))
	if m == nil {
		return Entry{}, false
	}
	name, url := m[1], m[2]
	if name == "" {
		name = "Untitled"
	}
	if !strings.HasPrefix(url, "http") {
		return Entry{}, false
	}

	desc := strings.TrimSpace(cols[2])
	if strings.Contains(desc, "Back to Index") {
		desc = ""
	}

	return Entry{Name: name, URL: url, Description: desc}, true
}
