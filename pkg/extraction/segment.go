package extraction

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/openveritas/veritas/pkg/store"
)

// headingPattern recognizes Markdown-style ATX headings (# .. ######) only;
// numbered section lines such as "1. Introduction" are treated as ordinary
// paragraph text.
var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// abstractHeadingPattern flags the distinguished "abstract" fragment for
// academic works, checked case-insensitively against a heading's own text.
var abstractHeadingPattern = regexp.MustCompile(`(?i)^abstract$`)

// Segment walks page text into a heading-tracked fragment list, preserving
// a stable position index and the heading-path stack active at each
// fragment's start. Blank lines separate paragraphs within a section; a
// paragraph whose immediate heading is literally "Abstract" is marked as
// the distinguished abstract fragment.
func Segment(pageText string) []store.FragmentInput {
	var (
		fragments   []store.FragmentInput
		headingPath []string
		paragraph   strings.Builder
		position    int
		underAbstract bool
	)

	flush := func() {
		text := strings.TrimSpace(paragraph.String())
		paragraph.Reset()
		if text == "" {
			return
		}
		fragments = append(fragments, store.FragmentInput{
			Text:          text,
			HeadingPath:   append([]string(nil), headingPath...),
			PositionIndex: position,
			IsAbstract:    underAbstract,
		})
		position++
	}

	scanner := bufio.NewScanner(strings.NewReader(pageText))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flush()
			level := len(m[1])
			title := strings.TrimSpace(m[2])
			if level-1 <= len(headingPath) {
				headingPath = headingPath[:level-1]
			}
			headingPath = append(headingPath, title)
			underAbstract = abstractHeadingPattern.MatchString(title)
			continue
		}

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if paragraph.Len() > 0 {
			paragraph.WriteByte(' ')
		}
		paragraph.WriteString(strings.TrimSpace(line))
	}
	flush()

	return fragments
}
