// Package markup translates the admin-facing bracket-link notation into the
// HTML subset Telegram accepts. Plain text passes through with `&`, `<` and
// `>` escaped; `label[url]` becomes an anchor with the label as display text.
package markup

import (
	"regexp"
	"strings"
)

// bracketRE matches a bracketed http(s) target. The label is everything on
// the line between the previous match (or line start) and the opening
// bracket; anything else in brackets is left as literal text.
var bracketRE = regexp.MustCompile(`\[(https?://[^\s\[\]]+)\]`)

// Render converts raw text into Telegram-safe HTML. Each `label[url]`
// occurrence becomes `<a href="url">label</a>` with the label trimmed; all
// other text is escaped. Unmatched brackets or non-http targets degrade to
// escaped literal text. Render never fails.
func Render(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = renderLine(line)
	}
	return strings.Join(lines, "\n")
}

func renderLine(line string) string {
	locs := bracketRE.FindAllStringSubmatchIndex(line, -1)
	if len(locs) == 0 {
		return escape(line)
	}

	var b strings.Builder
	prev := 0
	for _, loc := range locs {
		label := strings.TrimSpace(line[prev:loc[0]])
		url := line[loc[2]:loc[3]]
		if label == "" {
			// A bare [url] has nothing to anchor; keep the text as-is.
			b.WriteString(escape(line[prev:loc[1]]))
			prev = loc[1]
			continue
		}
		b.WriteString(`<a href="`)
		b.WriteString(escape(url))
		b.WriteString(`">`)
		b.WriteString(escape(label))
		b.WriteString(`</a>`)
		prev = loc[1]
	}
	b.WriteString(escape(line[prev:]))
	return b.String()
}

// escape covers the three characters Telegram's HTML mode requires.
func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
