package utils

import (
	"regexp"
	"strings"
)

// DefaultWidth is the column count of a 80mm printer using font A.
const DefaultWidth = 42

// ESC/POS sequences emitted by Render.
const (
	CenterOn     = "\x1ba\x01"
	CenterOff    = "\x1ba\x00"
	DoubleOn     = "\x1d!\x11"
	DoubleOff    = "\x1d!\x00"
	BoldOn       = "\x1bE\x01"
	BoldOff      = "\x1bE\x00"
	UnderlineOn  = "\x1b-\x01"
	UnderlineOff = "\x1b-\x00"
	InitPrinter  = "\x1b@"
	FeedAndCut   = "\x1bd\x03\x1dVA\x00"
)

type segmentKind int

const (
	segText segmentKind = iota // markup text, laid out at the end
	segCode                    // control sequence, takes no columns
	segRule                    // separator line
)

type segment struct {
	kind segmentKind
	text string
}

type construct struct {
	pattern *regexp.Regexp
	on, off string
}

var constructs = []construct{
	{regexp.MustCompile(`(?s)\[center\](.*?)\[/center\]`), CenterOn, CenterOff},
	{regexp.MustCompile(`(?s)\[double\](.*?)\[/double\]`), DoubleOn, DoubleOff},
	{regexp.MustCompile(`(?s)\*\*(.+?)\*\*`), BoldOn, BoldOff},
	{regexp.MustCompile(`(?s)__(.+?)__`), UnderlineOn, UnderlineOff},
}

const separatorTag = "[separator]"

// WordWrap breaks text into lines no wider than width without ever splitting
// a word. Literal "\n" escapes are treated as line breaks.
func WordWrap(text string, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	paragraphs := strings.Split(unescapeBreaks(text), "\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		out = append(out, wrapParagraph(p, width))
	}
	return strings.Join(out, "\n")
}

func wrapParagraph(p string, width int) string {
	words := strings.Fields(p)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if runeLen(line)+1+runeLen(w) > width {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

// Render converts ticket markup into text interleaved with ESC/POS codes.
// Words are packed on lines no wider than width; double-size glyphs take two
// columns. Unterminated tags are printed literally.
func Render(markup string, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	segs := []segment{{kind: segText, text: unescapeBreaks(markup)}}
	for _, c := range constructs {
		segs = applyConstruct(segs, c)
	}
	segs = applySeparator(segs)

	l := &layout{width: width, scale: 1}
	for _, s := range segs {
		switch s.kind {
		case segCode:
			l.code(s.text)
		case segRule:
			l.rule()
		default:
			l.text(s.text)
		}
	}
	return l.finish()
}

func applyConstruct(segs []segment, c construct) []segment {
	out := make([]segment, 0, len(segs))
	for _, s := range segs {
		if s.kind != segText {
			out = append(out, s)
			continue
		}
		rest := s.text
		for {
			loc := c.pattern.FindStringSubmatchIndex(rest)
			if loc == nil {
				break
			}
			if loc[0] > 0 {
				out = append(out, segment{kind: segText, text: rest[:loc[0]]})
			}
			out = append(out,
				segment{kind: segCode, text: c.on},
				segment{kind: segText, text: rest[loc[2]:loc[3]]},
				segment{kind: segCode, text: c.off},
			)
			rest = rest[loc[1]:]
		}
		if rest != "" {
			out = append(out, segment{kind: segText, text: rest})
		}
	}
	return out
}

func applySeparator(segs []segment) []segment {
	out := make([]segment, 0, len(segs))
	for _, s := range segs {
		if s.kind != segText || !strings.Contains(s.text, separatorTag) {
			out = append(out, s)
			continue
		}
		parts := strings.Split(s.text, separatorTag)
		for i, p := range parts {
			if i > 0 {
				out = append(out, segment{kind: segRule})
			}
			if p != "" {
				out = append(out, segment{kind: segText, text: p})
			}
		}
	}
	return out
}

// layout packs words onto lines across segment boundaries. The column
// carries over from one segment to the next; control codes take no space.
type layout struct {
	out   strings.Builder
	width int
	col   int
	scale int

	// space owed before the next word on the current line, in columns
	space int

	// codes emitted after the owed space, written once the next word is placed
	pending strings.Builder
}

func (l *layout) code(c string) {
	switch c {
	case DoubleOn:
		l.scale = 2
	case DoubleOff:
		l.scale = 1
	}
	if l.space > 0 {
		l.pending.WriteString(c)
		return
	}
	l.out.WriteString(c)
}

func (l *layout) text(s string) {
	for i, para := range strings.Split(s, "\n") {
		if i > 0 {
			l.newline()
		}
		if startsWithBlank(para) {
			l.owe()
		}
		for j, w := range strings.Fields(para) {
			if j > 0 {
				l.owe()
			}
			l.word(w)
		}
		if endsWithBlank(para) {
			l.owe()
		}
	}
}

func (l *layout) owe() {
	if l.col > 0 && l.space == 0 {
		l.space = l.scale
	}
}

// word places w on the current line, breaking first when a separated word
// would overflow. A word glued to the previous one is never split from it.
func (l *layout) word(w string) {
	n := runeLen(w) * l.scale
	switch {
	case l.space > 0 && l.col+l.space+n > l.width:
		l.out.WriteByte('\n')
		l.col = 0
	case l.space > 0:
		l.out.WriteByte(' ')
		l.col += l.space
	}
	l.space = 0
	l.flush()
	l.out.WriteString(w)
	l.col += n
}

func (l *layout) newline() {
	l.space = 0
	l.flush()
	l.out.WriteByte('\n')
	l.col = 0
}

func (l *layout) rule() {
	l.space = 0
	l.flush()
	if l.col > 0 {
		l.out.WriteByte('\n')
	}
	l.out.WriteString(strings.Repeat("-", l.width))
	l.out.WriteByte('\n')
	l.col = 0
}

func (l *layout) flush() {
	l.out.WriteString(l.pending.String())
	l.pending.Reset()
}

func (l *layout) finish() string {
	l.space = 0
	l.flush()
	return l.out.String()
}

var visualTokens = strings.NewReplacer(
	CenterOn, "<C>", CenterOff, "</C>",
	DoubleOn, "<D>", DoubleOff, "</D>",
	BoldOn, "<B>", BoldOff, "</B>",
	UnderlineOn, "<U>", UnderlineOff, "</U>",
	InitPrinter, "<INIT>", FeedAndCut, "<CUT>",
)

// Visualize replaces known control sequences in rendered output with
// readable tokens.
func Visualize(rendered string) string {
	return visualTokens.Replace(rendered)
}

func unescapeBreaks(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

func runeLen(s string) int {
	return len([]rune(s))
}

func startsWithBlank(s string) bool {
	return s != "" && (s[0] == ' ' || s[0] == '\t')
}

func endsWithBlank(s string) bool {
	return s != "" && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t')
}
