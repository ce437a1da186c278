package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"fits", "one two", 10, "one two"},
		{"exact width", "one two three", 7, "one two\nthree"},
		{"long word kept whole", "abcdefghijkl xy", 5, "abcdefghijkl\nxy"},
		{"escaped newline", `a\nb`, 10, "a\nb"},
		{"empty paragraph kept", "a\n\nb", 10, "a\n\nb"},
		{"collapses spaces", "a    b", 10, "a b"},
		{"zero width uses default", strings.Repeat("x ", 3), 0, "x x x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WordWrap(tt.text, tt.width))
		})
	}
}

func TestWordWrapNeverSplitsWords(t *testing.T) {
	text := "the quick brown fox jumps over the extraordinarily lazy dog"
	for width := 1; width <= 20; width++ {
		wrapped := WordWrap(text, width)
		assert.Equal(t, strings.Fields(text), strings.Fields(wrapped), "width %d", width)
		for _, line := range strings.Split(wrapped, "\n") {
			if strings.Contains(line, " ") {
				assert.LessOrEqual(t, len(line), width, "width %d line %q", width, line)
			}
		}
	}
}

func TestRenderTicket(t *testing.T) {
	got := Render("**HELLO**\n[center]Thank you[/center]\n[separator]", 10)

	want := BoldOn + "HELLO" + BoldOff + "\n" +
		CenterOn + "Thank you" + CenterOff + "\n" +
		"----------\n"
	assert.Equal(t, want, got)
}

func TestRenderConstructs(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		width  int
		want   string
	}{
		{"bold", "**x**", 10, BoldOn + "x" + BoldOff},
		{"underline", "__x__", 10, UnderlineOn + "x" + UnderlineOff},
		{"double wraps at half width", "[double]aaa bbb ccc[/double]", 10, DoubleOn + "aaa\nbbb\nccc" + DoubleOff},
		{"separator", "[separator]", 5, "-----\n"},
		{"center wraps", "[center]aaa bbb[/center]", 5, CenterOn + "aaa\nbbb" + CenterOff},
		{"nested", "[center]**Hi there**[/center]", 42, CenterOn + BoldOn + "Hi there" + BoldOff + CenterOff},
		{"inline keeps spaces", "Hi **you** there", 42, "Hi " + BoldOn + "you" + BoldOff + " there"},
		{"unterminated bold", "**bold", 42, "**bold"},
		{"unterminated center", "[center]open", 42, "[center]open"},
		{"plain text wrapped", "aaa bbb ccc", 7, "aaa bbb\nccc"},
		{"double nested in center", "[center][double]aaa bbb ccc ddd[/double][/center]", 10, CenterOn + DoubleOn + "aaa\nbbb\nccc\nddd" + DoubleOff + CenterOff},
		{"double nested in center fits two", "[center][double]aaa bbb ccc ddd[/double][/center]", 14, CenterOn + DoubleOn + "aaa bbb\nccc ddd" + DoubleOff + CenterOff},
		{"wrap continues after center", "[center]Thank you[/center] and more words here", 10, CenterOn + "Thank you" + CenterOff + "\nand more\nwords here"},
		{"wrap across bold", "aaaa **bbbb** cccc", 10, "aaaa " + BoldOn + "bbbb" + BoldOff + "\ncccc"},
		{"break before formatted word", "aaaaaa **bbbbb**", 10, "aaaaaa\n" + BoldOn + "bbbbb" + BoldOff},
		{"separator starts a new line", "abc[separator]", 5, "abc\n-----\n"},
		{"glued words stay together", "**ab**cd", 3, BoldOn + "ab" + BoldOff + "cd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.markup, tt.width))
		})
	}
}

var stripCodes = strings.NewReplacer(
	CenterOn, "", CenterOff, "",
	DoubleOn, "", DoubleOff, "",
	BoldOn, "", BoldOff, "",
	UnderlineOn, "", UnderlineOff, "",
)

func TestRenderLinesFitWidth(t *testing.T) {
	inputs := []string{
		"[center]Thank you[/center] and more words here",
		"aaaa **bbbb** cccc",
		"**one two** three __four five__ six [center]seven eight[/center] nine",
		"Ticket __A 12__ for **desk 3** please wait [separator]thanks for **your** patience",
		"a **b** c __d__ e **f** g __h__ i [center]j k l[/center] m n o p",
	}

	for _, in := range inputs {
		for width := 8; width <= 16; width++ {
			out := stripCodes.Replace(Render(in, width))
			for _, line := range strings.Split(out, "\n") {
				assert.LessOrEqual(t, len(line), width, "input %q width %d line %q", in, width, line)
			}
			assert.Equal(t, strings.Fields(strings.NewReplacer("**", "", "__", "", "[center]", "", "[/center]", "", "[separator]", "").Replace(in)),
				strings.Fields(strings.ReplaceAll(out, strings.Repeat("-", width), "")), "input %q width %d", in, width)
		}
	}
}

func TestRenderDoubleCountsTwoColumns(t *testing.T) {
	for width := 8; width <= 20; width++ {
		out := Render("[center][double]aaa bbb ccc ddd[/double][/center] after", width)
		inner := out[strings.Index(out, DoubleOn)+len(DoubleOn) : strings.Index(out, DoubleOff)]
		for _, line := range strings.Split(inner, "\n") {
			assert.LessOrEqual(t, 2*len(line), width, "width %d line %q", width, line)
		}
	}
}

func TestRenderDefaultWidth(t *testing.T) {
	assert.Equal(t, strings.Repeat("-", DefaultWidth)+"\n", Render("[separator]", 0))
}

func TestVisualize(t *testing.T) {
	rendered := Render("**HELLO**\n[center]__Hi__[/center]", 42)
	assert.Equal(t, "<B>HELLO</B>\n<C><U>Hi</U></C>", Visualize(rendered))
	assert.Equal(t, "<INIT>x<CUT>", Visualize(InitPrinter+"x"+FeedAndCut))
	assert.Equal(t, "<D>big</D>", Visualize(Render("[double]big[/double]", 42)))
}
