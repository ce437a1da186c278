package utils

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
)

type codePage struct {
	table    *charmap.Charmap
	selector byte // n of ESC t n
}

var codePages = map[string]codePage{
	"cp437":  {charmap.CodePage437, 0},
	"cp850":  {charmap.CodePage850, 2},
	"cp858":  {charmap.CodePage858, 19},
	"cp1252": {charmap.Windows1252, 16},
}

var profiles = map[string]model.Profile{
	"default":  {Name: "default", Columns: DefaultWidth, CodePage: "cp437"},
	"TM-T88II": {Name: "TM-T88II", Columns: 42, CodePage: "cp437"},
	"TM-T88V":  {Name: "TM-T88V", Columns: 42, CodePage: "cp858"},
	"TM-T20":   {Name: "TM-T20", Columns: 48, CodePage: "cp437"},
	"TM-P80":   {Name: "TM-P80", Columns: 42, CodePage: "cp437"},
}

// LookupProfile returns the named printer profile, falling back to "default"
// for unknown names.
func LookupProfile(name string) (model.Profile, bool) {
	if p, ok := profiles[name]; ok {
		return p, true
	}
	return profiles["default"], false
}

// EncodeForPrinter converts UTF-8 text to the printer code page and prefixes
// it with the printer reset and code table selection. Runes missing from the
// code page are printed as '?'.
func EncodeForPrinter(text, page string) ([]byte, error) {
	cp, ok := codePages[strings.ToLower(page)]
	if !ok {
		return nil, fmt.Errorf("unsupported code page %q", page)
	}

	out := make([]byte, 0, len(text)+5)
	out = append(out, InitPrinter...)
	out = append(out, 0x1B, 't', cp.selector)
	for _, r := range text {
		if r < 0x80 {
			out = append(out, byte(r))
			continue
		}
		b, ok := cp.table.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out, nil
}
