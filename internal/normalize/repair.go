package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// mojibake matches UTF-8 text that was decoded as Windows-1252: a lead byte
// rendered as Â..ô followed by one to three continuation bytes, which cp1252
// renders either as U+00A0..U+00BF or as the punctuation block at 0x80..0x9F.
var mojibake = regexp.MustCompile(`[\x{00C2}-\x{00F4}][\x{00A0}-\x{00BF}€‚ƒ„…†‡ˆ‰Š‹ŒŽ‘’“”•–—˜™š›œžŸ]{1,3}`)

var charReplacer = strings.NewReplacer(
	// latin ligatures
	"\ufb00", "ff", "\ufb01", "fi", "\ufb02", "fl", "\ufb03", "ffi", "\ufb04", "ffl", "\ufb05", "ft", "\ufb06", "st",
	// curly quotes
	"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u201b", "'",
	"\u201c", `"`, "\u201d", `"`, "\u201e", `"`, "\u201f", `"`,
	// non-breaking and zero-width spaces
	"\u00a0", " ", "\u202f", " ", "\u200b", "", "\ufeff", "",
)

// repairCharacters undoes encoding damage and maps typographic characters
// to their plain forms.
func repairCharacters(text string) string {
	text = fixMojibake(text)
	text = norm.NFC.String(text)
	text = charReplacer.Replace(text)
	return stripControl(text)
}

// fixMojibake re-encodes each suspicious span as cp1252 and keeps the
// result only when the bytes form valid UTF-8.
func fixMojibake(text string) string {
	if !mojibake.MatchString(text) {
		return text
	}
	encoder := charmap.Windows1252.NewEncoder()
	return mojibake.ReplaceAllStringFunc(text, func(span string) string {
		raw, err := encoder.String(span)
		if err != nil || !utf8.ValidString(raw) {
			return span
		}
		return raw
	})
}

func stripControl(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, text)
}
