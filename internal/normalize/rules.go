package normalize

import "regexp"

// rule finds a span and rewrites only inside it. A nil inner replaces the
// whole span with repl.
type rule struct {
	name  string
	find  *regexp.Regexp
	inner *regexp.Regexp
	repl  string
}

func (r rule) apply(text string) string {
	return r.find.ReplaceAllStringFunc(text, func(span string) string {
		if r.inner == nil {
			return r.repl
		}
		return r.inner.ReplaceAllString(span, r.repl)
	})
}

// word matches a Unicode letter, digit or underscore.
const word = `[\p{L}\p{N}_]`

func newRule(name, find, inner, repl string) rule {
	r := rule{name: name, find: regexp.MustCompile(find), repl: repl}
	if inner != "" {
		r.inner = regexp.MustCompile(inner)
	}
	return r
}

// rules is stage 3. Order matters: the contraction and comma rules expect
// citation markers to be gone, and the mid-sentence punctuation rules run last.
var rules = []rule{
	newRule("citation", `\s*\[\d+\]`, "", ""),
	newRule("currency", `\$ \d+(?:\.\d+)?`, ` `, ""),
	newRule("clock", `\d{1,2} : \d{2}[ap]m`, ` `, ""),

	newRule("contraction 's", word+`+ 's`, ` 's`, "'s"),
	newRule("contraction 're", word+`+ 're`, ` 're`, "'re"),
	newRule("contraction 'm", word+`+ 'm`, ` 'm`, "'m"),
	newRule("elision L'", `L '`+word+`+`, `L '`, "L'"),
	newRule("contraction 'll", word+`+ 'll`, ` 'll`, "'ll"),
	newRule("contraction 'd", word+`+ 'd`, ` 'd`, "'d"),
	newRule("contraction 't", word+`+ 't`, ` 't`, "'t"),

	newRule("space before comma", word+`+ ,`, ` ,`, ","),
	newRule("hyphen break", word+`- `+word, ` `, ""),

	newRule("final period", ` \.$`, "", "."),
	newRule("final question", ` \?$`, "", "?"),
	newRule("final exclamation", ` !$`, "", "!"),
	newRule("final semicolon", ` ;$`, "", ";"),

	newRule("mid period", word+` +\. +`, ` +\. +`, ". "),
	newRule("mid exclamation", word+` +! +`, ` +! +`, "! "),
	newRule("mid semicolon", word+` +; +`, ` +; +`, "; "),
	newRule("mid question", word+` +\? +`, ` +\? +`, "? "),
}

func applyRules(text string) string {
	for _, r := range rules {
		text = r.apply(text)
	}
	return text
}
