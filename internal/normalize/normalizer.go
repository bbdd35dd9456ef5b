// Package normalize cleans extracted text before it is segmented and chunked.
//
// The pipeline has four ordered stages:
//
//  1. line filtering (empty lines, page numbers, boilerplate sentences)
//  2. character repair (mojibake, ligatures, quotes, control characters)
//  3. token-spacing rules undoing tokenizer and OCR artifacts
//  4. removal of legal-notice and table-of-contents blocks
//
// A Normalizer is immutable after New; per-document boilerplate such as an
// HTML page title is passed on each call instead of being stored.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
)

// maxCleanPasses bounds how often stages 2-4 are re-run looking for a fixed point.
const maxCleanPasses = 4

// Config holds the filter values. Empty patterns disable their stage.
type Config struct {
	IgnoreSentences []string
	NumericNoise    string
	LegalNotice     string
	TableOfContents string
}

// Normalizer applies the cleaning pipeline.
type Normalizer struct {
	ignore  map[string]struct{}
	numeric *regexp.Regexp
	legal   *regexp.Regexp
	toc     *regexp.Regexp
}

// New compiles cfg into a Normalizer.
func New(cfg Config) (*Normalizer, error) {
	n := &Normalizer{ignore: make(map[string]struct{}, len(cfg.IgnoreSentences))}
	for _, s := range cfg.IgnoreSentences {
		if s = strings.TrimSpace(s); s != "" {
			n.ignore[s] = struct{}{}
		}
	}

	var err error
	if n.numeric, err = compileOptional("numeric noise", cfg.NumericNoise); err != nil {
		return nil, err
	}
	if n.legal, err = compileOptional("legal notice", cfg.LegalNotice); err != nil {
		return nil, err
	}
	if n.toc, err = compileOptional("table of contents", cfg.TableOfContents); err != nil {
		return nil, err
	}
	return n, nil
}

func compileOptional(name, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid %s pattern: %w", name, err)
	}
	return re, nil
}

// IsNoise reports whether s is only digits, dots and spaces (page numbers and the like).
// An empty string is noise.
func (n *Normalizer) IsNoise(s string) bool {
	if n.numeric == nil {
		return strings.TrimSpace(s) == ""
	}
	return n.numeric.MatchString(s)
}

// Keep reports whether a single line or cell survives stage 1.
func (n *Normalizer) Keep(line string, extraIgnore ...string) bool {
	line = strings.TrimSpace(line)
	if line == "" || n.IsNoise(line) {
		return false
	}
	if _, ok := n.ignore[line]; ok {
		return false
	}
	for _, extra := range extraIgnore {
		if line == strings.TrimSpace(extra) {
			return false
		}
	}
	return true
}

// FilterLines is stage 1: it drops noise and boilerplate lines and joins
// the survivors with single spaces.
func (n *Normalizer) FilterLines(lines []string, extraIgnore ...string) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if n.Keep(line, extraIgnore...) {
			kept = append(kept, strings.TrimSpace(line))
		}
	}
	return strings.Join(kept, " ")
}

// Clean runs stages 2-4. It repeats until the text stops changing, so
// Clean(Clean(s)) == Clean(s) for any input that settles within the pass bound.
func (n *Normalizer) Clean(text string) string {
	for i := 0; i < maxCleanPasses; i++ {
		next := n.cleanOnce(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func (n *Normalizer) cleanOnce(text string) string {
	// mojibake first: the rules below assume clean Unicode
	text = repairCharacters(text)
	text = applyRules(text)
	text = n.stripBlocks(text)
	return collapseSpaces(text)
}

// Normalize runs the whole pipeline over raw lines.
func (n *Normalizer) Normalize(lines []string, extraIgnore ...string) string {
	return n.Clean(n.FilterLines(lines, extraIgnore...))
}

func (n *Normalizer) stripBlocks(text string) string {
	if n.legal != nil {
		text = n.legal.ReplaceAllString(text, "")
	}
	if n.toc != nil {
		text = n.toc.ReplaceAllString(text, "")
	}
	return text
}

var spaceRun = regexp.MustCompile(`\s+`)

func collapseSpaces(text string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(text, " "))
}
