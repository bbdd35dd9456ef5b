package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New(Config{
		IgnoreSentences: []string{"Acme Docs", "https://docs.acme.test/"},
		NumericNoise:    `^[0-9\. ]*$`,
		LegalNotice:     `Legal Notice.*END OF NOTICE\.`,
		TableOfContents: `Contents.*\.\.\. [0-9]+`,
	})
	require.NoError(t, err)
	return n
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(Config{LegalNotice: "Legal(["})
	assert.ErrorContains(t, err, "legal notice")
}

func TestFilterLines(t *testing.T) {
	n := newTestNormalizer(t)

	lines := []string{
		"  Atlas overview  ",
		"",
		"   ",
		"12 . 3",
		"42",
		"Acme Docs",
		"Atlas stores metadata.",
	}

	assert.Equal(t, "Atlas overview Atlas stores metadata.", n.FilterLines(lines))
}

func TestFilterLines_ExtraIgnoreIsPerCall(t *testing.T) {
	n := newTestNormalizer(t)
	lines := []string{"Atlas Admin Guide", "Atlas manages lineage."}

	withTitle := n.FilterLines(lines, "Atlas Admin Guide")
	assert.Equal(t, "Atlas manages lineage.", withTitle)

	// the title must not leak into later calls
	assert.Equal(t, "Atlas Admin Guide Atlas manages lineage.", n.FilterLines(lines))
}

func TestKeep(t *testing.T) {
	n := newTestNormalizer(t)

	assert.True(t, n.Keep("Name"))
	assert.True(t, n.Keep("v2.1 release"))
	assert.False(t, n.Keep(""))
	assert.False(t, n.Keep("3.14"))
	assert.False(t, n.Keep(" https://docs.acme.test/ "))
	assert.False(t, n.Keep("Title", "Title"))
}

func TestIsNoise(t *testing.T) {
	n := newTestNormalizer(t)

	assert.True(t, n.IsNoise("12 . 3"))
	assert.True(t, n.IsNoise("..."))
	assert.True(t, n.IsNoise(""))
	assert.False(t, n.IsNoise("Page 3"))
}

func TestClean_Rules(t *testing.T) {
	n := newTestNormalizer(t)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"citation", "Atlas tracks lineage [12] across clusters.", "Atlas tracks lineage across clusters."},
		{"currency", "It costs $ 12.50 per node.", "It costs $12.50 per node."},
		{"clock", "The job runs at 10 : 30pm daily.", "The job runs at 10:30pm daily."},
		{"possessive", "Atlas 's type system is extensible.", "Atlas's type system is extensible."},
		{"contractions", "We 're sure it 'll work and you 'd agree it can 't fail.", "We're sure it'll work and you'd agree it can't fail."},
		{"first person", "I 'm done.", "I'm done."},
		{"elision", "L 'application est prête.", "L'application est prête."},
		{"comma", "Hive , Impala , and Spark.", "Hive, Impala, and Spark."},
		{"hyphen break", "a well- known limitation.", "a well-known limitation."},
		{"final period", "This is the end .", "This is the end."},
		{"final question", "Is it ready ?", "Is it ready?"},
		{"mid punctuation", "First part . Second part ; third part ? Fourth ! Done", "First part. Second part; third part? Fourth! Done"},
		{"mojibake", "Itâ€™s cafÃ© time.", "It's café time."},
		{"ligature and nbsp", "ﬁle system", "file system"},
		{"control characters", "bell\u0007 rings", "bell rings"},
		{"whitespace", "  too   many    spaces  ", "too many spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Clean(tt.in))
		})
	}
}

func TestClean_StripsBlocks(t *testing.T) {
	n := newTestNormalizer(t)

	text := "Intro text. Legal Notice Copyright Acme. All rights. END OF NOTICE. " +
		"Contents Overview... 3 Install... 7 Atlas keeps metadata."

	assert.Equal(t, "Intro text. Atlas keeps metadata.", n.Clean(text))
}

func TestClean_FixedPoint(t *testing.T) {
	n := newTestNormalizer(t)

	inputs := []string{
		"Atlas 's search [3] is fast , isn 't it ?",
		"Prices start at $ 5 . See the 10 : 15am session [1] , then rest .",
		"A pre- built image   with  extra   spaces ; done !",
		"Intro. Legal Notice text END OF NOTICE. Contents A... 2 Body [4] .",
		"Itâ€™s already clean text.",
		"",
	}

	for _, in := range inputs {
		once := n.Clean(in)
		assert.Equal(t, once, n.Clean(once), "input %q", in)
	}
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer(t)

	lines := []string{"Acme Docs", "1", "Atlas 's hooks", "capture lineage [2] .", "  "}
	assert.Equal(t, "Atlas's hooks capture lineage.", n.Normalize(lines))
}

func TestNormalize_EmptyConfig(t *testing.T) {
	n, err := New(Config{})
	require.NoError(t, err)

	// No noise pattern: the numeric line survives stage 1 and only the
	// punctuation rules touch it.
	assert.Equal(t, "12. 3 kept", n.Normalize([]string{"12 . 3", "kept", ""}))
	assert.Equal(t, "2024 kept", n.Normalize([]string{"2024", "kept"}))
}
