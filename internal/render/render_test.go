package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestDerive_Basic(t *testing.T) {
	t.Parallel()

	r := New()
	d, err := r.Derive("# Q3 goals\n\n- ship **search**\n- fix cache\n")
	require.NoError(t, err)

	require.Contains(t, d.HTML, "<h1")
	require.Contains(t, d.HTML, "<strong>search</strong>")
	require.Equal(t, "Q3 goals ship search fix cache", d.Excerpt)
	require.Equal(t, 6, d.WordCount)
	require.Equal(t, 1, d.ReadingTime)
}

func TestDerive_Empty(t *testing.T) {
	t.Parallel()

	d, err := New().Derive("")
	require.NoError(t, err)
	require.Equal(t, "", d.Canonical)
	require.Equal(t, "", d.Excerpt)
	require.Zero(t, d.WordCount)
	require.Zero(t, d.ReadingTime)
}

func TestHTML_SanitizesScripts(t *testing.T) {
	t.Parallel()

	out, err := New().HTML("hello <script>alert(1)</script> [x](javascript:alert(1))")
	require.NoError(t, err)
	require.NotContains(t, out, "<script")
	require.NotContains(t, out, "javascript:")
}

func TestCanonical(t *testing.T) {
	t.Parallel()

	in := "\r\n\r\ntitle  \r\n\r\n\r\n\r\nbody\t\n\n"
	require.Equal(t, "title\n\nbody\n", Canonical(in))
	require.Equal(t, "", Canonical(" \n\n"))
	require.Equal(t, Canonical(in), Canonical(Canonical(in)))
}

func TestExcerpt_Truncates(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ж", 250)
	ex := Excerpt(long, ExcerptLen)
	require.Equal(t, ExcerptLen+1, utf8.RuneCountInString(ex))
	require.True(t, strings.HasSuffix(ex, "…"))

	require.Equal(t, "short", Excerpt("short", ExcerptLen))
}

func TestReadingTime(t *testing.T) {
	t.Parallel()

	cases := map[int]int{0: 0, 1: 1, 200: 1, 201: 2, 1000: 5}
	for words, want := range cases {
		require.Equal(t, want, ReadingTime(words), "words=%d", words)
	}
}
