package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"room-designer/internal/domain"
)

func mustComposer(t *testing.T) *Composer {
	t.Helper()
	c, err := NewComposer()
	require.NoError(t, err)
	return c
}

func TestCompose_AllCategoriesInOrder(t *testing.T) {
	c := mustComposer(t)
	got := c.Compose(domain.Preferences{
		Style:         "Modern Minimalist",
		Mood:          "Calm & Zen",
		Functionality: "Relaxation / Lounge",
		Palette:       "Monochrome",
		Clutter:       "Showroom Perfect",
		Addendum:      "A big window",
	})

	want := []string{
		"Modern Minimalist style",
		"Calm and Zen atmosphere",
		"Living room setup",
		"Monochrome color palette",
		"Minimalist, clean surfaces",
		"Additional details: A big window",
	}
	last := -1
	for _, w := range want {
		idx := strings.Index(got, w)
		require.GreaterOrEqual(t, idx, 0, "missing %q in %q", w, got)
		require.Greater(t, idx, last, "%q out of order", w)
		last = idx
	}
	require.True(t, strings.HasSuffix(got, "Additional details: A big window"))
}

func TestCompose_UnknownValuesOmitted(t *testing.T) {
	c := mustComposer(t)
	got := c.Compose(domain.Preferences{
		Style:   "Art Deco",
		Mood:    "Cozy & Warm",
		Palette: "Neon Rainbow",
	})
	require.Equal(t, "Cozy and Warm atmosphere, warm lighting, blankets, soft shadows, inviting.", got)
}

func TestCompose_EmptyAddendumHasNoLabel(t *testing.T) {
	c := mustComposer(t)
	got := c.Compose(domain.Preferences{Style: "Japandi"})
	require.NotContains(t, got, "Additional details")
}

func TestCompose_AddendumVerbatim(t *testing.T) {
	c := mustComposer(t)
	got := c.Compose(domain.Preferences{Addendum: "  keep the   piano  "})
	require.Equal(t, "Additional details:   keep the   piano  ", got)
}

func TestCompose_NothingRecognised(t *testing.T) {
	c := mustComposer(t)
	require.Equal(t, "", c.Compose(domain.Preferences{Style: "x", Mood: "y"}))
}

func TestCompose_Deterministic(t *testing.T) {
	c := mustComposer(t)
	p := domain.Preferences{Style: "Bohemian", Mood: "Moody & Dramatic", Clutter: "Maximalist / Busy"}
	require.Equal(t, c.Compose(p), c.Compose(p))
}

func TestParseVocabulary_Errors(t *testing.T) {
	_, err := ParseVocabulary([]byte("style: [unclosed"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode vocabulary")

	_, err = ParseVocabulary([]byte("other: {}"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestLoadComposer_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	require.NoError(t, os.WriteFile(path, []byte("style:\n  Loft: \"Loft clause.\"\n"), 0o600))

	c, err := LoadComposer(path)
	require.NoError(t, err)
	require.Equal(t, "Loft clause.", c.Compose(domain.Preferences{Style: "Loft", Mood: "Calm & Zen"}))
}

func TestLoadComposer_EmptyPathUsesEmbedded(t *testing.T) {
	c, err := LoadComposer(" ")
	require.NoError(t, err)
	require.Contains(t, c.Compose(domain.Preferences{Style: "Japandi"}), "Japandi style")
}

func TestLoadComposer_MissingFile(t *testing.T) {
	_, err := LoadComposer(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read vocabulary")
}

func TestCompose_WhitespaceAddendumKept(t *testing.T) {
	c := mustComposer(t)
	require.Equal(t, "Additional details:    ", c.Compose(domain.Preferences{Addendum: "   "}))
}
