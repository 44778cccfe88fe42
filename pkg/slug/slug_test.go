package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"basic", "Programación 1", 0, "programacion-1"},
		{"underscores and spaces", "intro__a  la_programacion", 0, "intro-a-la-programacion"},
		{"strips punctuation", "Análisis Matemático I (2024)", 0, "analisis-matematico-i-2024"},
		{"collapses hyphens", "a -- b --- c", 0, "a-b-c"},
		{"trims edge hyphens", "--hola--", 0, "hola"},
		{"truncates without trailing hyphen", "sistemas operativos avanzados", 9, "sistemas"},
		{"empty", "", 10, ""},
		{"only symbols", "***!!!", 0, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Generate(tc.input, tc.maxLen))
		})
	}
}

func TestGenerateIdempotent(t *testing.T) {
	inputs := []string{"Programación 1", "UTN - Facultad Regional Mendoza", "a  b_c--d", "ñoño über"}
	for _, in := range inputs {
		once := Generate(in, 0)
		assert.Equal(t, once, Generate(once, 0), "input %q", in)
	}
}

func TestGenerateOutputShape(t *testing.T) {
	inputs := []string{"Hola Mundo", "  --x-- ", "ÁÉÍÓÚ ñ", "1_2_3", "...", "Curso de Redes 2025"}
	for _, in := range inputs {
		out := Generate(in, 0)
		if out == "" {
			continue
		}
		assert.True(t, IsValid(out), "output %q from %q", out, in)
		assert.False(t, strings.HasPrefix(out, "-"))
		assert.False(t, strings.HasSuffix(out, "-"))
		assert.NotContains(t, out, "--")
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "utn-frm-2025", Clean("UTN_FRM 2025"))
	assert.Equal(t, Clean("utn-frm"), Clean(Clean("utn-frm")))
	assert.Equal(t, "", Clean(""))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("utn-frm-2025"))
	assert.False(t, IsValid("UTN_2025"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("con espacios"))
}

func TestSuggestUniversityID(t *testing.T) {
	assert.Equal(t, "utn-frm", SuggestUniversityID("UTN - Facultad Regional Mendoza"))
	assert.Equal(t, "utn-frba", SuggestUniversityID("UTN Facultad Regional Buenos Aires"))

	// No acronym marker: falls back to a 30-char slug.
	fallback := SuggestUniversityID("Universidad de Buenos Aires")
	assert.Equal(t, Generate("Universidad de Buenos Aires", 30), fallback)
	assert.Equal(t, "universidad-de-buenos-aires", fallback)

	long := SuggestUniversityID("Universidad Nacional de la Patagonia San Juan Bosco")
	require.LessOrEqual(t, len(long), 30)
	assert.True(t, IsValid(long))
}

func TestSuggestCourseID(t *testing.T) {
	assert.Equal(t, "2025-programacion-1", SuggestCourseID(2025, "Programación 1"))
	assert.Equal(t, "programacion-1", SuggestCourseID(0, "Programación 1"))
	assert.Equal(t, "2025", SuggestCourseID(2025, "¡¡¡"))
}
