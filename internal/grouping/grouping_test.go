package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyCollapsesTagAndWhitespaceVariants(t *testing.T) {
	t.Parallel()

	base := Key(5, "Grieta en muro")

	variants := []string{
		"Grieta en muro",
		"  Grieta en muro  ",
		"Grieta   en\tmuro",
		"[INSTITUCION] Grieta en muro",
		"[portada]Grieta en   muro",
	}
	for _, v := range variants {
		assert.Equal(t, base, Key(5, v), "variant %q should share the group key", v)
	}
}

func TestKeyIsCaseSensitiveOnComment(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, Key(5, "Grieta en muro"), Key(5, "grieta en muro"))
}

func TestKeySeparatesTasks(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, Key(5, "Grieta en muro"), Key(6, "Grieta en muro"))
	assert.Equal(t, "t0|cGrieta en muro", Key(0, "Grieta en muro"))
}

func TestKeyForTaskNilMeansZero(t *testing.T) {
	t.Parallel()

	id := uint(7)
	assert.Equal(t, Key(0, "x"), KeyForTask(nil, "x"))
	assert.Equal(t, Key(7, "x"), KeyForTask(&id, "x"))
}

func TestHasInstitutionalTag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		comment string
		want    bool
	}{
		{"[INSTITUCION] Logo", true},
		{"[PORTADA] Fachada", true},
		{"  [portada] fachada", true},
		{"Grieta [INSTITUCION]", false},
		{"Grieta en muro", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HasInstitutionalTag(tc.comment), "comment %q", tc.comment)
	}
}

func TestNormalizeCommentEmptyAfterTag(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", NormalizeComment("[PORTADA]   "))
}
