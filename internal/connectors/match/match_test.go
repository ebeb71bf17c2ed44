package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/navo/internal/core/domain"
)

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"how", "rotate", "v2.1", "keys"}, Terms("how rotate v2.1 keys? Keys! a"))
	assert.Empty(t, Terms("? ! a"))
}

func TestScore(t *testing.T) {
	terms := []string{"vault", "rotation"}

	assert.InDelta(t, 1.0, Score(terms, "Vault rotation", "vault rotation runbook"), 1e-9)
	assert.InDelta(t, 0.3+0.4, Score(terms, "Vault", "key rotation with vault"), 1e-9)
	assert.Zero(t, Score(terms, "Holidays", "calendar"))
	assert.Zero(t, Score(nil, "Vault", "vault"))

	assert.True(t, Matches(terms, "", "rotation"))
	assert.False(t, Matches(terms, "", "nothing"))
}

func TestExcerpt_Short(t *testing.T) {
	assert.Equal(t, "a b c", Excerpt("a \n b\tc", []string{"b"}, 20))
}

func TestExcerpt_WindowAroundTerm(t *testing.T) {
	text := strings.Repeat("x ", 100) + "needle " + strings.Repeat("y ", 100)

	got := Excerpt(text, []string{"needle"}, 40)

	assert.Contains(t, got, "needle")
	assert.True(t, strings.HasPrefix(got, "..."))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len([]rune(got)), 46)
}

func TestExcerpt_NoTermStartsAtBeginning(t *testing.T) {
	text := "start " + strings.Repeat("z ", 100)

	got := Excerpt(text, []string{"absent"}, 20)

	assert.True(t, strings.HasPrefix(got, "start"))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, " Hello  &  world ", StripHTML("<p>Hello</p> &amp; <b>world</b>"))
}

func TestPrincipals(t *testing.T) {
	assert.Equal(t, []string{domain.PrincipalEveryone}, Principals(nil))
	assert.Equal(t, []string{domain.PrincipalEveryone, "space:ENG"}, Principals(map[string]string{}, "space:ENG"))
	assert.Equal(t, []string{"group:eng", "team:sre"}, Principals(map[string]string{"principals": "group:eng, team:sre"}))
	assert.Equal(t, []string{"space:HR"}, Principals(map[string]string{"principals": ""}, "space:HR"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a, ,b "))
	assert.Nil(t, SplitList(""))
}
