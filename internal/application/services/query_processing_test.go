package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truenorth/comex/backend/internal/domain/entities"
	"github.com/truenorth/comex/backend/internal/domain/repositories"
)

func TestQueryNormalizer_RejectsShortInput(t *testing.T) {
	n := NewQueryNormalizer()
	for _, raw := range []string{"", "ab", "   ab  ", "\t\n"} {
		_, ok := n.Normalize(raw)
		assert.False(t, ok, "%q should be rejected", raw)
	}
	_, ok := n.Normalize("abc")
	assert.True(t, ok)
}

func TestQueryNormalizer_Tokenizes(t *testing.T) {
	q, ok := NewQueryNormalizer().Normalize("  Pastilha   de Freio ")
	require.True(t, ok)

	assert.Equal(t, "pastilha de freio", q.Literal)
	assert.Equal(t, []string{"pastilha", "de", "freio"}, q.Tokens)
	assert.Equal(t, []string{"pastilha", "freio"}, q.FallbackTokens)
}

func TestQueryNormalizer_ComposesAccents(t *testing.T) {
	q, ok := NewQueryNormalizer().Normalize("Bateria de lítio")
	require.True(t, ok)
	assert.Equal(t, "bateria de lítio", q.Literal)
	assert.Contains(t, q.Tokens, "lítio")
}

func testDictionary(t *testing.T) *ComexDictionary {
	t.Helper()
	d, err := ParseComexDictionary([]byte(`
synonyms:
  freio: [travão, servofreio]
  disco: [prato]
  pastilha: [guarnição]
sector_keywords:
  - sector: AutoParts
    keywords: [freio, Veículo]
  - sector: Electronics
    keywords: [celular]
`))
	require.NoError(t, err)
	return d
}

func TestSynonymExpander_Expand(t *testing.T) {
	e := NewSynonymExpander(testDictionary(t), 0)

	exp := e.Expand([]string{"freio", "disco", "ventilado"})

	assert.Equal(t, "(freio|travão|servofreio)|(disco|prato)|ventilado", exp.Expression)
	assert.Equal(t, []string{"freio", "travão", "servofreio", "disco", "prato", "ventilado"}, exp.Terms)
}

func TestSynonymExpander_SanitizesOperators(t *testing.T) {
	e := NewSynonymExpander(testDictionary(t), 0)

	exp := e.Expand([]string{"freio&", "a|b", "!!", "(disco)"})

	assert.Equal(t, "(freio|travão|servofreio)|ab|(disco|prato)", exp.Expression)
	assert.NotContains(t, exp.Expression, "&")
	assert.NotContains(t, exp.Expression, "!")
}

func TestSynonymExpander_RespectsTermBudget(t *testing.T) {
	e := NewSynonymExpander(testDictionary(t), 2)

	exp := e.Expand([]string{"freio", "disco"})

	assert.Equal(t, "(freio|travão)", exp.Expression)
	assert.Len(t, exp.Terms, 2)
}

func TestSynonymExpander_EmptyInput(t *testing.T) {
	e := NewSynonymExpander(testDictionary(t), 20)
	assert.Equal(t, "", e.Expand(nil).Expression)
	assert.Equal(t, "", e.Expand([]string{"--", "??"}).Expression)
}

func TestComexDictionary_Default(t *testing.T) {
	d := DefaultComexDictionary()
	assert.Contains(t, d.Synonyms("freio"), "travão")
	assert.Contains(t, d.Synonyms("fone"), "auricular")
	assert.NotEmpty(t, d.SectorRules())
	assert.Nil(t, d.Synonyms("inexistente"))
}

func TestComexDictionary_RejectsPhrases(t *testing.T) {
	_, err := ParseComexDictionary([]byte("synonyms:\n  pastilha freio: [guarnição]\n"))
	assert.Error(t, err)

	_, err = ParseComexDictionary([]byte("synonyms:\n  freio: [freio de mão]\n"))
	assert.Error(t, err)
}

func TestComexDictionary_RejectsUnknownSector(t *testing.T) {
	_, err := ParseComexDictionary([]byte("sector_keywords:\n  - sector: Spaceships\n    keywords: [foguete]\n"))
	assert.Error(t, err)
}

func TestComexDictionary_FoldsKeywords(t *testing.T) {
	rules := testDictionary(t).SectorRules()
	require.Len(t, rules, 2)
	assert.Equal(t, entities.SectorAutoParts, rules[0].Sector)
	assert.Equal(t, []string{"freio", "veiculo"}, rules[0].Keywords)
}

func TestLoadComexDictionary_MissingFile(t *testing.T) {
	_, err := LoadComexDictionary("/nonexistent/dictionary.yaml")
	assert.Error(t, err)

	d, err := LoadComexDictionary("")
	require.NoError(t, err)
	assert.NotEmpty(t, d.Synonyms("freio"))
}

func TestSectorDetector_Detect(t *testing.T) {
	d := NewSectorDetector(DefaultComexDictionary())

	tests := []struct {
		desc string
		want entities.Sector
	}{
		{"Telefone celular inteligente", entities.SectorElectronics},
		{"Pastilhas de freio para veículos", entities.SectorAutoParts},
		{"Ácido sulfúrico", entities.SectorChemicals},
		{"Tecido de algodão", entities.SectorTextiles},
		{"Parafusos", entities.SectorGeneral},
		{"", entities.SectorGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Detect(tt.desc))
		})
	}
}

func TestSectorDetector_FirstRuleWins(t *testing.T) {
	d := NewSectorDetector(testDictionary(t))
	// matches both rules; AutoParts is listed first
	assert.Equal(t, entities.SectorAutoParts, d.Detect("Celular com freio"))
}

func TestScoreFallback(t *testing.T) {
	q, ok := NewQueryNormalizer().Normalize("baterias de lítio")
	require.True(t, ok)

	matches := []repositories.SubstringMatch{
		{Code: "85076010", Description: "Acumuladores elétricos de lítio", Sector: entities.SectorGeneral},
		{Code: "85076000", Description: "Baterias de lítio", Sector: entities.SectorElectronics},
	}

	scored := DefaultFallbackWeights().ScoreFallback(matches, q, entities.SectorElectronics)

	require.Len(t, scored, 2)
	assert.Equal(t, "85076000", scored[0].Code)
	// phrase + two tokens + sector, no specificity bonus for a code ending 00
	assert.Equal(t, 170.0, scored[0].Score)
	assert.Equal(t, entities.OriginFallback, scored[0].Origin)
	// one token + specificity
	assert.Equal(t, 30.0, scored[1].Score)
}

func TestScoreFallback_GeneralSectorGetsNoBonus(t *testing.T) {
	q, ok := NewQueryNormalizer().Normalize("parafuso")
	require.True(t, ok)

	scored := DefaultFallbackWeights().ScoreFallback([]repositories.SubstringMatch{
		{Code: "73181500", Description: "Parafuso", Sector: entities.SectorGeneral},
	}, q, entities.SectorGeneral)

	require.Len(t, scored, 1)
	assert.Equal(t, 120.0, scored[0].Score)
}
