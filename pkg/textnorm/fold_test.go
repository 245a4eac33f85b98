package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Eletrônicos":           "eletronicos",
		"AUTOPEÇAS":             "autopecas",
		"Acumuladores de íons":  "acumuladores de ions",
		"Preparações capilares": "preparacoes capilares",
		"already plain":         "already plain",
		"":                      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Fold(in), in)
	}
}
