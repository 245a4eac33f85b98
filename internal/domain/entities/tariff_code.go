package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Provenance tags for TariffCode.Source
const (
	SourceDatabase = "database"
	SourceRegistry = "Siscomex-API"
)

// NCMLength is the number of digits in a full NCM code
const NCMLength = 8

// Default federal contribution rates applied when a record carries none
var (
	DefaultPISRate    = decimal.RequireFromString("2.10")
	DefaultCOFINSRate = decimal.RequireFromString("9.65")
)

// TariffCode is one entry of the NCM reference table
type TariffCode struct {
	Code             string          `json:"ncm"`
	Description      string          `json:"descricao"`
	Chapter          string          `json:"capitulo"`
	ImportDutyRate   decimal.Decimal `json:"aliquotaIi"`
	IPIRate          decimal.Decimal `json:"aliquotaIpi"`
	PISRate          decimal.Decimal `json:"aliquotaPis"`
	COFINSRate       decimal.Decimal `json:"aliquotaCofins"`
	RequiredAgencies []string        `json:"anuentes"`
	RequiresLicense  bool            `json:"requerLpco"`
	Sector           Sector          `json:"setor"`
	Source           string          `json:"fonte,omitempty"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Specificity classifies how deep in the hierarchy a code sits
type Specificity int

const (
	// SpecificityPosition is a 4-digit heading padded with zeros (xxxx0000)
	SpecificityPosition Specificity = iota
	// SpecificitySubheading is a 6-digit subheading padded with zeros (xxxxxx00)
	SpecificitySubheading
	// SpecificityItem is a fully specific 8-digit item
	SpecificityItem
)

// CodeSpecificity returns the specificity tier of a code
func CodeSpecificity(code string) Specificity {
	switch {
	case strings.HasSuffix(code, "0000"):
		return SpecificityPosition
	case strings.HasSuffix(code, "00"):
		return SpecificitySubheading
	default:
		return SpecificityItem
	}
}

// ChapterOf returns the two-digit chapter of a code
func ChapterOf(code string) string {
	if len(code) < 2 {
		return code
	}
	return code[:2]
}

// ApplyDefaults fills derived and defaulted fields
func (t *TariffCode) ApplyDefaults() {
	if t.Chapter == "" {
		t.Chapter = ChapterOf(t.Code)
	}
	if t.PISRate.IsZero() {
		t.PISRate = DefaultPISRate
	}
	if t.COFINSRate.IsZero() {
		t.COFINSRate = DefaultCOFINSRate
	}
	if t.RequiredAgencies == nil {
		t.RequiredAgencies = []string{}
	}
	if t.Sector == "" {
		t.Sector = SectorGeneral
	}
}
