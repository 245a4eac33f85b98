package entities

import (
	"strings"

	"github.com/truenorth/comex/backend/pkg/textnorm"
)

// Sector is the closed set of industry sectors used to boost ranking.
type Sector string

const (
	SectorElectronics  Sector = "Electronics"
	SectorAutoParts    Sector = "AutoParts"
	SectorCosmetics    Sector = "Cosmetics"
	SectorFood         Sector = "Food"
	SectorMachinery    Sector = "Machinery"
	SectorTextiles     Sector = "Textiles"
	SectorChemicals    Sector = "Chemicals"
	SectorMedical      Sector = "Medical"
	SectorToys         Sector = "Toys"
	SectorConstruction Sector = "Construction"
	SectorUtensils     Sector = "Utensils"
	SectorFuels        Sector = "Fuels"
	SectorMetals       Sector = "Metals"
	SectorGeneral      Sector = "General"
)

// storageLabels maps each sector to the value kept in the setor column of
// the reference table.
var storageLabels = map[Sector]string{
	SectorElectronics:  "Eletronicos",
	SectorAutoParts:    "Autopecas",
	SectorCosmetics:    "Cosmeticos",
	SectorFood:         "Alimentos",
	SectorMachinery:    "Maquinas",
	SectorTextiles:     "Textil",
	SectorChemicals:    "Quimicos",
	SectorMedical:      "Farmaceuticos",
	SectorToys:         "Brinquedos",
	SectorConstruction: "Construcao",
	SectorUtensils:     "Utensilios",
	SectorFuels:        "Combustiveis",
	SectorMetals:       "Metais",
	SectorGeneral:      "Geral",
}

// extra spellings accepted on input, already folded
var sectorAliases = map[string]Sector{
	"medicos":     SectorMedical,
	"medico":      SectorMedical,
	"saude":       SectorMedical,
	"outros":      SectorGeneral,
	"autopeca":    SectorAutoParts,
	"textiles":    SectorTextiles,
	"texteis":     SectorTextiles,
	"alimento":    SectorFood,
	"cosmetico":   SectorCosmetics,
	"eletronico":  SectorElectronics,
	"electronic":  SectorElectronics,
	"maquinario":  SectorMachinery,
	"brinquedo":   SectorToys,
	"combustivel": SectorFuels,
	"metal":       SectorMetals,
}

var sectorLookup = buildSectorLookup()

func buildSectorLookup() map[string]Sector {
	m := make(map[string]Sector, len(storageLabels)*2+len(sectorAliases))
	for s, label := range storageLabels {
		m[textnorm.Fold(string(s))] = s
		m[textnorm.Fold(label)] = s
	}
	for alias, s := range sectorAliases {
		m[alias] = s
	}
	return m
}

// ParseSector accepts English names, Portuguese storage labels and common
// aliases, ignoring case and accents. Empty or unknown input is General.
func ParseSector(raw string) Sector {
	key := strings.TrimSpace(textnorm.Fold(raw))
	if key == "" {
		return SectorGeneral
	}
	if s, ok := sectorLookup[key]; ok {
		return s
	}
	return SectorGeneral
}

// ParseSectorStrict is ParseSector but reports whether the input was recognised.
func ParseSectorStrict(raw string) (Sector, bool) {
	s, ok := sectorLookup[strings.TrimSpace(textnorm.Fold(raw))]
	return s, ok
}

// StorageLabel returns the setor column value for this sector.
func (s Sector) StorageLabel() string {
	if label, ok := storageLabels[s]; ok {
		return label
	}
	return storageLabels[SectorGeneral]
}

// IsGeneral reports whether s applies no sector filter or boost
func (s Sector) IsGeneral() bool {
	return s == "" || s == SectorGeneral
}

// AllSectors lists every sector in declaration order.
func AllSectors() []Sector {
	return []Sector{
		SectorElectronics, SectorAutoParts, SectorCosmetics, SectorFood,
		SectorMachinery, SectorTextiles, SectorChemicals, SectorMedical,
		SectorToys, SectorConstruction, SectorUtensils, SectorFuels,
		SectorMetals, SectorGeneral,
	}
}
