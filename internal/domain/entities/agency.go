package entities

import "github.com/shopspring/decimal"

// Agency is a regulatory body (anuente) that must clear some imports
type Agency struct {
	Code          string          `json:"sigla"`
	Name          string          `json:"nomeCompleto"`
	Description   string          `json:"descricao"`
	MinFine       decimal.Decimal `json:"multaMinima"`
	MaxFine       decimal.Decimal `json:"multaMaxima"`
	ClearanceDays int             `json:"tempoLiberacaoDias"`
}

// TariffCodeDetails is a code together with the agencies it requires
type TariffCodeDetails struct {
	*TariffCode
	AgencyDetails []*Agency `json:"anuentesDetalhes"`
}
