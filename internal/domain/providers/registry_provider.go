package providers

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// RegistryProvider fetches authoritative NCM records from the external registry
type RegistryProvider interface {
	// Lookup returns the registry record, or nil when the registry has none
	Lookup(ctx context.Context, code string) (*RegistryNomenclature, error)
}

// RegistryNomenclature is the registry's record as received. Every field is optional.
type RegistryNomenclature struct {
	Codigo      string     `json:"codigo"`
	Descricao   string     `json:"descricao"`
	NomeNCM     string     `json:"nomeNcm"`
	AliquotaII  FlexNumber `json:"aliquotaII"`
	AliquotaIPI FlexNumber `json:"aliquotaIPI"`
	Anuentes    []string   `json:"anuentes"`
}

// Text returns the best available description
func (r *RegistryNomenclature) Text() string {
	if d := strings.TrimSpace(r.Descricao); d != "" {
		return d
	}
	return strings.TrimSpace(r.NomeNCM)
}

// FlexNumber decodes a JSON number, a numeric string (with comma or dot), or null
type FlexNumber struct {
	Value string
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*f = FlexNumber{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.TrimSuffix(str, "%"))
		s = strings.ReplaceAll(s, ",", ".")
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		// unparseable rates are treated as absent
		*f = FlexNumber{}
		return nil
	}
	*f = FlexNumber{Value: s, Valid: true}
	return nil
}
