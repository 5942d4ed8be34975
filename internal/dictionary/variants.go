package dictionary

import (
	"github.com/tinoosan/bank/internal/ledger"
	"github.com/tinoosan/bank/internal/meta"
)

// ParamDef describes one variant parameter and its default.
type ParamDef struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Default     string `json:"default"`
	Description string `json:"description"`
}

type VariantDef struct {
	Code        ledger.Variant `json:"code"`
	Label       string         `json:"label"`
	Description string         `json:"description"`
	Params      []ParamDef     `json:"params"`
}

var curated = []VariantDef{
	{
		Code:        ledger.VariantStandard,
		Label:       ledger.VariantStandard.Label(),
		Description: "Balance may never go below zero.",
		Params:      []ParamDef{},
	},
	{
		Code:        ledger.VariantChecking,
		Label:       ledger.VariantChecking.Label(),
		Description: "Balance may go below zero down to the overdraft limit.",
		Params: []ParamDef{
			{Key: meta.KeyOverdraftLimit, Label: "Overdraft Limit", Default: ledger.DefaultOverdraftLimit, Description: "Largest negative balance allowed, in major units."},
		},
	},
	{
		Code:        ledger.VariantSavings,
		Label:       ledger.VariantSavings.Label(),
		Description: "Balance may never go below zero; accrues interest on demand.",
		Params: []ParamDef{
			{Key: meta.KeyInterestRate, Label: "Interest Rate", Default: ledger.DefaultInterestRate, Description: "Fraction of the balance credited per accrual."},
		},
	},
}

// Variants returns the catalog in display order.
func Variants() []VariantDef {
	out := make([]VariantDef, len(curated))
	copy(out, curated)
	return out
}

// Lookup returns the definition for v.
func Lookup(v ledger.Variant) (VariantDef, bool) {
	for _, d := range curated {
		if d.Code == v {
			return d, true
		}
	}
	return VariantDef{}, false
}

// ParamKeys lists the parameter keys v accepts.
func ParamKeys(v ledger.Variant) []string {
	d, ok := Lookup(v)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		keys = append(keys, p.Key)
	}
	return keys
}

// Defaults returns v's parameter defaults, with overrides replacing the
// built-in values for keys they name.
func Defaults(v ledger.Variant, overrides meta.Metadata) meta.Metadata {
	d, ok := Lookup(v)
	if !ok {
		return meta.Metadata{}
	}
	out := meta.Metadata{}
	for _, p := range d.Params {
		val := p.Default
		if o, ok := overrides.Get(p.Key); ok && o != "" {
			val = o
		}
		out.Set(p.Key, val)
	}
	return out
}
