package tariff

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// RateTable maps each sector to its unit price in COP per kWh. A RateTable is
// immutable once built and safe for concurrent use.
type RateTable struct {
	rates map[Sector]decimal.Decimal
}

func defaultRates() map[Sector]decimal.Decimal {
	return map[Sector]decimal.Decimal{
		Commercial:  decimal.NewFromInt(520),
		Residential: decimal.NewFromInt(485),
		Industrial:  decimal.NewFromInt(650),
		Public:      decimal.NewFromInt(510),
	}
}

// Default returns the published Santander rate table.
func Default() RateTable {
	return RateTable{rates: defaultRates()}
}

// New builds a table from explicit prices. Every sector must be present and
// no price may be negative.
func New(prices map[Sector]decimal.Decimal) (RateTable, error) {
	out := make(map[Sector]decimal.Decimal, len(prices))
	for _, s := range Sectors() {
		p, ok := prices[s]
		if !ok {
			return RateTable{}, fmt.Errorf("tariff: missing price for sector %s", s)
		}
		if p.IsNegative() {
			return RateTable{}, fmt.Errorf("tariff: negative price for sector %s", s)
		}
		out[s] = p
	}
	for s := range prices {
		if !s.Valid() {
			return RateTable{}, fmt.Errorf("%w: %q", ErrUnknownSector, string(s))
		}
	}
	return RateTable{rates: out}, nil
}

// Resolve returns the unit price for a sector.
func (t RateTable) Resolve(s Sector) (decimal.Decimal, error) {
	p, ok := t.rates[s]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownSector, string(s))
	}
	return p, nil
}

// Rates returns a copy of the table.
func (t RateTable) Rates() map[Sector]decimal.Decimal {
	out := make(map[Sector]decimal.Decimal, len(t.rates))
	for k, v := range t.rates {
		out[k] = v
	}
	return out
}

// Entry is one row of the table in display order.
type Entry struct {
	Sector    Sector          `json:"sector"`
	Label     string          `json:"label"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Unit      string          `json:"unit"`
}

// Entries lists the table in the order of Sectors().
func (t RateTable) Entries() []Entry {
	out := make([]Entry, 0, len(t.rates))
	for _, s := range Sectors() {
		if p, ok := t.rates[s]; ok {
			out = append(out, Entry{Sector: s, Label: s.Label(), UnitPrice: p, Unit: "kWh"})
		}
	}
	return out
}

type rateFile struct {
	Rates map[string]float64 `yaml:"rates"`
}

// Load reads a YAML override file and applies it on top of the defaults.
// Keys may be canonical sector names or the Spanish form values:
//
//	rates:
//	  vivienda: 490
//	  industrial: 655.5
//
// An empty path returns the defaults.
func Load(path string) (RateTable, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return RateTable{}, fmt.Errorf("tariff: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse applies YAML overrides to the default table.
func Parse(raw []byte) (RateTable, error) {
	var f rateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return RateTable{}, fmt.Errorf("tariff: decode rates: %w", err)
	}
	prices := defaultRates()
	for key, v := range f.Rates {
		s, err := ParseSector(key)
		if err != nil {
			return RateTable{}, fmt.Errorf("tariff: %w", err)
		}
		prices[s] = decimal.NewFromFloat(v)
	}
	return New(prices)
}
