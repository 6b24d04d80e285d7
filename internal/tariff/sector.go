package tariff

import (
	"errors"
	"fmt"
	"strings"
)

// Sector is a customer category that determines the unit price.
type Sector string

const (
	Commercial  Sector = "commercial"
	Residential Sector = "residential"
	Industrial  Sector = "industrial"
	Public      Sector = "public"
)

// ErrUnknownSector is returned for any value outside the four sectors.
var ErrUnknownSector = errors.New("unknown sector")

// Sectors lists every sector in display order.
func Sectors() []Sector {
	return []Sector{Commercial, Residential, Industrial, Public}
}

// aliases maps accepted form values to sectors. The Spanish keys are the ones
// the dashboard's select box submits.
var aliases = map[string]Sector{
	"commercial":  Commercial,
	"empresarial": Commercial,
	"residential": Residential,
	"vivienda":    Residential,
	"industrial":  Industrial,
	"public":      Public,
	"publico":     Public,
	"público":     Public,
}

// ParseSector resolves a submitted sector value, case-insensitively.
func ParseSector(s string) (Sector, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if sec, ok := aliases[key]; ok {
		return sec, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSector, s)
}

// Valid reports whether s is one of the four sectors.
func (s Sector) Valid() bool {
	switch s {
	case Commercial, Residential, Industrial, Public:
		return true
	}
	return false
}

// Label is the Spanish display name used on invoices and the dashboard.
func (s Sector) Label() string {
	switch s {
	case Commercial:
		return "Empresarial"
	case Residential:
		return "Vivienda"
	case Industrial:
		return "Industrial"
	case Public:
		return "Público"
	}
	return Capitalize(string(s))
}

func (s Sector) String() string { return string(s) }

// Capitalize upper-cases the first letter of s.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
