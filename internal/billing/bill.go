// Package billing computes electricity bills from a sector rate table.
package billing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bher20/energyplatform/internal/tariff"
)

// Field names, as submitted by the simulator form.
const (
	FieldCustomerName = "customer_name"
	FieldAddress      = "address"
	FieldSector       = "sector"
	FieldConsumption  = "consumption"
)

// SurchargeRate is the public-lighting levy applied to the subtotal.
var SurchargeRate = decimal.RequireFromString("0.05")

// SurchargePercent is SurchargeRate as shown on documents.
const SurchargePercent = "5%"

// BillRequest is one simulator submission. Values are kept as entered.
type BillRequest struct {
	CustomerName string `json:"customer_name"`
	Address      string `json:"address"`
	Sector       string `json:"sector"`
	Consumption  string `json:"consumption"`
}

// BillResult holds the amounts derived from a BillRequest.
type BillResult struct {
	Sector                  tariff.Sector   `json:"sector"`
	UnitPrice               decimal.Decimal `json:"unit_price"`
	Consumption             decimal.Decimal `json:"consumption"`
	Subtotal                decimal.Decimal `json:"subtotal"`
	PublicLightingSurcharge decimal.Decimal `json:"public_lighting_surcharge"`
	Total                   decimal.Decimal `json:"total"`
}

// Calculator computes bills against an injected rate table.
type Calculator struct {
	rates tariff.RateTable
}

// NewCalculator returns a Calculator using the given rates.
func NewCalculator(rates tariff.RateTable) *Calculator {
	return &Calculator{rates: rates}
}

// Rates exposes the table the calculator was built with.
func (c *Calculator) Rates() tariff.RateTable { return c.rates }

// Compute validates req and derives subtotal, surcharge and total.
func (c *Calculator) Compute(req BillRequest) (BillResult, error) {
	if f := req.firstMissing(); f != "" {
		return BillResult{}, &ValidationError{Reason: ReasonMissingField, Field: f}
	}

	qty, err := ParseQuantity(req.Consumption)
	if err != nil {
		return BillResult{}, &ValidationError{Reason: ReasonInvalidQuantity, Field: FieldConsumption, Err: err}
	}
	if qty.IsNegative() {
		return BillResult{}, &ValidationError{Reason: ReasonNegativeQuantity, Field: FieldConsumption}
	}

	sector, err := tariff.ParseSector(req.Sector)
	if err != nil {
		return BillResult{}, &ValidationError{Reason: ReasonUnknownSector, Field: FieldSector, Err: err}
	}
	rate, err := c.rates.Resolve(sector)
	if err != nil {
		return BillResult{}, &ValidationError{Reason: ReasonUnknownSector, Field: FieldSector, Err: err}
	}

	subtotal := qty.Mul(rate)
	surcharge := subtotal.Mul(SurchargeRate)
	return BillResult{
		Sector:                  sector,
		UnitPrice:               rate,
		Consumption:             qty,
		Subtotal:                subtotal,
		PublicLightingSurcharge: surcharge,
		Total:                   subtotal.Add(surcharge),
	}, nil
}

// firstMissing returns the first empty field in the order the form checks them.
func (r BillRequest) firstMissing() string {
	switch {
	case strings.TrimSpace(r.CustomerName) == "":
		return FieldCustomerName
	case strings.TrimSpace(r.Consumption) == "":
		return FieldConsumption
	case strings.TrimSpace(r.Sector) == "":
		return FieldSector
	case strings.TrimSpace(r.Address) == "":
		return FieldAddress
	}
	return ""
}

// ParseQuantity parses a consumption value such as "450", "450.5" or "4.5e2".
func ParseQuantity(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}
