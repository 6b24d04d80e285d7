// Package simulator models the bill simulator form: fields are edited, the
// bill is computed on submit, and the invoice can then be exported.
package simulator

import (
	"fmt"

	"github.com/bher20/energyplatform/internal/billing"
	"github.com/bher20/energyplatform/internal/invoice"
)

// State is the position of a session in the Idle -> Computed -> Exported flow.
type State int

const (
	Idle State = iota
	Computed
	Exported
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Computed:
		return "computed"
	case Exported:
		return "exported"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session holds one user's form and its latest result. It is not safe for
// concurrent use.
type Session struct {
	calc  *billing.Calculator
	gen   *invoice.Generator
	req   billing.BillRequest
	res   *billing.BillResult
	state State
}

// NewSession starts an empty session in the Idle state.
func NewSession(calc *billing.Calculator, gen *invoice.Generator) *Session {
	return &Session{calc: calc, gen: gen}
}

// State reports the current state.
func (s *Session) State() State { return s.state }

// Request returns the form as currently filled in.
func (s *Session) Request() billing.BillRequest { return s.req }

// Result returns the computed bill, or nil in the Idle state.
func (s *Session) Result() *billing.BillResult { return s.res }

// Set updates one form field. Any computed result is discarded.
func (s *Session) Set(field, value string) error {
	switch field {
	case billing.FieldCustomerName:
		s.req.CustomerName = value
	case billing.FieldAddress:
		s.req.Address = value
	case billing.FieldSector:
		s.req.Sector = value
	case billing.FieldConsumption:
		s.req.Consumption = value
	default:
		return fmt.Errorf("simulator: unknown field %q", field)
	}
	s.res = nil
	s.state = Idle
	return nil
}

// Fill replaces the whole form, discarding any computed result.
func (s *Session) Fill(req billing.BillRequest) {
	s.req = req
	s.res = nil
	s.state = Idle
}

// Submit computes the bill. On a validation error the session stays Idle.
func (s *Session) Submit() (billing.BillResult, error) {
	res, err := s.calc.Compute(s.req)
	if err != nil {
		s.res = nil
		s.state = Idle
		return billing.BillResult{}, err
	}
	s.res = &res
	s.state = Computed
	return res, nil
}

// Export renders the invoice for the computed bill. Before a successful
// Submit it returns an *invoice.PreconditionError.
func (s *Session) Export() (*invoice.Document, error) {
	if s.res == nil {
		return nil, &invoice.PreconditionError{Reason: "submit the form before exporting"}
	}
	doc, err := s.gen.Render(s.req, s.res)
	if err != nil {
		return nil, err
	}
	s.state = Exported
	return doc, nil
}
