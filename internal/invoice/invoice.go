// Package invoice lays out and renders electricity invoices as PDF documents.
package invoice

import (
	"bytes"
	"fmt"
	"regexp"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/jonboulle/clockwork"

	"github.com/bher20/energyplatform/internal/billing"
	"github.com/bher20/energyplatform/internal/tariff"
)

const (
	DefaultPlatformName = "Energy Platform"
	DefaultOrganization = "Energy Platform - Gestión Energética Santander y Norte de Santander"
	documentTitle       = "Factura de Energía Eléctrica"
	ContentType         = "application/pdf"
)

// PreconditionError is returned when a document is requested before the bill
// has been computed.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// Document is a rendered invoice.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
	GeneratedAt time.Time
	Layout      Layout
}

// Generator renders invoices. It holds no per-invoice state.
type Generator struct {
	clock        clockwork.Clock
	loc          *time.Location
	platformName string
	organization string
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock sets the clock used for the generation timestamp.
func WithClock(c clockwork.Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithLocation sets the time zone of the generation date.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// WithBranding overrides the header name and footer organization line.
func WithBranding(platformName, organization string) Option {
	return func(g *Generator) {
		if platformName != "" {
			g.platformName = platformName
		}
		if organization != "" {
			g.organization = organization
		}
	}
}

// NewGenerator returns a Generator with a real clock in UTC unless overridden.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		clock:        clockwork.NewRealClock(),
		loc:          time.UTC,
		platformName: DefaultPlatformName,
		organization: DefaultOrganization,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

var unsafeFilename = regexp.MustCompile(`[\s/\\]`)

// Filename derives the download name from the customer name, replacing every
// whitespace character and path separator with "_".
func Filename(customerName string) string {
	return "invoice_" + unsafeFilename.ReplaceAllString(customerName, "_") + ".pdf"
}

// Layout positions the five invoice regions for a computed bill.
func (g *Generator) Layout(req billing.BillRequest, res *billing.BillResult, at time.Time) (Layout, error) {
	if res == nil {
		return Layout{}, &PreconditionError{Reason: "bill has not been computed"}
	}

	sectorLabel := res.Sector.Label()
	if !res.Sector.Valid() {
		sectorLabel = tariff.Capitalize(req.Sector)
	}

	header := Region{
		Name:  RegionHeader,
		Fills: []Fill{{X: 0, Y: 0, W: PageWidth, H: 40, Color: colorHeader}},
		Texts: []TextItem{
			{X: 105, Y: 20, Text: g.platformName, Size: 24, Align: AlignCenter, Color: colorWhite},
			{X: 105, Y: 30, Text: documentTitle, Size: 14, Align: AlignCenter, Color: colorWhite},
		},
	}

	customer := Region{
		Name: RegionCustomer,
		Texts: []TextItem{
			{X: 20, Y: 55, Text: "Información del Cliente", Size: 12, Color: colorBlack},
			{X: 20, Y: 65, Text: "Nombre: " + req.CustomerName, Size: 10, Color: colorBlack},
			{X: 20, Y: 72, Text: "Dirección: " + req.Address, Size: 10, Color: colorBlack},
			{X: 20, Y: 79, Text: "Sector: " + sectorLabel, Size: 10, Color: colorBlack},
		},
	}

	consumption := Region{
		Name: RegionConsumption,
		Texts: []TextItem{
			{X: 20, Y: 95, Text: "Detalles de Consumo", Size: 12, Color: colorBlack},
			{X: 20, Y: 105, Text: fmt.Sprintf("Consumo: %s kWh", billing.FormatQuantity(res.Consumption)), Size: 10, Color: colorBlack},
			{X: 20, Y: 112, Text: fmt.Sprintf("Tarifa: $%s/kWh", res.UnitPrice.String()), Size: 10, Color: colorBlack},
			{X: 20, Y: 119, Text: "Subtotal: " + billing.FormatCurrency(res.Subtotal), Size: 10, Color: colorBlack},
			{X: 20, Y: 126, Text: fmt.Sprintf("Contribución alumbrado público (%s): %s",
				billing.SurchargePercent, billing.FormatCurrency(res.PublicLightingSurcharge)), Size: 10, Color: colorBlack},
		},
	}

	total := Region{
		Name:  RegionTotal,
		Fills: []Fill{{X: 15, Y: 135, W: 180, H: 15, Color: colorTotal}},
		Texts: []TextItem{
			{X: 105, Y: 145, Text: "TOTAL A PAGAR: " + billing.FormatCurrency(res.Total), Size: 14, Bold: true, Align: AlignCenter, Color: colorBlack},
		},
	}

	footer := Region{
		Name: RegionFooter,
		Texts: []TextItem{
			{X: 105, Y: 280, Text: g.organization, Size: 8, Align: AlignCenter, Color: colorBlack},
			{X: 105, Y: 285, Text: "Fecha de generación: " + FormatDate(at.In(g.loc)), Size: 8, Align: AlignCenter, Color: colorBlack},
		},
	}

	return Layout{
		Width:   PageWidth,
		Height:  PageHeight,
		Regions: []Region{header, customer, consumption, total, footer},
	}, nil
}

// Render lays out and renders the invoice. It performs no I/O; saving or
// serving the returned document is up to the caller.
func (g *Generator) Render(req billing.BillRequest, res *billing.BillResult) (*Document, error) {
	now := g.clock.Now()
	layout, err := g.Layout(req, res, now)
	if err != nil {
		return nil, err
	}

	content, err := renderPDF(layout, now, g.platformName)
	if err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}

	return &Document{
		Filename:    Filename(req.CustomerName),
		ContentType: ContentType,
		Content:     content,
		GeneratedAt: now,
		Layout:      layout,
	}, nil
}

// FormatDate renders t the way es-CO short dates look (day/month/year).
func FormatDate(t time.Time) string {
	return t.Format("2/1/2006")
}

func renderPDF(l Layout, at time.Time, author string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(at)
	pdf.SetModificationDate(at)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(documentTitle, true)
	pdf.SetAuthor(author, true)
	pdf.SetCreator(author, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddUTF8FontFromBytes(fontFamily, "", fontRegular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", fontBold)
	pdf.AddPage()

	for _, region := range l.Regions {
		for _, f := range region.Fills {
			pdf.SetFillColor(f.Color.R, f.Color.G, f.Color.B)
			pdf.Rect(f.X, f.Y, f.W, f.H, "F")
		}
		for _, t := range region.Texts {
			style := ""
			if t.Bold {
				style = "B"
			}
			pdf.SetFont(fontFamily, style, t.Size)
			pdf.SetTextColor(t.Color.R, t.Color.G, t.Color.B)

			x := t.X
			if t.Align == AlignCenter {
				x -= pdf.GetStringWidth(t.Text) / 2
			}
			pdf.Text(x, t.Y, t.Text)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
