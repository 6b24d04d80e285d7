package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bher20/energyplatform/internal/billing"
	"github.com/bher20/energyplatform/internal/invoice"
	"github.com/bher20/energyplatform/internal/migrate"
	"github.com/bher20/energyplatform/internal/simulator"
	"github.com/bher20/energyplatform/internal/tariff"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status|version]",
	Short:     "Apply or inspect database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		drv, dsn := cfg.Storage.Driver, cfg.Storage.DSN
		switch args[0] {
		case "up":
			return migrate.Up(ctx, drv, dsn)
		case "down":
			return migrate.Down(ctx, drv, dsn)
		case "status":
			return migrate.Status(ctx, drv, dsn)
		default:
			v, err := migrate.Version(ctx, drv, dsn)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		}
	},
}

var billFlags struct {
	name        string
	address     string
	sector      string
	consumption string
	out         string
}

var billCmd = &cobra.Command{
	Use:   "bill",
	Short: "Compute a bill and optionally write the invoice PDF",
	Example: `  energyplatform bill --name "Ana María" --address "Calle 45 #23-10" \
    --sector residential --consumption 450.5 --out ./invoices`,
	RunE: runBill,
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Print the sector rate table",
	RunE: func(cmd *cobra.Command, args []string) error {
		rates, err := tariff.Load(cfg.RatesFile)
		if err != nil {
			return err
		}
		printRates(cmd.OutOrStdout(), rates)
		return nil
	},
}

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Work with rendered invoices",
}

var invoiceInspectCmd = &cobra.Command{
	Use:   "inspect <file.pdf>",
	Short: "Print the text lines of an invoice PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		text, err := invoice.ExtractText(content)
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	f := billCmd.Flags()
	f.StringVar(&billFlags.name, "name", "", "Customer name")
	f.StringVar(&billFlags.address, "address", "", "Service address")
	f.StringVar(&billFlags.sector, "sector", "", "Sector: residential, commercial, industrial or public")
	f.StringVar(&billFlags.consumption, "consumption", "", "Consumption in kWh")
	f.StringVar(&billFlags.out, "out", "", "Directory to write the invoice PDF to")

	invoiceCmd.AddCommand(invoiceInspectCmd)
}

func printRates(w io.Writer, rates tariff.RateTable) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTOR\tLABEL\tPRICE")
	for _, e := range rates.Entries() {
		fmt.Fprintf(tw, "%s\t%s\t%s/kWh\n", e.Sector, e.Label, billing.FormatCurrency(e.UnitPrice))
	}
	fmt.Fprintf(tw, "\nContribución alumbrado público: %s\n", billing.SurchargePercent)
	tw.Flush()
}

func runBill(cmd *cobra.Command, args []string) error {
	rates, err := tariff.Load(cfg.RatesFile)
	if err != nil {
		return err
	}
	gen := invoice.NewGenerator(
		invoice.WithLocation(cfg.Location),
		invoice.WithBranding(cfg.PlatformName, cfg.Organization),
	)
	s := simulator.NewSession(billing.NewCalculator(rates), gen)
	s.Fill(billing.BillRequest{
		CustomerName: billFlags.name,
		Address:      billFlags.address,
		Sector:       billFlags.sector,
		Consumption:  billFlags.consumption,
	})

	res, err := s.Submit()
	if err != nil {
		var verr *billing.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("invalid bill: %w", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sector:    %s\n", res.Sector.Label())
	fmt.Fprintf(out, "Consumo:   %s kWh\n", billing.FormatQuantity(res.Consumption))
	fmt.Fprintf(out, "Tarifa:    %s/kWh\n", billing.FormatCurrency(res.UnitPrice))
	fmt.Fprintf(out, "Subtotal:  %s\n", billing.FormatCurrency(res.Subtotal))
	fmt.Fprintf(out, "Alumbrado: %s\n", billing.FormatCurrency(res.PublicLightingSurcharge))
	fmt.Fprintf(out, "TOTAL:     %s\n", billing.FormatCurrency(res.Total))

	if billFlags.out == "" {
		return nil
	}
	doc, err := s.Export()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(billFlags.out, 0o755); err != nil {
		return err
	}
	path := filepath.Join(billFlags.out, doc.Filename)
	if err := os.WriteFile(path, doc.Content, 0o644); err != nil {
		return err
	}
	logger.Info("invoice written", "path", path, "bytes", len(doc.Content))
	return nil
}
