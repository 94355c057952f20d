package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"vending_client/internal/money"

	"go.uber.org/zap"
)

func writeResponse(out io.Writer, opts *Options, resp response) error {
	if opts.JSON {
		return writeJSONResponse(out, resp)
	}
	return writeHumanResponse(out, opts.Currency, resp)
}

func writeJSONResponse(out io.Writer, resp response) error {
	enc := json.NewEncoder(out)
	return enc.Encode(resp)
}

func writeHumanResponse(out io.Writer, currency string, resp response) error {
	if resp.Products != nil {
		writeProducts(out, currency, resp.Products)
	}
	if resp.Denominations != nil {
		fmt.Fprintln(out, "Accepted:")
		for _, d := range resp.Denominations {
			fmt.Fprintf(out, "- %s %s\n", d, currency)
		}
	}
	if resp.Transaction != nil {
		writeStatus(out, currency, resp.Transaction)
	}
	if resp.Receipt != nil {
		writeReceipt(out, currency, resp.Receipt)
	}
	return nil
}

func writeProducts(out io.Writer, currency string, products []productView) {
	if len(products) == 0 {
		fmt.Fprintln(out, "- (no products)")
		return
	}
	for _, p := range products {
		fmt.Fprintf(out, "%s) %s (id=%s, price=%s, left=%d", p.Slot, p.Name, p.ID, money.FormatIn(p.Price, currency), p.Quantity)
		if p.Selected {
			fmt.Fprint(out, ", selected")
		}
		if p.Reason != "" {
			fmt.Fprintf(out, ", %s", p.Reason)
		}
		fmt.Fprintln(out, ")")
	}
}

func writeStatus(out io.Writer, currency string, s *statusView) {
	if !s.Active {
		fmt.Fprintln(out, "No active transaction.")
		return
	}
	fmt.Fprintln(out, "Transaction:")
	fmt.Fprintf(out, "- inserted: %s\n", money.FormatIn(s.InsertedMoney, currency))
	fmt.Fprintf(out, "- total: %s\n", money.FormatIn(s.TotalCost, currency))
	fmt.Fprintf(out, "- remaining: %s\n", money.FormatIn(s.Remaining, currency))
	if len(s.Selected) == 0 {
		fmt.Fprintln(out, "- selected: (none)")
	} else {
		fmt.Fprintln(out, "- selected:")
		for i, p := range s.Selected {
			fmt.Fprintf(out, "  %d) %s (%s)\n", i+1, p.Name, money.FormatIn(p.Price, currency))
		}
	}
	if s.CanComplete {
		fmt.Fprintln(out, "Ready to complete.")
	}
}

func writeReceipt(out io.Writer, currency string, r *receiptView) {
	fmt.Fprintf(out, "Transaction %s.\n", r.Outcome)
	for i, p := range r.Products {
		fmt.Fprintf(out, "%d) %s (%s)\n", i+1, p.Name, money.FormatIn(p.Price, currency))
	}
	fmt.Fprintf(out, "Total: %s\n", money.FormatIn(r.Total, currency))
	fmt.Fprintf(out, "Change: %s\n", money.FormatIn(r.Change, currency))
}

func logResponse(logger *zap.Logger, resp response) {
	if logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("command", resp.Command),
		zap.Int("products_count", len(resp.Products)),
	}
	if resp.Transaction != nil {
		fields = append(fields,
			zap.Bool("active", resp.Transaction.Active),
			zap.String("inserted", resp.Transaction.InsertedMoney.String()),
			zap.Int("selected_count", len(resp.Transaction.Selected)),
		)
	}
	if resp.Receipt != nil {
		fields = append(fields,
			zap.String("outcome", resp.Receipt.Outcome),
			zap.String("change", resp.Receipt.Change.String()),
		)
	}
	logger.Info("response", fields...)
}
