package tui

import (
	"fmt"
	"strings"

	"vending_client/internal/money"
	"vending_client/internal/viewmodel"
)

const slotsPerRow = 4

// SlotLabel names the index-th product the way machine slots are marked:
// rows of four lettered A, B, C and numbered from 1.
func SlotLabel(index int) string {
	row := rune('A' + index/slotsPerRow)
	return fmt.Sprintf("%c%d", row, index%slotsPerRow+1)
}

func (m Model) View() string {
	b := &strings.Builder{}
	s := m.snap

	fmt.Fprintln(b, "Vending machine")
	fmt.Fprintln(b, "")

	if s.CatalogLoading && len(s.Products) == 0 {
		fmt.Fprintln(b, "Loading products...")
	}
	for i, p := range s.Products {
		marker := " "
		if i == m.cursor {
			marker = ">"
		}
		e := s.Eligibility(p)
		line := fmt.Sprintf(" %s %-3s %-20s %12s  x%d", marker, SlotLabel(i), p.Name, money.FormatIn(p.Price, m.currency), p.Quantity)
		switch {
		case e.Selected:
			line += "  [selected]"
		case !e.Selectable && e.Reason != viewmodel.ReasonNone:
			line += "  (" + reasonText(e, m.currency) + ")"
		}
		fmt.Fprintln(b, line)
	}
	fmt.Fprintln(b, "")

	if s.Active() {
		fmt.Fprintf(b, "Inserted:  %s\n", money.FormatIn(s.InsertedMoney(), m.currency))
		fmt.Fprintf(b, "Total:     %s\n", money.FormatIn(s.TotalCost(), m.currency))
		fmt.Fprintf(b, "Remaining: %s\n", money.FormatIn(s.RemainingBalance(), m.currency))
		if selected := s.SelectedProducts(); len(selected) > 0 {
			fmt.Fprintln(b, "Selected:")
			for _, p := range selected {
				fmt.Fprintf(b, " - %s (%s)\n", p.Name, money.FormatIn(p.Price, m.currency))
			}
		}
		if s.Transaction.Status == viewmodel.StatusCompleting {
			fmt.Fprintln(b, "Completing purchase...")
		}
	} else {
		fmt.Fprintln(b, "Insert money to start a transaction.")
	}

	if s.Receipt != nil {
		fmt.Fprintln(b, "")
		writeReceipt(b, s.Receipt, m.currency)
	}
	if s.Err != "" {
		fmt.Fprintf(b, "\nError: %s (esc to dismiss)\n", s.Err)
	}
	if m.status != "" {
		fmt.Fprintf(b, "\nStatus: %s\n", m.status)
	}

	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Money: "+denominationKeys(m.currency))
	fmt.Fprintln(b, "Controls: up/down move, enter toggle, u unselect, r clear, c complete, x cancel, l reload, esc dismiss, q quit")
	return b.String()
}

func writeReceipt(b *strings.Builder, r *viewmodel.Receipt, currency string) {
	switch r.Outcome {
	case viewmodel.StatusCancelled:
		fmt.Fprintln(b, "Transaction cancelled")
	default:
		fmt.Fprintln(b, "Purchase complete")
		for _, p := range r.Order.SelectedProducts {
			fmt.Fprintf(b, " - %s (%s)\n", p.Name, money.FormatIn(p.Price, currency))
		}
		fmt.Fprintf(b, "Total:  %s\n", money.FormatIn(r.Order.TotalCost(), currency))
	}
	fmt.Fprintf(b, "Change: %s\n", money.FormatIn(r.Order.TotalChange(), currency))
}

func denominationKeys(currency string) string {
	parts := make([]string, 0, len(money.Denominations))
	for i, d := range money.Denominations {
		parts = append(parts, fmt.Sprintf("[%d] %s %s", i+1, d.String(), currency))
	}
	return strings.Join(parts, "  ")
}
