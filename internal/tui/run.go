package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, vm Controller, currency string, logger *zap.Logger) error {
	model, unsubscribe := New(ctx, vm, currency, logger)
	defer unsubscribe()

	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
