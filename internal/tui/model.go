package tui

import (
	"context"
	"errors"

	"vending_client/internal/money"
	"vending_client/internal/vending"
	"vending_client/internal/viewmodel"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Controller is what the terminal UI drives. *viewmodel.ViewModel satisfies it.
type Controller interface {
	Snapshot() viewmodel.Snapshot
	Subscribe() (<-chan viewmodel.Snapshot, func())
	Sync(ctx context.Context) error
	LoadProducts(ctx context.Context) error
	InsertMoney(ctx context.Context, amount decimal.Decimal) error
	SelectProduct(ctx context.Context, product vending.Product) error
	ClearSelection(ctx context.Context) error
	CompleteTransaction(ctx context.Context) error
	CancelTransaction(ctx context.Context) error
	DismissError()
	DismissReceipt()
}

// Unselector is an optional controller capability. When the controller lacks
// it, the unselect key does nothing.
type Unselector interface {
	UnselectProduct(ctx context.Context, productID string) error
}

type noopUnselector struct{}

func (noopUnselector) UnselectProduct(context.Context, string) error { return nil }

type snapshotMsg viewmodel.Snapshot

type opDoneMsg struct {
	op  string
	err error
}

type Model struct {
	ctx        context.Context
	vm         Controller
	unselector Unselector
	updates    <-chan viewmodel.Snapshot
	logger     *zap.Logger
	currency   string

	snap   viewmodel.Snapshot
	cursor int
	status string
}

// New builds the model. The caller owns the subscription and must release it
// with the returned func once the program exits.
func New(ctx context.Context, vm Controller, currency string, logger *zap.Logger) (Model, func()) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = money.DefaultCurrency
	}
	var unselector Unselector = noopUnselector{}
	if u, ok := vm.(Unselector); ok {
		unselector = u
	}

	updates, unsubscribe := vm.Subscribe()
	return Model{
		ctx:        ctx,
		vm:         vm,
		unselector: unselector,
		updates:    updates,
		logger:     logger.Named("tui"),
		currency:   currency,
		snap:       vm.Snapshot(),
		status:     "Ready",
	}, unsubscribe
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForSnapshot(m.updates),
		m.run("sync", m.vm.Sync),
	)
}

func waitForSnapshot(updates <-chan viewmodel.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return nil
		}
		return snapshotMsg(s)
	}
}

// run executes op off the UI goroutine and reports back with opDoneMsg.
func (m Model) run(name string, op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: name, err: op(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case snapshotMsg:
		m.snap = viewmodel.Snapshot(msg)
		m.clampCursor()
		return m, waitForSnapshot(m.updates)
	case opDoneMsg:
		m.status = opStatus(msg)
		if msg.err != nil && !errors.Is(msg.err, viewmodel.ErrBusy) {
			m.logger.Debug("operation failed", zap.String("op", msg.op), zap.Error(msg.err))
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.snap.Products)-1 {
			m.cursor++
		}
	case "1", "2", "3", "4", "5":
		amount := money.Denominations[int(key[0]-'1')]
		m.status = "Inserting " + money.FormatIn(amount, m.currency) + "..."
		return m, m.run("insert", func(ctx context.Context) error {
			return m.vm.InsertMoney(ctx, amount)
		})
	case "enter", " ":
		return m.toggle()
	case "u", "backspace":
		p, ok := m.current()
		if !ok {
			return m, nil
		}
		return m, m.run("unselect", func(ctx context.Context) error {
			return m.unselector.UnselectProduct(ctx, p.ID)
		})
	case "c":
		if !m.snap.CanComplete() {
			m.status = "Select products you can pay for first"
			return m, nil
		}
		m.status = "Completing..."
		return m, m.run("complete", m.vm.CompleteTransaction)
	case "x":
		m.status = "Cancelling..."
		return m, m.run("cancel", m.vm.CancelTransaction)
	case "r":
		return m, m.run("clear", m.vm.ClearSelection)
	case "l":
		return m, m.run("reload", m.vm.LoadProducts)
	case "esc":
		if m.snap.Receipt != nil {
			m.vm.DismissReceipt()
		}
		if m.snap.Err != "" {
			m.vm.DismissError()
		}
		m.status = ""
	}
	return m, nil
}

func (m Model) toggle() (tea.Model, tea.Cmd) {
	p, ok := m.current()
	if !ok {
		return m, nil
	}
	// Without a transaction the view model reports the error itself.
	e := m.snap.Eligibility(p)
	if !e.Selectable && e.Reason != viewmodel.ReasonNoTransaction {
		m.status = p.Name + ": " + reasonText(e, m.currency)
		return m, nil
	}
	return m, m.run("select", func(ctx context.Context) error {
		return m.vm.SelectProduct(ctx, p)
	})
}

func (m Model) current() (vending.Product, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Products) {
		return vending.Product{}, false
	}
	return m.snap.Products[m.cursor], true
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.snap.Products) {
		m.cursor = len(m.snap.Products) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func opStatus(msg opDoneMsg) string {
	switch {
	case msg.err == nil:
		return "Done: " + msg.op
	case errors.Is(msg.err, viewmodel.ErrBusy):
		return "Busy, try again"
	default:
		return "Failed: " + msg.op
	}
}

func reasonText(e viewmodel.Eligibility, currency string) string {
	if e.Reason == viewmodel.ReasonInsufficientBalance {
		return string(e.Reason) + ", need " + money.FormatIn(e.Shortfall, currency) + " more"
	}
	return string(e.Reason)
}
