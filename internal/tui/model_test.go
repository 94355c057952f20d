package tui

import (
	"context"
	"sync"
	"testing"

	"vending_client/internal/vending"
	"vending_client/internal/viewmodel"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu       sync.Mutex
	calls    []string
	snap     viewmodel.Snapshot
	updates  chan viewmodel.Snapshot
	selectFn func(vending.Product) error
}

func newFakeController(products ...vending.Product) *fakeController {
	return &fakeController{
		snap:    viewmodel.Snapshot{Products: products},
		updates: make(chan viewmodel.Snapshot, 1),
	}
}

func (f *fakeController) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeController) Snapshot() viewmodel.Snapshot { return f.snap }

func (f *fakeController) Subscribe() (<-chan viewmodel.Snapshot, func()) {
	return f.updates, func() {}
}

func (f *fakeController) Sync(context.Context) error {
	f.record("sync")
	return nil
}

func (f *fakeController) LoadProducts(context.Context) error {
	f.record("load")
	return nil
}

func (f *fakeController) InsertMoney(_ context.Context, amount decimal.Decimal) error {
	f.record("insert:" + amount.String())
	return nil
}

func (f *fakeController) SelectProduct(_ context.Context, p vending.Product) error {
	f.record("select:" + p.ID)
	if f.selectFn != nil {
		return f.selectFn(p)
	}
	return nil
}

func (f *fakeController) ClearSelection(context.Context) error {
	f.record("clear")
	return nil
}

func (f *fakeController) CompleteTransaction(context.Context) error {
	f.record("complete")
	return nil
}

func (f *fakeController) CancelTransaction(context.Context) error {
	f.record("cancel")
	return nil
}

func (f *fakeController) DismissError()   { f.record("dismiss-error") }
func (f *fakeController) DismissReceipt() { f.record("dismiss-receipt") }

type unselectingController struct {
	*fakeController
}

func (u unselectingController) UnselectProduct(_ context.Context, id string) error {
	u.record("unselect:" + id)
	return nil
}

func product(id, price string, quantity int) vending.Product {
	return vending.Product{ID: id, Name: id, Price: decimal.RequireFromString(price), Quantity: quantity}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key(k))
	return next.(Model), cmd
}

func activeSnapshot(products []vending.Product, inserted string, selected ...vending.SelectedProduct) viewmodel.Snapshot {
	return viewmodel.Snapshot{
		Products: products,
		Transaction: &viewmodel.TransactionView{
			InsertedMoney:    decimal.RequireFromString(inserted),
			SelectedProducts: selected,
			Status:           viewmodel.StatusActive,
		},
	}
}

func TestSlotLabel(t *testing.T) {
	assert.Equal(t, "A1", SlotLabel(0))
	assert.Equal(t, "A4", SlotLabel(3))
	assert.Equal(t, "B1", SlotLabel(4))
	assert.Equal(t, "C2", SlotLabel(9))
}

func TestInitSyncs(t *testing.T) {
	f := newFakeController()
	m, unsubscribe := New(context.Background(), f, "", nil)
	defer unsubscribe()

	require.NotNil(t, m.Init())
	msg := m.run("sync", f.Sync)()
	assert.Equal(t, opDoneMsg{op: "sync"}, msg)
	assert.Equal(t, []string{"sync"}, f.Calls())
}

func TestDenominationKeysInsertMoney(t *testing.T) {
	f := newFakeController()
	m, _ := New(context.Background(), f, "", nil)

	for _, k := range []string{"1", "3", "5"} {
		var cmd tea.Cmd
		m, cmd = press(t, m, k)
		require.NotNil(t, cmd)
		cmd()
	}
	assert.Equal(t, []string{"insert:0.5", "insert:2", "insert:10"}, f.Calls())
}

func TestEnterTogglesEligibleProduct(t *testing.T) {
	products := []vending.Product{product("cola", "2.5", 3), product("chips", "1.5", 2)}
	f := newFakeController(products...)
	f.snap = activeSnapshot(products, "5")
	m, _ := New(context.Background(), f, "", nil)

	m, _ = press(t, m, "down")
	_, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, []string{"select:chips"}, f.Calls())
}

func TestEnterSkipsIneligibleProduct(t *testing.T) {
	products := []vending.Product{product("cola", "2.5", 3)}
	f := newFakeController(products...)
	f.snap = activeSnapshot(products, "2")
	m, _ := New(context.Background(), f, "", nil)

	m, cmd := press(t, m, "enter")
	assert.Nil(t, cmd)
	assert.Empty(t, f.Calls())
	assert.Contains(t, m.status, "insufficient balance")
	assert.Contains(t, m.status, "0.50 MAD")
}

func TestEnterWithoutTransactionDefersToViewModel(t *testing.T) {
	products := []vending.Product{product("cola", "2.5", 3)}
	f := newFakeController(products...)
	m, _ := New(context.Background(), f, "", nil)

	_, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"select:cola"}, f.Calls())
}

func TestUnselectWithoutCapabilityIsNoop(t *testing.T) {
	products := []vending.Product{product("cola", "2.5", 3)}
	f := newFakeController(products...)
	m, _ := New(context.Background(), f, "", nil)

	_, cmd := press(t, m, "u")
	require.NotNil(t, cmd)
	assert.Equal(t, opDoneMsg{op: "unselect"}, cmd())
	assert.Empty(t, f.Calls())
}

func TestUnselectWithCapability(t *testing.T) {
	products := []vending.Product{product("cola", "2.5", 3)}
	f := newFakeController(products...)
	m, _ := New(context.Background(), unselectingController{f}, "", nil)

	_, cmd := press(t, m, "u")
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"unselect:cola"}, f.Calls())
}

func TestCompleteRequiresAffordableSelection(t *testing.T) {
	products := []vending.Product{product("cola", "2.5", 3)}
	f := newFakeController(products...)
	f.snap = activeSnapshot(products, "5")
	m, _ := New(context.Background(), f, "", nil)

	_, cmd := press(t, m, "c")
	assert.Nil(t, cmd)

	f.snap = activeSnapshot(products, "5", vending.SelectedProduct{ID: "cola", Name: "cola", Price: decimal.RequireFromString("2.5")})
	m, _ = New(context.Background(), f, "", nil)
	_, cmd = press(t, m, "c")
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, []string{"complete"}, f.Calls())
}

func TestBusyStatus(t *testing.T) {
	f := newFakeController()
	m, _ := New(context.Background(), f, "", nil)

	next, cmd := m.Update(opDoneMsg{op: "insert", err: viewmodel.ErrBusy})
	assert.Nil(t, cmd)
	assert.Equal(t, "Busy, try again", next.(Model).status)
}

func TestEscDismissesErrorAndReceipt(t *testing.T) {
	f := newFakeController()
	f.snap = viewmodel.Snapshot{Err: "boom", Receipt: &viewmodel.Receipt{Outcome: viewmodel.StatusCancelled}}
	m, _ := New(context.Background(), f, "", nil)

	press(t, m, "esc")
	assert.Equal(t, []string{"dismiss-receipt", "dismiss-error"}, f.Calls())
}

func TestSnapshotUpdatesClampCursor(t *testing.T) {
	products := []vending.Product{product("a", "1", 1), product("b", "1", 1)}
	f := newFakeController(products...)
	m, _ := New(context.Background(), f, "", nil)
	m, _ = press(t, m, "down")
	require.Equal(t, 1, m.cursor)

	next, cmd := m.Update(snapshotMsg(viewmodel.Snapshot{Products: products[:1]}))
	assert.NotNil(t, cmd)
	assert.Equal(t, 0, next.(Model).cursor)
}

func TestView(t *testing.T) {
	products := []vending.Product{product("cola", "2.5", 3), product("water", "1", 0)}
	f := newFakeController(products...)
	f.snap = activeSnapshot(products, "5", vending.SelectedProduct{ID: "cola", Name: "cola", Price: decimal.RequireFromString("2.5")})
	m, _ := New(context.Background(), f, "", nil)

	view := m.View()
	assert.Contains(t, view, "A1")
	assert.Contains(t, view, "A2")
	assert.Contains(t, view, "[selected]")
	assert.Contains(t, view, "(out of stock)")
	assert.Contains(t, view, "Inserted:  5.00 MAD")
	assert.Contains(t, view, "Remaining: 2.50 MAD")
	assert.Contains(t, view, "[1] 0.5 MAD")
}

func TestViewReceipt(t *testing.T) {
	f := newFakeController()
	f.snap = viewmodel.Snapshot{Receipt: &viewmodel.Receipt{
		Outcome: viewmodel.StatusCompleted,
		Order: vending.Order{
			SelectedProducts: []vending.SelectedProduct{{ID: "cola", Name: "cola", Price: decimal.RequireFromString("2.5")}},
			ReturnedMoney:    []vending.Money{{Value: decimal.RequireFromString("2")}, {Value: decimal.RequireFromString("0.5")}},
		},
	}}
	m, _ := New(context.Background(), f, "", nil)

	view := m.View()
	assert.Contains(t, view, "Purchase complete")
	assert.Contains(t, view, "Change: 2.50 MAD")
	assert.Contains(t, view, "Insert money to start a transaction.")
}
