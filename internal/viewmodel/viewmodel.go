package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"vending_client/internal/metrics"
	"vending_client/internal/money"
	"vending_client/internal/vending"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNoTransaction = errors.New("please insert money first to start a transaction")
	ErrBusy          = errors.New("another operation is in progress")
)

// Backend is the subset of the vending REST API the view model drives.
type Backend interface {
	ListProducts(ctx context.Context) ([]vending.Product, error)
	SelectProduct(ctx context.Context, productID string) error
	UnselectProduct(ctx context.Context, productID string) error
	InsertMoney(ctx context.Context, amount decimal.Decimal) error
	InsertedMoney(ctx context.Context) (decimal.Decimal, error)
	SelectedProducts(ctx context.Context) ([]vending.SelectedProduct, error)
	CompleteTransaction(ctx context.Context) (vending.Order, error)
	CancelTransaction(ctx context.Context) (vending.Order, error)
}

type ViewModel struct {
	backend Backend
	logger  *zap.Logger
	metrics *metrics.ClientMetrics

	mu          sync.Mutex
	state       Snapshot
	seq         uint64
	subscribers map[int]chan Snapshot
	nextSubID   int
}

func New(backend Backend, logger *zap.Logger, m *metrics.ClientMetrics) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewModel{
		backend:     backend,
		logger:      logger.Named("viewmodel"),
		metrics:     m,
		subscribers: map[int]chan Snapshot{},
	}
}

func (vm *ViewModel) Snapshot() Snapshot {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Subscribe returns a channel that always holds the latest snapshot. Slow
// readers miss intermediate states, never the most recent one.
func (vm *ViewModel) Subscribe() (<-chan Snapshot, func()) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	id := vm.nextSubID
	vm.nextSubID++
	ch := make(chan Snapshot, 1)
	vm.subscribers[id] = ch

	return ch, func() {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		delete(vm.subscribers, id)
	}
}

func (vm *ViewModel) dispatch(e event) Snapshot {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.applyLocked(e)
}

func (vm *ViewModel) applyLocked(e event) Snapshot {
	vm.state = reduce(vm.state, e)
	for _, ch := range vm.subscribers {
		publish(ch, vm.state)
	}
	return vm.state
}

func publish(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

// stamp records the epoch and a fresh sequence number for a refresh about to
// be issued.
func (vm *ViewModel) stamp() (uint64, uint64) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.seq++
	return vm.state.epoch, vm.seq
}

// begin claims the single mutation slot.
func (vm *ViewModel) begin(requireActive bool) (Snapshot, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if requireActive && !vm.state.Active() {
		return vm.state, ErrNoTransaction
	}
	if vm.state.Mutating {
		return vm.state, ErrBusy
	}
	return vm.applyLocked(mutationStarted{}), nil
}

func (vm *ViewModel) fail(op string, err error) error {
	vm.logger.Warn("operation failed", zap.String("op", op), zap.Error(err))
	vm.dispatch(mutationFailed{message: err.Error()})
	return fmt.Errorf("%s: %w", op, err)
}

func (vm *ViewModel) settle() {
	vm.dispatch(mutationSettled{})
}

func (vm *ViewModel) LoadProducts(ctx context.Context) error {
	vm.dispatch(catalogRequested{})

	products, err := vm.backend.ListProducts(ctx)
	if err != nil {
		vm.logger.Warn("load products failed", zap.Error(err))
		vm.dispatch(catalogFailed{message: err.Error()})
		return fmt.Errorf("load products: %w", err)
	}

	vm.dispatch(catalogLoaded{products: products})
	vm.logger.Debug("products loaded", zap.Int("count", len(products)))
	return nil
}

// RefreshInsertedMoney never reports failure. A 404 means the backend has
// no open transaction and counts as zero; anything else is dropped.
func (vm *ViewModel) RefreshInsertedMoney(ctx context.Context) {
	epoch, seq := vm.stamp()
	value, err := vm.backend.InsertedMoney(ctx)
	if err != nil {
		if !errors.Is(err, vending.ErrNotFound) {
			vm.swallow("money", err)
			return
		}
		value = decimal.Zero
	}
	vm.metrics.ObserveRefresh("money", "applied")
	vm.dispatch(moneyRefreshed{value: value, epoch: epoch, seq: seq})
}

// RefreshSelectedProducts follows the same rules as RefreshInsertedMoney.
func (vm *ViewModel) RefreshSelectedProducts(ctx context.Context) {
	epoch, seq := vm.stamp()
	selected, err := vm.backend.SelectedProducts(ctx)
	if err != nil {
		if !errors.Is(err, vending.ErrNotFound) {
			vm.swallow("selection", err)
			return
		}
		selected = nil
	}
	vm.metrics.ObserveRefresh("selection", "applied")
	vm.dispatch(selectionRefreshed{selected: selected, epoch: epoch, seq: seq})
}

func (vm *ViewModel) swallow(field string, err error) {
	vm.metrics.ObserveRefresh(field, "swallowed")
	vm.logger.Debug("refresh failed", zap.String("field", field), zap.Error(err))
}

// Refresh runs both refreshes one after the other.
func (vm *ViewModel) Refresh(ctx context.Context) {
	vm.RefreshInsertedMoney(ctx)
	vm.RefreshSelectedProducts(ctx)
}

// Poll runs both refreshes concurrently, as the periodic poller does.
func (vm *ViewModel) Poll(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		vm.RefreshInsertedMoney(ctx)
	}()
	go func() {
		defer wg.Done()
		vm.RefreshSelectedProducts(ctx)
	}()
	wg.Wait()
}

// Sync loads the catalog and picks up a transaction already open on the
// backend.
func (vm *ViewModel) Sync(ctx context.Context) error {
	err := vm.LoadProducts(ctx)
	vm.Refresh(ctx)
	return err
}

func (vm *ViewModel) InsertMoney(ctx context.Context, amount decimal.Decimal) error {
	if _, err := vm.begin(false); err != nil {
		return err
	}
	if !money.IsDenomination(amount) {
		return vm.fail("insert money", fmt.Errorf("%w: %s", money.ErrUnknownDenomination, amount.String()))
	}

	if err := vm.backend.InsertMoney(ctx, amount); err != nil {
		return vm.fail("insert money", err)
	}
	vm.logger.Info("money inserted", zap.String("amount", amount.String()))

	vm.RefreshInsertedMoney(ctx)
	vm.RefreshSelectedProducts(ctx)
	vm.settle()
	return nil
}

// SelectProduct toggles product. Membership is decided by a freshly fetched
// selection snapshot, not by the local view.
func (vm *ViewModel) SelectProduct(ctx context.Context, product vending.Product) error {
	if _, err := vm.begin(true); err != nil {
		if errors.Is(err, ErrNoTransaction) {
			vm.dispatch(errorRaised{message: err.Error()})
		}
		return err
	}

	current, err := vm.backend.SelectedProducts(ctx)
	if err != nil {
		return vm.fail("select product", err)
	}

	if vending.ContainsProduct(current, product.ID) {
		err = vm.backend.UnselectProduct(ctx, product.ID)
	} else {
		err = vm.backend.SelectProduct(ctx, product.ID)
	}
	if err != nil {
		return vm.fail("select product", err)
	}
	vm.logger.Info("product toggled",
		zap.String("product_id", product.ID),
		zap.Bool("was_selected", vending.ContainsProduct(current, product.ID)),
	)

	vm.RefreshSelectedProducts(ctx)
	vm.settle()
	return nil
}

func (vm *ViewModel) UnselectProduct(ctx context.Context, productID string) error {
	if _, err := vm.begin(false); err != nil {
		return err
	}

	if err := vm.backend.UnselectProduct(ctx, productID); err != nil {
		return vm.fail("unselect product", err)
	}

	vm.RefreshSelectedProducts(ctx)
	vm.settle()
	return nil
}

// ClearSelection unselects every known selection in order. A failure stops
// the sequence; products already unselected stay unselected.
func (vm *ViewModel) ClearSelection(ctx context.Context) error {
	snap, err := vm.begin(false)
	if err != nil {
		return err
	}
	selected := snap.SelectedProducts()
	if len(selected) == 0 {
		vm.settle()
		return nil
	}

	for i, p := range selected {
		if err := vm.backend.UnselectProduct(ctx, p.ID); err != nil {
			vm.logger.Warn("clear selection aborted",
				zap.Int("unselected", i),
				zap.Int("total", len(selected)),
			)
			return vm.fail("clear selection", err)
		}
	}

	vm.RefreshSelectedProducts(ctx)
	vm.settle()
	return nil
}

func (vm *ViewModel) CompleteTransaction(ctx context.Context) error {
	if _, err := vm.begin(true); err != nil {
		return err
	}
	vm.dispatch(completionStarted{})

	order, err := vm.backend.CompleteTransaction(ctx)
	if err != nil {
		return vm.fail("complete transaction", err)
	}
	vm.logger.Info("transaction completed",
		zap.Int("products", len(order.SelectedProducts)),
		zap.String("change", order.TotalChange().String()),
	)

	vm.dispatch(transactionClosed{order: order, outcome: StatusCompleted})
	vm.settle()

	// Quantities changed on the backend. A failure here is surfaced by
	// LoadProducts itself and does not undo the purchase.
	_ = vm.LoadProducts(ctx)
	return nil
}

func (vm *ViewModel) CancelTransaction(ctx context.Context) error {
	if _, err := vm.begin(true); err != nil {
		return err
	}

	order, err := vm.backend.CancelTransaction(ctx)
	if err != nil {
		return vm.fail("cancel transaction", err)
	}
	vm.logger.Info("transaction cancelled", zap.String("refund", order.TotalChange().String()))

	vm.dispatch(transactionClosed{order: order, outcome: StatusCancelled})
	vm.settle()
	return nil
}

func (vm *ViewModel) DismissError() {
	vm.dispatch(errorDismissed{})
}

func (vm *ViewModel) DismissReceipt() {
	vm.dispatch(receiptDismissed{})
}
