// Package checkout drives one payment dialog from opening the form to a
// confirmation or a failure.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"farmsmart/internal/backend"
	"farmsmart/internal/domain"
	"farmsmart/internal/notify"
	"farmsmart/internal/query"
	cartsvc "farmsmart/internal/service/cart"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrSubmitInProgress  = errors.New("checkout already in progress")
	ErrInvalidTransition = errors.New("invalid checkout transition")
	ErrNothingToPay      = errors.New("nothing to pay for")
)

const (
	msgSuccess = "Payment successful! Order confirmed."
	msgFailure = "Payment failed. Please try again."
)

// OrdersKey is the cache prefix invalidated after a successful payment.
var OrdersKey = query.Key{"orders"}

type cartStore interface {
	Lines() []domain.CartLine
	Deduct(paid []domain.CartLine)
}

type invalidator interface {
	Invalidate(prefix query.Key)
}

type authenticator interface {
	Require() (string, error)
}

// Confirmation is what the confirmation view shows.
type Confirmation struct {
	Number string          `json:"confirmationNumber"`
	Total  decimal.Decimal `json:"total"`
	Order  domain.Order    `json:"order"`
}

// DisplayTotal renders the total as shown to the user, e.g. "$73.49".
func (c Confirmation) DisplayTotal() string {
	return "$" + c.Total.StringFixed(2)
}

// Form holds the non-sensitive fields kept between attempts.
type Form struct {
	HolderName string `json:"holderName"`
	Expiry     string `json:"expiry"`
}

// View is a snapshot of the flow for rendering.
type View struct {
	State        State              `json:"state"`
	Source       Source             `json:"source,omitempty"`
	Lines        []domain.CartLine  `json:"lines"`
	Total        decimal.Decimal    `json:"total"`
	Form         Form               `json:"form"`
	Errors       domain.FieldErrors `json:"errors,omitempty"`
	LastOutcome  State              `json:"lastOutcome,omitempty"`
	Confirmation *Confirmation      `json:"confirmation,omitempty"`
}

type Flow struct {
	client   backend.Client
	cart     cartStore
	auth     authenticator
	cache    invalidator
	notifier notify.Notifier
	logger   *zap.Logger

	mu           sync.Mutex
	state        State
	source       Source
	lines        []domain.CartLine
	form         Form
	errs         domain.FieldErrors
	lastOutcome  State
	confirmation *Confirmation
	// epoch changes on Reset; a submission started under an older epoch
	// must not commit its outcome.
	epoch uint64
}

func New(client backend.Client, cart cartStore, auth authenticator, cache invalidator, n notify.Notifier, logger *zap.Logger) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{
		client:   client,
		cart:     cart,
		auth:     auth,
		cache:    cache,
		notifier: n,
		logger:   logger,
		state:    StateIdle,
	}
}

// OpenCart opens the form for the current store cart.
func (f *Flow) OpenCart() error {
	return f.Open(SourceCart, f.cart.Lines())
}

// Open starts a new attempt for lines. Reopening a finished or still-open
// dialog starts over from idle.
func (f *Flow) Open(source Source, lines []domain.CartLine) error {
	if _, err := f.auth.Require(); err != nil {
		return err
	}
	if len(lines) == 0 {
		return ErrNothingToPay
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case StateValidating, StateSubmitting:
		return ErrSubmitInProgress
	case StateSucceeded, StateFormOpen:
		f.resetLocked()
	}
	if err := f.moveLocked(StateFormOpen); err != nil {
		return err
	}
	f.source = source
	f.lines = append([]domain.CartLine(nil), lines...)
	for i := range f.lines {
		if f.lines[i].Quantity < 1 {
			f.lines[i].Quantity = 1
		}
	}
	return nil
}

// Submit validates details and, when they pass, issues exactly one checkout
// call. Validation failures come back as domain.FieldErrors without any
// remote call.
func (f *Flow) Submit(ctx context.Context, details domain.PaymentDetails) (*Confirmation, error) {
	f.mu.Lock()
	switch f.state {
	case StateValidating, StateSubmitting:
		f.mu.Unlock()
		return nil, ErrSubmitInProgress
	case StateFormOpen:
	default:
		cur := f.state
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, cur)
	}

	_ = f.moveLocked(StateValidating)
	f.form = Form{HolderName: strings.TrimSpace(details.HolderName), Expiry: strings.TrimSpace(details.Expiry)}
	if errs := Validate(details); len(errs) > 0 {
		f.errs = errs
		_ = f.moveLocked(StateFormOpen)
		f.mu.Unlock()
		return nil, errs
	}
	f.errs = nil

	_ = f.moveLocked(StateSubmitting)
	source := f.source
	epoch := f.epoch
	paid := append([]domain.CartLine(nil), f.lines...)
	req := domain.CheckoutRequest{
		Items:         storeItems(f.lines),
		Total:         cartsvc.Total(f.lines),
		PaymentMethod: Redact(details),
	}
	f.mu.Unlock()

	order, err := f.client.Checkout(ctx, req)
	if err == nil && order == nil {
		err = errors.New("empty checkout response")
	}

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		f.logger.Warn("checkout finished after the dialog was reset, outcome not applied",
			zap.String("source", string(source)), zap.Error(err))
		if err != nil {
			return nil, err
		}
		return &Confirmation{Number: order.ConfirmationNumber, Total: order.Total, Order: *order}, nil
	}
	if err != nil {
		_ = f.moveLocked(StateFailed)
		f.lastOutcome = StateFailed
		_ = f.moveLocked(StateFormOpen)
		f.mu.Unlock()

		f.logger.Warn("checkout failed", zap.String("source", string(source)), zap.Error(err))
		f.notifier.Error(msgFailure)
		return nil, err
	}

	conf := &Confirmation{Number: order.ConfirmationNumber, Total: order.Total, Order: *order}
	_ = f.moveLocked(StateSucceeded)
	f.lastOutcome = StateSucceeded
	f.confirmation = conf
	f.mu.Unlock()

	if source == SourceCart {
		f.cart.Deduct(paid)
	}
	f.cache.Invalidate(OrdersKey)
	f.logger.Info("checkout succeeded",
		zap.String("source", string(source)),
		zap.String("confirmation", conf.Number),
		zap.String("total", conf.Total.StringFixed(2)))
	f.notifier.Success(msgSuccess)
	return conf, nil
}

// Close dismisses the dialog. A running submission cannot be closed.
func (f *Flow) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case StateIdle:
		return nil
	case StateValidating, StateSubmitting:
		return ErrSubmitInProgress
	}
	f.resetLocked()
	return nil
}

// Reset abandons the dialog whatever its state, dropping the form and the
// last outcome. Used when the identity changes; a submission still in flight
// keeps its result to itself.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.epoch++
	f.resetLocked()
	f.lastOutcome = ""
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := View{
		State:       f.state,
		Source:      f.source,
		Lines:       append([]domain.CartLine{}, f.lines...),
		Total:       cartsvc.Total(f.lines),
		Form:        f.form,
		LastOutcome: f.lastOutcome,
	}
	if len(f.errs) > 0 {
		v.Errors = make(domain.FieldErrors, len(f.errs))
		for k, msg := range f.errs {
			v.Errors[k] = msg
		}
	}
	if f.confirmation != nil {
		c := *f.confirmation
		v.Confirmation = &c
	}
	return v
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) moveLocked(next State) error {
	if !f.state.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.state, next)
	}
	f.state = next
	return nil
}

// resetLocked goes back to idle. The last outcome survives so the view can
// still tell a reopened dialog what happened before.
func (f *Flow) resetLocked() {
	f.state = StateIdle
	f.source = ""
	f.lines = nil
	f.form = Form{}
	f.errs = nil
	f.confirmation = nil
}

func storeItems(lines []domain.CartLine) []domain.StoreItem {
	items := make([]domain.StoreItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.StoreItem{ID: l.ItemID, Name: l.Name, Stock: int64(l.Quantity), Price: l.UnitPrice})
	}
	return items
}
