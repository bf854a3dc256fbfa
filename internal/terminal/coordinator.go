// Package terminal реализует координатор продажи — машину состояний,
// связывающую сканер, весы, корзину, принтер и внешние системы.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Mango070919/MeatDepotApp-sub001/internal/cart"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/model"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/repository"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/scanner"
)

// State описывает фазу жизненного цикла продажи.
type State string

const (
	// StateBuilding — набор корзины: сканы, выбор товаров, правки позиций.
	StateBuilding State = "BUILDING"
	// StateAwaitingPayment — способ оплаты выбран, ожидается подтверждение.
	StateAwaitingPayment State = "AWAITING_PAYMENT_INPUT"
	// StateCompleting — снимок продажи передаётся внешним системам.
	StateCompleting State = "COMPLETING"
)

// historyDepth — глубина кольца завершённых продаж для повторной печати.
const historyDepth = 20

// ErrInvalidTransition возвращается на действие, запрещённое в текущем
// состоянии продажи; продажа при этом не меняется.
var (
	ErrInvalidTransition = errors.New("action not allowed in current state")
	// ErrEmptyCart возвращается при попытке завершить продажу без позиций.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInsufficientTendered возвращается, когда внесённых наличных меньше суммы продажи.
	ErrInsufficientTendered = errors.New("tendered amount below total")
	// ErrSaleNotFound возвращается, когда продажи нет в истории повторной печати.
	ErrSaleNotFound = errors.New("sale not found in history")
)

// Catalog описывает контракт каталога товаров, принадлежащего внешней
// системе; терминалу каталог доступен только на чтение.
type Catalog interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProductByBarcode(ctx context.Context, code string) (*model.Product, error)
	GetProductByID(ctx context.Context, id int64) (*model.Product, error)
}

// SaleSink описывает контракт приёмника завершённых продаж.
type SaleSink interface {
	RecordCompletedSale(ctx context.Context, tx model.Transaction) error
}

// WeightSource отдаёт последнее живое показание весов.
type WeightSource interface {
	CurrentWeightGrams() (float64, bool)
	State() model.DeviceState
	Stale() bool
}

// ReceiptPrinter печатает чек завершённой продажи.
type ReceiptPrinter interface {
	Print(tx model.Transaction, profile model.BusinessProfile) error
	State() model.DeviceState
}

// Coordinator владеет открытой продажей. Корзину изменяет только он,
// и только под собственной блокировкой: устройства поставляют значения,
// но никогда не трогают позиции напрямую.
type Coordinator struct {
	catalog Catalog
	sink    SaleSink
	scale   WeightSource
	printer ReceiptPrinter
	profile model.BusinessProfile
	logger  *zap.Logger

	mu       sync.Mutex
	decoder  *scanner.Decoder
	engine   *cart.Engine
	state    State
	txID     uuid.UUID
	openedAt time.Time
	payment  model.PaymentMethod
	tendered *decimal.Decimal
	history  []model.Transaction
}

// NewCoordinator создаёт координатор с пустой продажей в состоянии набора.
func NewCoordinator(catalog Catalog, sink SaleSink, scale WeightSource, printer ReceiptPrinter, profile model.BusinessProfile, logger *zap.Logger) *Coordinator {
	c := &Coordinator{
		catalog: catalog,
		sink:    sink,
		scale:   scale,
		printer: printer,
		profile: profile,
		logger:  logger,
		decoder: scanner.NewDecoder(),
		engine:  cart.NewEngine(),
	}
	c.resetLocked()
	return c
}

// resetLocked открывает новую пустую продажу. Вызывается под блокировкой.
func (c *Coordinator) resetLocked() {
	c.engine.Reset()
	c.state = StateBuilding
	c.txID = uuid.New()
	c.openedAt = time.Now()
	c.payment = ""
	c.tendered = nil
}

// HandleKey обрабатывает одно нажатие клавиши с общего экрана. Если
// нажатие завершает пакет сканера, штрихкод разрешается через каталог
// и товар попадает в корзину. Неизвестный код — не ошибка продажи:
// он логируется и сессия продолжается.
func (c *Coordinator) HandleKey(ctx context.Context, key string) (*model.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	code, ok := c.decoder.OnKey(key, time.Now())
	if !ok {
		return nil, nil
	}

	if c.state != StateBuilding {
		return nil, ErrInvalidTransition
	}

	p, err := c.resolveScan(ctx, code)
	if err != nil {
		c.logger.Warn("scan failed", zap.String("code", code), zap.Error(err))
		return nil, nil
	}

	line := c.addProductLocked(*p)
	return &line, nil
}

// resolveScan ищет товар по штрихкоду, затем по числовому идентификатору:
// часть товаров маркируется внутренними PLU без штрихкода производителя.
func (c *Coordinator) resolveScan(ctx context.Context, code string) (*model.Product, error) {
	if !scanner.IsValidCode(code) {
		return nil, fmt.Errorf("%w: malformed code", repository.ErrProductNotFound)
	}

	p, err := c.catalog.GetProductByBarcode(ctx, code)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrProductNotFound) {
		return nil, err
	}

	id, convErr := strconv.ParseInt(code, 10, 64)
	if convErr != nil {
		return nil, err
	}
	return c.catalog.GetProductByID(ctx, id)
}

// SelectProduct добавляет товар, выбранный касанием или поиском на экране.
func (c *Coordinator) SelectProduct(ctx context.Context, productID int64) (*model.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateBuilding {
		return nil, ErrInvalidTransition
	}

	p, err := c.catalog.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	line := c.addProductLocked(*p)
	return &line, nil
}

// addProductLocked кладёт товар в корзину, снимая живой вес с весов
// в момент добавления. Показание берётся как есть, без ретроспективной
// коррекции; устаревшее показание разорванной связи не используется.
func (c *Coordinator) addProductLocked(p model.Product) model.CartLine {
	var liveWeight float64
	if c.scale != nil && c.scale.State() == model.DeviceConnected && !c.scale.Stale() {
		if grams, ok := c.scale.CurrentWeightGrams(); ok {
			liveWeight = grams
		}
	}
	return c.engine.AddProduct(p, liveWeight)
}

// SetEditingFocus приостанавливает сканер на время ручного редактирования
// числового поля и возобновляет его при потере фокуса.
func (c *Coordinator) SetEditingFocus(editing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if editing {
		c.decoder.Suspend()
	} else {
		c.decoder.Resume()
	}
}

// SetQuantity меняет количество позиции открытой продажи.
func (c *Coordinator) SetQuantity(lineID uuid.UUID, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateBuilding {
		return ErrInvalidTransition
	}
	return c.engine.SetQuantity(lineID, qty)
}

// SetWeight меняет вес весовой позиции открытой продажи.
func (c *Coordinator) SetWeight(lineID uuid.UUID, grams float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateBuilding {
		return ErrInvalidTransition
	}
	return c.engine.SetWeight(lineID, grams)
}

// RemoveLine удаляет позицию открытой продажи.
func (c *Coordinator) RemoveLine(lineID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateBuilding {
		return ErrInvalidTransition
	}
	return c.engine.RemoveLine(lineID)
}

// SelectPayment фиксирует способ оплаты и переводит продажу в ожидание
// подтверждения. Повторный вызов в ожидании меняет способ оплаты.
func (c *Coordinator) SelectPayment(method model.PaymentMethod) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !model.ValidPaymentMethod(method) {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidTransition, method)
	}
	if c.state != StateBuilding && c.state != StateAwaitingPayment {
		return ErrInvalidTransition
	}

	c.payment = method
	if method != model.PaymentCash {
		c.tendered = nil
	}
	c.state = StateAwaitingPayment
	return nil
}

// SetTendered фиксирует внесённую наличную сумму.
func (c *Coordinator) SetTendered(amount decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingPayment || c.payment != model.PaymentCash {
		return ErrInvalidTransition
	}

	c.tendered = &amount
	return nil
}

// CompleteSale завершает продажу: проверяет условия завершения, делает
// снимок, передаёт его приёмнику и печатает чек, если принтер подключён.
//
// Отказ приёмника оставляет продажу в ожидании оплаты — оператор может
// повторить завершение. Отказ печати продажу не откатывает: она уже
// зафиксирована, чек доступен оператору на экране и в истории.
func (c *Coordinator) CompleteSale(ctx context.Context) (*model.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingPayment {
		return nil, ErrInvalidTransition
	}
	if c.engine.Empty() {
		return nil, ErrEmptyCart
	}
	if c.payment == model.PaymentCash {
		if c.tendered == nil || c.tendered.LessThan(c.engine.Subtotal()) {
			return nil, ErrInsufficientTendered
		}
	}

	c.state = StateCompleting

	tx := model.Transaction{
		ID:        c.txID,
		Lines:     c.engine.Lines(),
		Payment:   c.payment,
		Tendered:  c.tendered,
		CreatedAt: time.Now(),
		Completed: true,
	}

	if err := c.sink.RecordCompletedSale(ctx, tx); err != nil {
		c.state = StateAwaitingPayment
		return nil, fmt.Errorf("record sale: %w", err)
	}

	c.pushHistoryLocked(tx)

	if c.printer != nil && c.printer.State() == model.DeviceConnected {
		if err := c.printer.Print(tx, c.profile); err != nil {
			c.logger.Error("receipt print failed, sale stands",
				zap.String("sale", tx.ID.String()), zap.Error(err))
		}
	}

	c.resetLocked()
	return &tx, nil
}

func (c *Coordinator) pushHistoryLocked(tx model.Transaction) {
	c.history = append(c.history, tx)
	if len(c.history) > historyDepth {
		c.history = c.history[len(c.history)-historyDepth:]
	}
}

// History возвращает завершённые продажи, доступные для повторной печати,
// от новых к старым.
func (c *Coordinator) History() []model.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Transaction, 0, len(c.history))
	for i := len(c.history) - 1; i >= 0; i-- {
		out = append(out, c.history[i])
	}
	return out
}

// Reprint повторно печатает сохранённую продажу. Снимок неизменен,
// поэтому повторная печать побайтно повторяет исходный чек.
func (c *Coordinator) Reprint(txID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.history {
		if c.history[i].ID == txID {
			if c.printer == nil || c.printer.State() != model.DeviceConnected {
				return fmt.Errorf("reprint: printer not connected")
			}
			return c.printer.Print(c.history[i], c.profile)
		}
	}
	return ErrSaleNotFound
}

// View описывает снимок открытой продажи для экрана кассира.
type View struct {
	SaleID    uuid.UUID
	State     State
	Lines     []model.CartLine
	Subtotal  decimal.Decimal
	Payment   model.PaymentMethod
	Tendered  *decimal.Decimal
	ChangeDue decimal.Decimal
	OpenedAt  time.Time
}

// CurrentView возвращает снимок открытой продажи.
func (c *Coordinator) CurrentView() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		SaleID:   c.txID,
		State:    c.state,
		Lines:    c.engine.Lines(),
		Subtotal: c.engine.Subtotal(),
		Payment:  c.payment,
		Tendered: c.tendered,
		OpenedAt: c.openedAt,
	}
	if c.payment == model.PaymentCash && c.tendered != nil {
		v.ChangeDue = c.tendered.Sub(v.Subtotal)
	}
	return v
}
