// Package handler содержит HTTP-обработчики API экрана кассира.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Mango070919/MeatDepotApp-sub001/internal/cart"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/model"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/printer"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/repository"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/scale"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/serialport"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/terminal"
)

// Coordinator определяет контракт координатора продажи, используемый
// HTTP-обработчиками.
type Coordinator interface {
	HandleKey(ctx context.Context, key string) (*model.CartLine, error)
	SelectProduct(ctx context.Context, productID int64) (*model.CartLine, error)
	SetEditingFocus(editing bool)
	SetQuantity(lineID uuid.UUID, qty int) error
	SetWeight(lineID uuid.UUID, grams float64) error
	RemoveLine(lineID uuid.UUID) error
	SelectPayment(method model.PaymentMethod) error
	SetTendered(amount decimal.Decimal) error
	CompleteSale(ctx context.Context) (*model.Transaction, error)
	History() []model.Transaction
	Reprint(txID uuid.UUID) error
	CurrentView() terminal.View
}

// Catalog определяет контракт каталога товаров для экранной сетки.
type Catalog interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
}

// Device определяет общий контракт подключаемого устройства.
type Device interface {
	Connect() error
	State() model.DeviceState
}

// Scale расширяет Device доступом к живому показанию весов.
type Scale interface {
	Device
	CurrentWeightGrams() (float64, bool)
	Stale() bool
}

// Handler реализует HTTP-обработчики API экрана кассира.
type Handler struct {
	coordinator Coordinator
	catalog     Catalog
	scale       Scale
	printer     Device
	currency    string
	logger      *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(c Coordinator, catalog Catalog, scale Scale, prn Device, currency string, logger *zap.Logger) *Handler {
	return &Handler{
		coordinator: c,
		catalog:     catalog,
		scale:       scale,
		printer:     prn,
		currency:    currency,
		logger:      logger,
	}
}

type productResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Unit      string `json:"unit"`
	Barcode   string `json:"barcode,omitempty"`
}

// ListProducts возвращает каталог товаров.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("list products error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, productResponse{
			ID:        p.ID,
			Name:      p.Name,
			UnitPrice: p.UnitPrice.StringFixed(2),
			Unit:      string(p.Unit),
			Barcode:   p.Barcode,
		})
	}

	writeJSON(w, resp)
}

type lineResponse struct {
	ID          string   `json:"id"`
	ProductID   int64    `json:"productId"`
	Name        string   `json:"name"`
	Unit        string   `json:"unit"`
	UnitPrice   string   `json:"unitPrice"`
	Quantity    int      `json:"quantity"`
	WeightGrams *float64 `json:"weightGrams,omitempty"`
	Total       string   `json:"total"`
}

type cartResponse struct {
	SaleID    string         `json:"saleId"`
	State     string         `json:"state"`
	Lines     []lineResponse `json:"lines"`
	Subtotal  string         `json:"subtotal"`
	Payment   string         `json:"payment,omitempty"`
	Tendered  *string        `json:"tendered,omitempty"`
	ChangeDue string         `json:"changeDue"`
	OpenedAt  string         `json:"openedAt"`
	Currency  string         `json:"currency"`
}

func (h *Handler) cartView() cartResponse {
	v := h.coordinator.CurrentView()

	resp := cartResponse{
		SaleID:    v.SaleID.String(),
		State:     string(v.State),
		Lines:     make([]lineResponse, 0, len(v.Lines)),
		Subtotal:  v.Subtotal.StringFixed(2),
		Payment:   string(v.Payment),
		ChangeDue: v.ChangeDue.StringFixed(2),
		OpenedAt:  v.OpenedAt.Format(time.RFC3339),
		Currency:  h.currency,
	}
	if v.Tendered != nil {
		t := v.Tendered.StringFixed(2)
		resp.Tendered = &t
	}
	for _, l := range v.Lines {
		resp.Lines = append(resp.Lines, toLineResponse(l))
	}
	return resp
}

func toLineResponse(l model.CartLine) lineResponse {
	resp := lineResponse{
		ID:        l.ID.String(),
		ProductID: l.Product.ID,
		Name:      l.Product.Name,
		Unit:      string(l.Product.Unit),
		UnitPrice: l.Product.UnitPrice.StringFixed(2),
		Quantity:  l.Quantity,
		Total:     l.Total().StringFixed(2),
	}
	if l.Product.Unit == model.PricingUnitWeightBased {
		w := l.WeightGrams
		resp.WeightGrams = &w
	}
	return resp
}

// GetCart возвращает снимок открытой продажи.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.cartView())
}

type keyRequest struct {
	Key string `json:"key"`
}

// HandleKey принимает одно нажатие клавиши с общего экрана терминала.
func (h *Handler) HandleKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := h.coordinator.HandleKey(r.Context(), req.Key); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, h.cartView())
}

type selectProductRequest struct {
	ProductID int64 `json:"productId"`
}

// SelectProduct добавляет товар, выбранный касанием или поиском.
func (h *Handler) SelectProduct(w http.ResponseWriter, r *http.Request) {
	var req selectProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if _, err := h.coordinator.SelectProduct(r.Context(), req.ProductID); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, h.cartView())
}

type updateLineRequest struct {
	Quantity    *int     `json:"quantity,omitempty"`
	WeightGrams *float64 `json:"weightGrams,omitempty"`
}

// UpdateLine меняет количество или вес позиции.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := uuid.Parse(chiURLParam(r, "lineID"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req updateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Quantity == nil && req.WeightGrams == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Quantity != nil {
		if err := h.coordinator.SetQuantity(lineID, *req.Quantity); err != nil {
			h.writeError(w, err)
			return
		}
	}
	if req.WeightGrams != nil {
		if err := h.coordinator.SetWeight(lineID, *req.WeightGrams); err != nil {
			h.writeError(w, err)
			return
		}
	}

	writeJSON(w, h.cartView())
}

// RemoveLine удаляет позицию открытой продажи.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := uuid.Parse(chiURLParam(r, "lineID"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.coordinator.RemoveLine(lineID); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, h.cartView())
}

type focusRequest struct {
	Editing bool `json:"editing"`
}

// SetFocus сообщает координатору о фокусе числового поля редактирования:
// на время редактирования сканер приостанавливается.
func (h *Handler) SetFocus(w http.ResponseWriter, r *http.Request) {
	var req focusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.coordinator.SetEditingFocus(req.Editing)
	w.WriteHeader(http.StatusOK)
}

type paymentRequest struct {
	Method   string  `json:"method"`
	Tendered *string `json:"tendered,omitempty"`
}

// SelectPayment фиксирует способ оплаты и, для наличных, внесённую сумму.
func (h *Handler) SelectPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Method == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.coordinator.SelectPayment(model.PaymentMethod(req.Method)); err != nil {
		h.writeError(w, err)
		return
	}

	if req.Tendered != nil {
		amount, err := decimal.NewFromString(*req.Tendered)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if err := h.coordinator.SetTendered(amount); err != nil {
			h.writeError(w, err)
			return
		}
	}

	writeJSON(w, h.cartView())
}

type completedResponse struct {
	SaleID    string         `json:"saleId"`
	Lines     []lineResponse `json:"lines"`
	Total     string         `json:"total"`
	Payment   string         `json:"payment"`
	Tendered  *string        `json:"tendered,omitempty"`
	ChangeDue string         `json:"changeDue"`
	CreatedAt string         `json:"createdAt"`
}

func toCompletedResponse(tx model.Transaction) completedResponse {
	resp := completedResponse{
		SaleID:    tx.ID.String(),
		Lines:     make([]lineResponse, 0, len(tx.Lines)),
		Total:     tx.Total().StringFixed(2),
		Payment:   string(tx.Payment),
		ChangeDue: tx.ChangeDue().StringFixed(2),
		CreatedAt: tx.CreatedAt.Format(time.RFC3339),
	}
	if tx.Tendered != nil {
		t := tx.Tendered.StringFixed(2)
		resp.Tendered = &t
	}
	for _, l := range tx.Lines {
		resp.Lines = append(resp.Lines, toLineResponse(l))
	}
	return resp
}

// CompleteSale завершает продажу и возвращает её снимок для экранного чека.
func (h *Handler) CompleteSale(w http.ResponseWriter, r *http.Request) {
	tx, err := h.coordinator.CompleteSale(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, toCompletedResponse(*tx))
}

// GetHistory возвращает завершённые продажи, доступные для повторной печати.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history := h.coordinator.History()

	if len(history) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]completedResponse, 0, len(history))
	for _, tx := range history {
		resp = append(resp, toCompletedResponse(tx))
	}

	writeJSON(w, resp)
}

// Reprint повторно печатает сохранённую продажу.
func (h *Handler) Reprint(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(chiURLParam(r, "txID"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.coordinator.Reprint(txID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type deviceResponse struct {
	State string `json:"state"`
}

type scaleResponse struct {
	State       string   `json:"state"`
	WeightGrams *float64 `json:"weightGrams,omitempty"`
	Stale       bool     `json:"stale"`
}

type devicesResponse struct {
	Scale   scaleResponse  `json:"scale"`
	Printer deviceResponse `json:"printer"`
}

// GetDevices возвращает состояние весов и принтера вместе с живым весом.
func (h *Handler) GetDevices(w http.ResponseWriter, r *http.Request) {
	resp := devicesResponse{
		Scale:   scaleResponse{State: string(h.scale.State()), Stale: h.scale.Stale()},
		Printer: deviceResponse{State: string(h.printer.State())},
	}
	if grams, ok := h.scale.CurrentWeightGrams(); ok {
		resp.Scale.WeightGrams = &grams
	}

	writeJSON(w, resp)
}

// ConnectScale подключает весы по запросу оператора.
func (h *Handler) ConnectScale(w http.ResponseWriter, r *http.Request) {
	h.connectDevice(w, h.scale, "scale")
}

// ConnectPrinter подключает принтер по запросу оператора.
func (h *Handler) ConnectPrinter(w http.ResponseWriter, r *http.Request) {
	h.connectDevice(w, h.printer, "printer")
}

func (h *Handler) connectDevice(w http.ResponseWriter, d Device, name string) {
	err := d.Connect()
	if err != nil && !errors.Is(err, scale.ErrAlreadyConnected) && !errors.Is(err, printer.ErrAlreadyConnected) {
		h.logger.Warn("device connect failed", zap.String("device", name), zap.Error(err))
		h.writeError(w, err)
		return
	}

	writeJSON(w, deviceResponse{State: string(d.State())})
}

// writeError переводит доменные ошибки в HTTP-статусы. Сообщение об
// ошибке устройства передаётся оператору дословно: «принтер не
// подключён» полезнее обезличенного отказа.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, terminal.ErrInvalidTransition),
		errors.Is(err, terminal.ErrEmptyCart),
		errors.Is(err, terminal.ErrInsufficientTendered),
		errors.Is(err, printer.ErrPrintBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, terminal.ErrSaleNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, cart.ErrNotWeightBased):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, serialport.ErrDeviceUnavailable),
		errors.Is(err, serialport.ErrConnectionFailed),
		errors.Is(err, printer.ErrNotConnected),
		errors.Is(err, printer.ErrPrintFailure):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		h.logger.Error("internal error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
