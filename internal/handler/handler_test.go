package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Mango070919/MeatDepotApp-sub001/internal/cart"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/model"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/terminal"
)

type stubCoordinator struct {
	view terminal.View

	handleKeyErr     error
	selectProductErr error
	setQuantityErr   error
	setWeightErr     error
	removeLineErr    error
	selectPaymentErr error
	setTenderedErr   error

	completeTx  *model.Transaction
	completeErr error

	history    []model.Transaction
	reprintErr error

	focusCalls []bool
}

func (s *stubCoordinator) HandleKey(ctx context.Context, key string) (*model.CartLine, error) {
	return nil, s.handleKeyErr
}

func (s *stubCoordinator) SelectProduct(ctx context.Context, productID int64) (*model.CartLine, error) {
	return nil, s.selectProductErr
}

func (s *stubCoordinator) SetEditingFocus(editing bool) {
	s.focusCalls = append(s.focusCalls, editing)
}

func (s *stubCoordinator) SetQuantity(lineID uuid.UUID, qty int) error { return s.setQuantityErr }

func (s *stubCoordinator) SetWeight(lineID uuid.UUID, grams float64) error { return s.setWeightErr }

func (s *stubCoordinator) RemoveLine(lineID uuid.UUID) error { return s.removeLineErr }

func (s *stubCoordinator) SelectPayment(method model.PaymentMethod) error {
	return s.selectPaymentErr
}

func (s *stubCoordinator) SetTendered(amount decimal.Decimal) error { return s.setTenderedErr }

func (s *stubCoordinator) CompleteSale(ctx context.Context) (*model.Transaction, error) {
	return s.completeTx, s.completeErr
}

func (s *stubCoordinator) History() []model.Transaction { return s.history }

func (s *stubCoordinator) Reprint(txID uuid.UUID) error { return s.reprintErr }

func (s *stubCoordinator) CurrentView() terminal.View { return s.view }

type stubCatalog struct {
	products []model.Product
	err      error
}

func (s *stubCatalog) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.products, s.err
}

type stubScaleDevice struct {
	state model.DeviceState
	grams float64
	ok    bool
	stale bool
	err   error
}

func (s *stubScaleDevice) Connect() error                     { return s.err }
func (s *stubScaleDevice) State() model.DeviceState           { return s.state }
func (s *stubScaleDevice) CurrentWeightGrams() (float64, bool) { return s.grams, s.ok }
func (s *stubScaleDevice) Stale() bool                        { return s.stale }

type stubPrinterDevice struct {
	state model.DeviceState
	err   error
}

func (s *stubPrinterDevice) Connect() error           { return s.err }
func (s *stubPrinterDevice) State() model.DeviceState { return s.state }

func newTestHandler(t *testing.T, c *stubCoordinator) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	if c.view.SaleID == uuid.Nil {
		c.view = terminal.View{
			SaleID:   uuid.New(),
			State:    terminal.StateBuilding,
			Subtotal: decimal.Zero,
			OpenedAt: time.Now(),
		}
	}

	catalog := &stubCatalog{products: []model.Product{
		{ID: 1, Name: "Boerewors Roll", UnitPrice: decimal.RequireFromString("45.00"), Unit: model.PricingUnitDiscrete},
	}}
	scaleDev := &stubScaleDevice{state: model.DeviceConnected, grams: 750, ok: true}
	printerDev := &stubPrinterDevice{state: model.DeviceDisconnected}

	return NewHandler(c, catalog, scaleDev, printerDev, "R", logger)
}

func TestListProducts(t *testing.T) {
	h := newTestHandler(t, &stubCoordinator{})

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()

	h.ListProducts(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var resp []productResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].UnitPrice != "45.00" {
		t.Fatalf("unexpected products: %+v", resp)
	}
}

func TestHandleKey_BadRequest(t *testing.T) {
	h := newTestHandler(t, &stubCoordinator{})

	req := httptest.NewRequest(http.MethodPost, "/api/cart/keys", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	h.HandleKey(rec, req)

	if rec.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestCompleteSale_ConflictOnInvalidTransition(t *testing.T) {
	h := newTestHandler(t, &stubCoordinator{completeErr: terminal.ErrInsufficientTendered})

	req := httptest.NewRequest(http.MethodPost, "/api/cart/complete", nil)
	rec := httptest.NewRecorder()

	h.CompleteSale(rec, req)

	if rec.Result().StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusConflict)
	}
}

func TestCompleteSale_Success(t *testing.T) {
	tendered := decimal.RequireFromString("200.00")
	tx := &model.Transaction{
		ID:        uuid.New(),
		Payment:   model.PaymentCash,
		Tendered:  &tendered,
		CreatedAt: time.Now(),
		Completed: true,
		Lines: []model.CartLine{
			{
				ID: uuid.New(),
				Product: model.Product{
					ID: 1, Name: "Boerewors Roll",
					UnitPrice: decimal.RequireFromString("45.00"),
					Unit:      model.PricingUnitDiscrete,
				},
				Quantity: 2,
			},
		},
	}
	h := newTestHandler(t, &stubCoordinator{completeTx: tx})

	req := httptest.NewRequest(http.MethodPost, "/api/cart/complete", nil)
	rec := httptest.NewRecorder()

	h.CompleteSale(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp completedResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != "90.00" || resp.ChangeDue != "110.00" {
		t.Fatalf("total = %s, change = %s; want 90.00 and 110.00", resp.Total, resp.ChangeDue)
	}
}

func TestSetFocus_ForwardsToCoordinator(t *testing.T) {
	c := &stubCoordinator{}
	h := newTestHandler(t, c)

	body, _ := json.Marshal(focusRequest{Editing: true})
	req := httptest.NewRequest(http.MethodPost, "/api/cart/focus", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.SetFocus(rec, req)

	if rec.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusOK)
	}
	if len(c.focusCalls) != 1 || !c.focusCalls[0] {
		t.Fatalf("focus calls = %v, want [true]", c.focusCalls)
	}
}

func TestGetHistory_NoContent(t *testing.T) {
	h := newTestHandler(t, &stubCoordinator{})

	req := httptest.NewRequest(http.MethodGet, "/api/sales/history", nil)
	rec := httptest.NewRecorder()

	h.GetHistory(rec, req)

	if rec.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusNoContent)
	}
}

func TestGetDevices(t *testing.T) {
	h := newTestHandler(t, &stubCoordinator{})

	req := httptest.NewRequest(http.MethodGet, "/api/devices", nil)
	rec := httptest.NewRecorder()

	h.GetDevices(rec, req)

	var resp devicesResponse
	if err := json.NewDecoder(rec.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Scale.State != string(model.DeviceConnected) {
		t.Fatalf("scale state = %s, want connected", resp.Scale.State)
	}
	if resp.Scale.WeightGrams == nil || *resp.Scale.WeightGrams != 750 {
		t.Fatalf("scale weight = %v, want 750", resp.Scale.WeightGrams)
	}
	if resp.Printer.State != string(model.DeviceDisconnected) {
		t.Fatalf("printer state = %s, want disconnected", resp.Printer.State)
	}
}

func TestRouter_SelectPaymentThroughRouter(t *testing.T) {
	h := newTestHandler(t, &stubCoordinator{})
	router := h.SetupRouter()

	body, _ := json.Marshal(paymentRequest{Method: string(model.PaymentCard)})
	req := httptest.NewRequest(http.MethodPost, "/api/cart/payment", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_UpdateLineNotFound(t *testing.T) {
	h := newTestHandler(t, &stubCoordinator{setQuantityErr: cart.ErrLineNotFound})
	router := h.SetupRouter()

	qty := 2
	body, _ := json.Marshal(updateLineRequest{Quantity: &qty})
	req := httptest.NewRequest(http.MethodPatch, "/api/cart/lines/"+uuid.NewString(), bytes.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusNotFound)
	}
}
