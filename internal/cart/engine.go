// Package cart реализует расчёт открытой продажи кассового терминала.
package cart

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Mango070919/MeatDepotApp-sub001/internal/model"
)

// DefaultWeightGrams подставляется весовой позиции, когда живого
// показания весов нет: оператор затем уточняет вес вручную.
const DefaultWeightGrams = 1000.0

// ErrLineNotFound возвращается при обращении к несуществующей позиции.
var (
	ErrLineNotFound = errors.New("cart line not found")
	// ErrNotWeightBased возвращается при попытке задать вес штучной позиции.
	ErrNotWeightBased = errors.New("line is not weight-based")
)

// Engine владеет списком позиций открытой продажи и поддерживает
// производные суммы. Все денежные вычисления выполняются в decimal,
// округление до копеек происходит только при отображении и печати.
//
// Engine не потокобезопасен: его единственный владелец — координатор
// продажи.
type Engine struct {
	lines []model.CartLine
}

// NewEngine создаёт пустую корзину.
func NewEngine() *Engine {
	return &Engine{}
}

// AddProduct добавляет товар в корзину.
//
// Штучный товар объединяется с уже существующей позицией того же товара.
// Весовой товар всегда образует новую позицию: два взвешенных куска
// одного товара — это два разных отреза. Вес берётся из живого показания
// весов, если оно положительно, иначе подставляется вес по умолчанию.
func (e *Engine) AddProduct(p model.Product, liveWeightGrams float64) model.CartLine {
	if p.Unit == model.PricingUnitDiscrete {
		for i := range e.lines {
			if e.lines[i].Product.ID == p.ID {
				e.lines[i].Quantity++
				return e.lines[i]
			}
		}
	}

	line := model.CartLine{
		ID:       uuid.New(),
		Product:  p,
		Quantity: 1,
	}
	if p.Unit == model.PricingUnitWeightBased {
		if liveWeightGrams > 0 {
			line.WeightGrams = liveWeightGrams
		} else {
			line.WeightGrams = DefaultWeightGrams
		}
	}

	e.lines = append(e.lines, line)
	return line
}

// SetQuantity задаёт количество позиции. Значение ограничивается снизу
// единицей: нулевое количество не удаляет позицию, удаление — отдельная
// явная операция.
func (e *Engine) SetQuantity(lineID uuid.UUID, qty int) error {
	i, ok := e.index(lineID)
	if !ok {
		return ErrLineNotFound
	}
	if qty < 1 {
		qty = 1
	}
	e.lines[i].Quantity = qty
	return nil
}

// SetWeight задаёт вес весовой позиции в граммах. Неположительный вес
// игнорируется, прежнее значение сохраняется.
func (e *Engine) SetWeight(lineID uuid.UUID, grams float64) error {
	i, ok := e.index(lineID)
	if !ok {
		return ErrLineNotFound
	}
	if e.lines[i].Product.Unit != model.PricingUnitWeightBased {
		return ErrNotWeightBased
	}
	if grams <= 0 {
		return nil
	}
	e.lines[i].WeightGrams = grams
	return nil
}

// RemoveLine удаляет позицию из корзины.
func (e *Engine) RemoveLine(lineID uuid.UUID) error {
	i, ok := e.index(lineID)
	if !ok {
		return ErrLineNotFound
	}
	e.lines = append(e.lines[:i], e.lines[i+1:]...)
	return nil
}

// Lines возвращает копию списка позиций в порядке добавления.
func (e *Engine) Lines() []model.CartLine {
	out := make([]model.CartLine, len(e.lines))
	copy(out, e.lines)
	return out
}

// Empty сообщает, пуста ли корзина.
func (e *Engine) Empty() bool {
	return len(e.lines) == 0
}

// Subtotal возвращает сумму всех позиций без округления.
func (e *Engine) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.lines {
		total = total.Add(l.Total())
	}
	return total
}

// Reset очищает корзину для новой продажи.
func (e *Engine) Reset() {
	e.lines = nil
}

func (e *Engine) index(lineID uuid.UUID) (int, bool) {
	for i := range e.lines {
		if e.lines[i].ID == lineID {
			return i, true
		}
	}
	return 0, false
}
