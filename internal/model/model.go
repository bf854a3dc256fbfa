// Package model содержит доменные сущности кассового терминала.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricingUnit описывает способ ценообразования товара.
type PricingUnit string

const (
	// PricingUnitDiscrete — товар продаётся поштучно по фиксированной цене.
	PricingUnitDiscrete PricingUnit = "DISCRETE"
	// PricingUnitWeightBased — товар продаётся на вес, цена указана за килограмм.
	PricingUnitWeightBased PricingUnit = "WEIGHT_BASED"
)

// Product представляет товар из каталога магазина.
// Каталог принадлежит внешней системе и доступен терминалу только на чтение.
type Product struct {
	ID        int64
	Name      string
	UnitPrice decimal.Decimal
	Unit      PricingUnit
	Barcode   string
}

// CartLine представляет одну позицию открытой продажи.
// Товар копируется в позицию по значению: последующее изменение каталога
// не меняет уже открытую продажу.
type CartLine struct {
	ID          uuid.UUID
	Product     Product
	Quantity    int
	WeightGrams float64
}

// Total возвращает стоимость позиции. Для весового товара цена указана
// за килограмм, поэтому пересчитывается через цену за грамм.
func (l CartLine) Total() decimal.Decimal {
	qty := decimal.NewFromInt(int64(l.Quantity))
	if l.Product.Unit == PricingUnitWeightBased {
		perGram := l.Product.UnitPrice.Div(decimal.NewFromInt(1000))
		return perGram.Mul(decimal.NewFromFloat(l.WeightGrams)).Mul(qty)
	}
	return l.Product.UnitPrice.Mul(qty)
}

// PaymentMethod описывает заявленный способ оплаты продажи.
type PaymentMethod string

const (
	PaymentCash               PaymentMethod = "CASH"
	PaymentCard               PaymentMethod = "CARD"
	PaymentElectronicTransfer PaymentMethod = "EFT"
)

// ValidPaymentMethod проверяет, что способ оплаты известен терминалу.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentElectronicTransfer:
		return true
	}
	return false
}

// Transaction описывает продажу: открытую либо завершённую.
type Transaction struct {
	ID        uuid.UUID
	Lines     []CartLine
	Payment   PaymentMethod
	Tendered  *decimal.Decimal
	CreatedAt time.Time
	Completed bool
}

// Total возвращает сумму продажи. Значение всегда вычисляется из позиций
// и нигде не хранится отдельно, чтобы исключить расхождение.
func (t Transaction) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range t.Lines {
		total = total.Add(l.Total())
	}
	return total
}

// ChangeDue возвращает сдачу для наличной оплаты. Отрицательное значение
// означает, что внесённой суммы не хватает, и завершение продажи запрещено.
func (t Transaction) ChangeDue() decimal.Decimal {
	if t.Payment != PaymentCash || t.Tendered == nil {
		return decimal.Zero
	}
	return t.Tendered.Sub(t.Total())
}

// DeviceState описывает состояние подключения периферийного устройства.
type DeviceState string

const (
	DeviceDisconnected DeviceState = "DISCONNECTED"
	DeviceConnecting   DeviceState = "CONNECTING"
	DeviceConnected    DeviceState = "CONNECTED"
)

// BusinessProfile содержит реквизиты магазина для шапки и подвала чека.
type BusinessProfile struct {
	Name           string
	Address        string
	Phone          string
	ReceiptFooter  string
	CurrencySymbol string
}
