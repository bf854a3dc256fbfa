// Package printer формирует чек в управляющих кодах ESC/POS и передаёт
// его на чековый принтер через последовательный порт.
package printer

import (
	"fmt"

	"github.com/Mango070919/MeatDepotApp-sub001/internal/model"
)

// Управляющие последовательности ESC/POS.
var (
	opReset        = []byte{0x1B, 0x40}
	opAlignLeft    = []byte{0x1B, 0x61, 0x00}
	opAlignCenter  = []byte{0x1B, 0x61, 0x01}
	opAlignRight   = []byte{0x1B, 0x61, 0x02}
	opEmphasisOn   = []byte{0x1B, 0x45, 0x01}
	opEmphasisOff  = []byte{0x1B, 0x45, 0x00}
	opDoubleHeight = []byte{0x1D, 0x21, 0x01}
	opNormalSize   = []byte{0x1D, 0x21, 0x00}
	opFullCut      = []byte{0x1D, 0x56, 0x00}
)

// ruleLine — разделительная линия на ширину ленты в 32 символа.
const ruleLine = "--------------------------------"

const feedBeforeCut = 4

func opFeed(n byte) []byte {
	return []byte{0x1B, 0x64, n}
}

func textLine(s string) []byte {
	return append([]byte(s), '\n')
}

// Encode превращает завершённую продажу в упорядоченную последовательность
// записей для принтера. Принтер обрабатывает коды как линейный поток,
// поэтому порядок элементов и есть контракт форматирования.
//
// Функция детерминирована: повторная печать сохранённой продажи даёт
// побайтно идентичный результат.
func Encode(tx model.Transaction, profile model.BusinessProfile) [][]byte {
	ops := [][]byte{opReset}

	// Шапка с реквизитами магазина.
	ops = append(ops,
		opAlignCenter,
		opEmphasisOn,
		opDoubleHeight,
		textLine(profile.Name),
		opNormalSize,
		opEmphasisOff,
	)
	if profile.Address != "" {
		ops = append(ops, textLine(profile.Address))
	}
	if profile.Phone != "" {
		ops = append(ops, textLine(profile.Phone))
	}
	ops = append(ops, textLine(""))

	// Идентификатор и время продажи.
	ops = append(ops,
		opAlignLeft,
		textLine("Sale "+tx.ID.String()[:8]),
		textLine(tx.CreatedAt.Format("2006-01-02 15:04")),
		textLine(ruleLine),
	)

	// Позиции продажи.
	for _, l := range tx.Lines {
		ops = append(ops,
			opEmphasisOn,
			textLine(l.Product.Name),
			opEmphasisOff,
			textLine(detailsLine(l, profile.CurrencySymbol)),
			textLine(""),
		)
	}

	// Итог.
	ops = append(ops,
		textLine(ruleLine),
		opAlignRight,
		opEmphasisOn,
		opDoubleHeight,
		textLine(fmt.Sprintf("TOTAL: %s%s", profile.CurrencySymbol, tx.Total().StringFixed(2))),
		opNormalSize,
		opEmphasisOff,
		opAlignLeft,
	)

	// Подвал.
	if profile.ReceiptFooter != "" {
		ops = append(ops, opAlignCenter, textLine(profile.ReceiptFooter))
	}

	ops = append(ops, opFeed(feedBeforeCut), opFullCut)

	return ops
}

// detailsLine форматирует строку состава позиции: для штучного товара
// количество и цена, для весового — вес и тариф за килограмм.
func detailsLine(l model.CartLine, currency string) string {
	if l.Product.Unit == model.PricingUnitWeightBased {
		return fmt.Sprintf("%d x %.3fkg @ %s%s/kg = %s%s",
			l.Quantity,
			l.WeightGrams/1000,
			currency, l.Product.UnitPrice.StringFixed(2),
			currency, l.Total().StringFixed(2),
		)
	}
	return fmt.Sprintf("%d x %s%s = %s%s",
		l.Quantity,
		currency, l.Product.UnitPrice.StringFixed(2),
		currency, l.Total().StringFixed(2),
	)
}
