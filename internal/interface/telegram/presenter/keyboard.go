// Package presenter превращает результаты команд и запросов в сообщения
// Telegram: HTML-текст и inline-клавиатуры.
package presenter

import (
	"fmt"
	"strconv"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// INLINE KEYBOARD TYPES
// Клавиатура описывается независимо от клиента Telegram, бот переводит её
// в формат API при отправке.
// ══════════════════════════════════════════════════════════════════════════════

// InlineKeyboard - inline-клавиатура.
type InlineKeyboard struct {
	Rows [][]InlineButton
}

// InlineButton - одна кнопка.
type InlineButton struct {
	Text         string
	CallbackData string
}

// NewInlineKeyboard создаёт пустую клавиатуру.
func NewInlineKeyboard() *InlineKeyboard {
	return &InlineKeyboard{Rows: make([][]InlineButton, 0)}
}

// AddRow добавляет ряд кнопок.
func (k *InlineKeyboard) AddRow(buttons ...InlineButton) *InlineKeyboard {
	k.Rows = append(k.Rows, buttons)
	return k
}

// CallbackButton создаёт callback-кнопку.
func CallbackButton(text, callbackData string) InlineButton {
	return InlineButton{Text: text, CallbackData: callbackData}
}

// ══════════════════════════════════════════════════════════════════════════════
// QUICK ADD
// ══════════════════════════════════════════════════════════════════════════════

// QuickAddPrefix - префикс callback-данных кнопок быстрого добавления.
const QuickAddPrefix = "water_"

// DefaultQuickAmounts - объёмы кнопок быстрого добавления в мл.
var DefaultQuickAmounts = []int{250, 500, 750, 1000}

// QuickAddData возвращает callback-данные для объёма.
func QuickAddData(amountMl int) string {
	return QuickAddPrefix + strconv.Itoa(amountMl)
}

// ParseQuickAddData разбирает callback-данные "water_<ml>".
func ParseQuickAddData(data string) (int, error) {
	raw, ok := strings.CutPrefix(data, QuickAddPrefix)
	if !ok {
		return 0, fmt.Errorf("not a quick add callback: %q", data)
	}
	amount, err := strconv.Atoi(raw)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("invalid quick add amount: %q", raw)
	}
	return amount, nil
}

// QuickAddKeyboard строит ряд кнопок быстрого добавления.
func QuickAddKeyboard(amounts []int) *InlineKeyboard {
	if len(amounts) == 0 {
		amounts = DefaultQuickAmounts
	}

	row := make([]InlineButton, 0, len(amounts))
	for _, a := range amounts {
		row = append(row, CallbackButton(quickAddIcon(a)+" "+FormatWaterAmount(a), QuickAddData(a)))
	}
	return NewInlineKeyboard().AddRow(row...)
}

func quickAddIcon(amountMl int) string {
	switch {
	case amountMl < 250:
		return "💧"
	case amountMl < 500:
		return "🥤"
	case amountMl < 1000:
		return "🍶"
	default:
		return "🫗"
	}
}
