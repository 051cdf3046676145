package presenter

import (
	"fmt"
	"math/rand"
	"strings"
)

// FormatWaterAmount форматирует объём: меньше литра в мл, иначе в литрах
// с одним знаком после запятой (750ml, 1.5L).
func FormatWaterAmount(amountMl int) string {
	if amountMl >= 1000 {
		return fmt.Sprintf("%.1fL", float64(amountMl)/1000)
	}
	return fmt.Sprintf("%dml", amountMl)
}

// ProgressBarLength - число сегментов полосы прогресса.
const ProgressBarLength = 10

// ProgressBar рисует полосу из 10 сегментов.
func ProgressBar(percentage int) string {
	filled := percentage * ProgressBarLength / 100
	filled = max(0, min(filled, ProgressBarLength))
	return strings.Repeat("🟦", filled) + strings.Repeat("⬜", ProgressBarLength-filled)
}

// WaterEmoji подбирает эмодзи по проценту выполнения цели.
func WaterEmoji(percentage int) string {
	switch {
	case percentage <= 0:
		return "🏜️"
	case percentage < 25:
		return "💧"
	case percentage < 50:
		return "🚰"
	case percentage < 75:
		return "🥤"
	case percentage < 100:
		return "🌊"
	default:
		return "🌈"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT
// ══════════════════════════════════════════════════════════════════════════════

var waterFacts = []string{
	"Your brain is 73% water, and even mild dehydration can impair cognitive function.",
	"Drinking water can help you lose weight by increasing metabolism and reducing appetite.",
	"Proper hydration helps maintain the balance of bodily fluids that aid digestion and circulation.",
	"Being dehydrated by just 2% can cause fatigue and impair physical performance.",
	"Water helps regulate body temperature through sweating and respiration.",
	"Drinking enough water can help prevent kidney stones and urinary tract infections.",
	"Water carries nutrients to cells and helps remove waste products from the body.",
	"About 60% of your body is made up of water.",
	"The recommended daily water intake is about 2.7 liters for women and 3.7 liters for men.",
	"Room temperature water is easier for your body to absorb than cold water.",
	"Coffee and tea contribute to hydration, but water is still best.",
	"Feeling thirsty is a sign that you're already dehydrated.",
	"Water helps maintain skin elasticity and can improve the appearance of your skin.",
	"Joint cartilage contains up to 80% water, so staying hydrated helps protect your joints.",
	"Drinking water when you first wake up helps activate your internal organs.",
}

var waterTips = []string{
	"Try adding a slice of lemon or lime to your water for flavor!",
	"Carry a water bottle with you to encourage regular sipping.",
	"Drink a glass of water before each meal to help with digestion.",
	"Replace one sugary drink with water each day for better health.",
	"Try herbal tea as a tasty way to increase your fluid intake.",
	"Eat water-rich fruits and vegetables to boost hydration.",
	"Drink a glass of water when you wake up to rehydrate after sleep.",
	"Take water breaks during work to stay focused and hydrated.",
}

var motivationalMessages = []string{
	"Drinking water is self-care! Keep it up! 💖",
	"Hydration is key to feeling your best today! 💪",
	"Your future self thanks you for drinking water now. 🔮",
	"Every sip is a step towards better health! 👣",
	"You're doing great! Keep that water flowing! 🌊",
	"Staying hydrated improves your mood and energy! ⚡",
	"Water is the best beauty treatment! ✨",
	"Being hydrated helps you think more clearly! 🧠",
	"Your body loves you for drinking water! ❤️",
	"You're crushing these hydration goals! 🏆",
}

// Content выбирает случайные факты, советы и мотивационные фразы.
type Content struct {
	intN func(n int) int
}

// NewContent создаёт Content. intN == nil - math/rand/v2.
func NewContent(intN func(n int) int) *Content {
	if intN == nil {
		intN = rand.Intn
	}
	return &Content{intN: intN}
}

// Fact возвращает случайный факт о воде.
func (c *Content) Fact() string { return c.pick(waterFacts) }

// Tip возвращает случайный совет.
func (c *Content) Tip() string { return c.pick(waterTips) }

// Motivation возвращает случайную мотивационную фразу.
func (c *Content) Motivation() string { return c.pick(motivationalMessages) }

func (c *Content) pick(items []string) string {
	return items[c.intN(len(items))]
}
