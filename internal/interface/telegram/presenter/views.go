package presenter

import (
	"fmt"
	"html"
	"strings"

	"github.com/hydromate/hydromate-bot/internal/application/query"
	"github.com/hydromate/hydromate-bot/internal/domain/achievement"
	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
)

// ParseModeHTML - режим разметки всех сообщений бота.
const ParseModeHTML = "HTML"

// View - готовое к отправке сообщение.
type View struct {
	Text     string
	Keyboard *InlineKeyboard
}

// Mention - ссылка на пользователя внутри HTML-сообщения.
func Mention(userID, name string) string {
	if name == "" {
		name = userID
	}
	return fmt.Sprintf(`<a href="tg://user?id=%s">%s</a>`, html.EscapeString(userID), html.EscapeString(name))
}

// ══════════════════════════════════════════════════════════════════════════════
// WATER PRESENTER
// ══════════════════════════════════════════════════════════════════════════════

// WaterPresenter форматирует все сообщения о воде.
type WaterPresenter struct {
	content      *Content
	quickAmounts []int
}

// NewWaterPresenter создаёт презентер. content == nil - случайный Content.
func NewWaterPresenter(content *Content, quickAmounts []int) *WaterPresenter {
	if content == nil {
		content = NewContent(nil)
	}
	if len(quickAmounts) == 0 {
		quickAmounts = DefaultQuickAmounts
	}
	return &WaterPresenter{content: content, quickAmounts: quickAmounts}
}

// QuickAdd - сообщение с кнопками быстрого добавления.
func (p *WaterPresenter) QuickAdd() View {
	return View{Text: "Quick water logging:", Keyboard: QuickAddKeyboard(p.quickAmounts)}
}

// Status - карточка дневного прогресса.
func (p *WaterPresenter) Status(dto *query.DailyProgressDTO, withButtons bool) View {
	if dto == nil || !dto.Found {
		return View{Text: "You haven't started tracking water consumption yet. Try <code>/water add 250</code>."}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>%s's Hydration Status</b>\n\n", WaterEmoji(dto.Percentage), html.EscapeString(dto.DisplayName))
	sb.WriteString(p.progressLines(dto.CurrentMl, dto.GoalMl, dto.Percentage))
	fmt.Fprintf(&sb, "🔥 Streak: %d day(s)\n", dto.StreakDays)

	switch {
	case dto.NoGoalSet:
		sb.WriteString("\n🎯 No daily goal set. Use <code>/water goal 2000</code>.")
	case dto.GoalMet:
		sb.WriteString("\n🎉 <b>Goal achieved!</b> Congratulations on reaching your water goal today!")
	default:
		fmt.Fprintf(&sb, "\n🚰 %s to reach your goal", FormatWaterAmount(dto.RemainingMl))
	}

	fmt.Fprintf(&sb, "\n\n<i>💡 %s</i>", html.EscapeString(p.content.Tip()))

	view := View{Text: sb.String()}
	if withButtons {
		view.Keyboard = QuickAddKeyboard(p.quickAmounts)
	}
	return view
}

// Logged - ответ на добавление воды.
func (p *WaterPresenter) Logged(amountMl int, progress hydration.Progress, streakDays int) View {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Added %s!\n\n", FormatWaterAmount(amountMl))
	sb.WriteString(p.progressLines(progress.CurrentMl, progress.GoalMl, progress.Percentage))
	fmt.Fprintf(&sb, "🔥 Streak: %d day(s)", streakDays)
	if remaining := progress.RemainingMl(); remaining > 0 {
		fmt.Fprintf(&sb, "\n🚰 %s to go", FormatWaterAmount(remaining))
	}
	return View{Text: sb.String(), Keyboard: QuickAddKeyboard(p.quickAmounts)}
}

// Celebration - поздравление с выполнением дневной цели.
func (p *WaterPresenter) Celebration(userID, name string, goalMl int) View {
	return View{Text: fmt.Sprintf(
		"🎉 Congratulations %s! You've reached your daily water goal of %s! Keep it up! 🎉\n\n%s",
		Mention(userID, name), FormatWaterAmount(goalMl), html.EscapeString(p.content.Motivation()),
	)}
}

// Unlocked - объявление о новом достижении.
func (p *WaterPresenter) Unlocked(userID, name string, a achievement.Achievement) View {
	return View{Text: fmt.Sprintf(
		"🎊 <b>ACHIEVEMENT UNLOCKED</b> 🎊\n\n%s <b>%s</b>: %s\n\nCongratulations %s!",
		a.Icon, html.EscapeString(a.Name), html.EscapeString(a.Description), Mention(userID, name),
	)}
}

// GoalUpdated - подтверждение новой цели.
func (p *WaterPresenter) GoalUpdated(goalMl int) View {
	return View{Text: fmt.Sprintf("✅ <b>Goal Updated</b>\n\nYour daily water goal is now set to %s", FormatWaterAmount(goalMl))}
}

// Reset - подтверждение сброса дня.
func (p *WaterPresenter) Reset() View {
	return View{Text: "🔄 <b>Water Consumption Reset</b>\n\nYour water consumption for today has been reset to 0ml."}
}

// Leaderboard - рейтинг дня.
func (p *WaterPresenter) Leaderboard(dto *query.LeaderboardDTO) View {
	var sb strings.Builder
	sb.WriteString("🏆 <b>Hydration Leaderboard</b>\n<i>Who's drinking the most water today?</i>\n\n")

	if dto == nil || len(dto.Standings) == 0 {
		sb.WriteString("No data yet. Start tracking your water intake to appear on the leaderboard!")
		return View{Text: sb.String()}
	}

	for _, s := range dto.Standings {
		prefix := s.Position.Medal()
		if prefix == "" {
			prefix = fmt.Sprintf("%d.", s.Position)
		}
		fmt.Fprintf(&sb, "%s <b>%s</b>: %s (%d%%)\n%s\n",
			prefix, html.EscapeString(s.Name), FormatWaterAmount(s.CurrentMl), s.Percentage, ProgressBar(s.Percentage))
	}
	return View{Text: strings.TrimRight(sb.String(), "\n")}
}

// Achievements - список достижений со статусом.
func (p *WaterPresenter) Achievements(dto *query.AchievementsDTO) View {
	var sb strings.Builder
	sb.WriteString("🏅 <b>Water Drinking Achievements</b>\n<i>Complete these achievements to become a hydration master!</i>\n\n")

	if dto != nil {
		for _, a := range dto.Achievements {
			status := "❌"
			if a.Unlocked {
				status = "✅"
			}
			fmt.Fprintf(&sb, "%s %s <b>%s</b>\n%s\n\n", status, a.Icon, html.EscapeString(a.Name), html.EscapeString(a.Description))
		}
		fmt.Fprintf(&sb, "You've unlocked %d/%d achievements!", dto.Unlocked, dto.Total)
	}
	return View{Text: sb.String()}
}

// Reminder - напоминание выпить воды.
func (p *WaterPresenter) Reminder(user *hydration.UserRecord, progress hydration.Progress) View {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>Water Reminder!</b>\n\n%s, it's time to drink some water!\n\n",
		WaterEmoji(progress.Percentage), Mention(user.ID, user.DisplayName))
	sb.WriteString(p.progressLines(progress.CurrentMl, progress.GoalMl, progress.Percentage))
	fmt.Fprintf(&sb, "🚰 %s to reach your goal\n\n<i>💡 %s</i>",
		FormatWaterAmount(progress.RemainingMl()), html.EscapeString(p.content.Tip()))
	return View{Text: sb.String(), Keyboard: QuickAddKeyboard(p.quickAmounts)}
}

// Kickoff - утреннее сообщение с челленджем дня.
func (p *WaterPresenter) Kickoff(mentions []string, challengeMl int) View {
	greeting := "everyone"
	if len(mentions) > 0 {
		greeting = strings.Join(mentions, " and ")
	}

	return View{Text: fmt.Sprintf(
		"🌞 Good morning %s! It's a new day - remember to stay hydrated!\n\n"+
			"💧 <b>New Day, New Hydration Goals!</b>\n\n"+
			"🏆 <b>Today's Water Challenge</b>\nCan you drink %s today? Complete the challenge for a hydration achievement!\n\n"+
			"💡 <b>Water Fact of the Day</b>\n%s",
		greeting, FormatWaterAmount(challengeMl), html.EscapeString(p.content.Fact()),
	)}
}

// Dashboard - прогресс всех известных пользователей.
func (p *WaterPresenter) Dashboard(items []*query.DailyProgressDTO) View {
	var sb strings.Builder
	sb.WriteString("💧 <b>Hydration Dashboard</b>\n<i>Everyone's water drinking progress</i>\n")

	for _, dto := range items {
		if dto == nil || !dto.Found {
			continue
		}
		fmt.Fprintf(&sb, "\n%s <b>%s</b>\n%s / %s (%d%%)\n%s\n🔥 Streak: %d day(s)\n",
			WaterEmoji(dto.Percentage), html.EscapeString(dto.DisplayName),
			FormatWaterAmount(dto.CurrentMl), FormatWaterAmount(dto.GoalMl), dto.Percentage,
			ProgressBar(dto.Percentage), dto.StreakDays)
	}
	fmt.Fprintf(&sb, "\n<i>💡 %s</i>", html.EscapeString(p.content.Tip()))

	return View{Text: sb.String(), Keyboard: QuickAddKeyboard(p.quickAmounts)}
}

// Fact - случайный факт о воде.
func (p *WaterPresenter) Fact() View {
	return View{Text: "💧 <b>Water Fact</b>\n\n" + html.EscapeString(p.content.Fact())}
}

// Motivation - мотивационное сообщение.
func (p *WaterPresenter) Motivation() View {
	return View{Text: "💪 <b>Stay Motivated!</b>\n\n" + html.EscapeString(p.content.Motivation()) +
		"\n\n<i>Staying hydrated helps you feel better all day long!</i>"}
}

// Help - список команд.
func (p *WaterPresenter) Help() View {
	return View{Text: strings.Join([]string{
		"💧 <b>Water Tracker Commands</b>",
		"",
		"⚡ <b>Quick Water Logging</b>",
		"<code>!</code> - show quick-add buttons",
		"<code>/water quick</code> - quick water logging buttons",
		"<code>/water add [ml]</code> - log a specific amount",
		"",
		"🎯 <b>Set Your Goal</b>",
		"<code>/water goal [ml]</code> - set your daily goal, e.g. <code>/water goal 2000</code>",
		"",
		"📊 <b>Track Progress</b>",
		"<code>/water status</code> - your hydration status",
		"<code>/water dashboard</code> - everyone's progress at once",
		"",
		"🏆 <b>Compare &amp; Compete</b>",
		"<code>/water leaderboard</code> - today's leaderboard",
		"<code>/water achievements</code> - your achievements",
		"",
		"💪 <b>Stay Motivated</b>",
		"<code>/water motivation</code> - a motivational message",
		"<code>/water fact</code> - an interesting water fact",
		"",
		"🔄 <b>Reset Progress</b>",
		"<code>/water reset</code> - reset today's consumption to 0ml",
		"",
		"<i>Stay hydrated! 💦</i>",
	}, "\n")}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// InvalidAmount - подсказка при неверном объёме.
func (p *WaterPresenter) InvalidAmount() View {
	return View{Text: "Please provide a valid amount (e.g., <code>/water add 250</code>)"}
}

// InvalidGoal - подсказка при неверной цели.
func (p *WaterPresenter) InvalidGoal() View {
	return View{Text: "Please provide a valid goal in ml (e.g., <code>/water goal 2000</code>)"}
}

// NotSaved - изменение применено, но не сохранено.
func (p *WaterPresenter) NotSaved() View {
	return View{Text: "⚠️ Your change is applied but could not be saved yet. It will be retried with the next update."}
}

// InternalError - общая ошибка.
func (p *WaterPresenter) InternalError() View {
	return View{Text: "😔 Something went wrong. Please try again in a minute."}
}

// RateLimited - слишком частые запросы.
func (p *WaterPresenter) RateLimited() View {
	return View{Text: "⏳ Too many requests! Please slow down a little."}
}

func (p *WaterPresenter) progressLines(currentMl, goalMl, percentage int) string {
	return fmt.Sprintf("💧 Today: %s / %s (%d%%)\n%s\n",
		FormatWaterAmount(currentMl), FormatWaterAmount(goalMl), percentage, ProgressBar(percentage))
}
