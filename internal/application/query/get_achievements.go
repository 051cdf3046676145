package query

import (
	"context"

	"github.com/hydromate/hydromate-bot/internal/domain/achievement"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACHIEVEMENTS QUERY
// Весь каталог достижений с отметками о получении. Только чтение.
// ══════════════════════════════════════════════════════════════════════════════

// GetAchievementsQuery содержит идентификатор пользователя.
type GetAchievementsQuery struct {
	UserID string
}

// AchievementDTO - достижение с признаком получения.
type AchievementDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Unlocked    bool   `json:"unlocked"`
}

// AchievementsDTO - результат запроса.
type AchievementsDTO struct {
	Found        bool             `json:"found"`
	UserID       string           `json:"user_id,omitempty"`
	Achievements []AchievementDTO `json:"achievements,omitempty"`
	Unlocked     int              `json:"unlocked"`
	Total        int              `json:"total"`
}

// GetAchievementsHandler обрабатывает запрос достижений.
type GetAchievementsHandler struct {
	users   UserReader
	catalog achievement.Catalog
}

// NewGetAchievementsHandler создаёт обработчик. nil каталог = DefaultCatalog.
func NewGetAchievementsHandler(users UserReader, catalog achievement.Catalog) *GetAchievementsHandler {
	if catalog == nil {
		catalog = achievement.DefaultCatalog()
	}
	return &GetAchievementsHandler{users: users, catalog: catalog}
}

// Handle выполняет запрос.
func (h *GetAchievementsHandler) Handle(ctx context.Context, q GetAchievementsQuery) (*AchievementsDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	user, ok := h.users.Get(q.UserID)
	if !ok {
		return &AchievementsDTO{Found: false, Total: len(h.catalog)}, nil
	}

	statuses := achievement.ListWithStatus(user, h.catalog)
	dto := &AchievementsDTO{
		Found:        true,
		UserID:       user.ID,
		Achievements: make([]AchievementDTO, 0, len(statuses)),
		Unlocked:     achievement.UnlockedCount(statuses),
		Total:        len(statuses),
	}
	for _, s := range statuses {
		dto.Achievements = append(dto.Achievements, AchievementDTO{
			ID:          string(s.Achievement.ID),
			Name:        s.Achievement.Name,
			Description: s.Achievement.Description,
			Icon:        s.Achievement.Icon,
			Unlocked:    s.Unlocked,
		})
	}
	return dto, nil
}
