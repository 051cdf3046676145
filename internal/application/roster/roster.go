// Package roster хранит коллекцию пользователей в памяти.
//
// Коллекция загружается из DocumentStore при старте и целиком сохраняется
// после каждой мутации. Все мутации сериализуются одним мьютексом, который
// удерживается на всё время "изменение -> оценка -> сохранение".
// Чтения получают копии записей.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hydromate/hydromate-bot/internal/domain/hydration"
	"github.com/hydromate/hydromate-bot/internal/domain/shared"
	"github.com/hydromate/hydromate-bot/pkg/retry"
)

// Config - зависимости Roster.
type Config struct {
	Store    hydration.DocumentStore
	Calendar hydration.Calendar
	Clock    shared.Clock

	// DefaultGoalMl - цель новых пользователей (0 = hydration.DefaultDailyGoalMl).
	DefaultGoalMl int

	// Retrier повторяет SaveAll. По умолчанию retry.StoreRetrier.
	Retrier *retry.Retrier
	Logger  *slog.Logger
}

// Roster - коллекция пользователей в памяти.
type Roster struct {
	mu    sync.RWMutex
	users map[string]*hydration.UserRecord
	order []string

	store    hydration.DocumentStore
	calendar hydration.Calendar
	clock    shared.Clock
	goalMl   int
	retrier  *retry.Retrier
	logger   *slog.Logger
}

// New создаёт пустой Roster. Данные загружаются через Load.
func New(cfg Config) *Roster {
	if cfg.Clock == nil {
		cfg.Clock = shared.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Retrier == nil {
		cfg.Retrier = retry.StoreRetrier(cfg.Logger)
	}

	return &Roster{
		users:    make(map[string]*hydration.UserRecord),
		store:    cfg.Store,
		calendar: cfg.Calendar,
		clock:    cfg.Clock,
		goalMl:   cfg.DefaultGoalMl,
		retrier:  cfg.Retrier,
		logger:   cfg.Logger,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LOAD
// ══════════════════════════════════════════════════════════════════════════════

// Load заменяет коллекцию содержимым хранилища.
// Повторяющиеся ID пропускаются (остаётся первая запись).
func (r *Roster) Load(ctx context.Context) error {
	users, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("roster: load users: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.users = make(map[string]*hydration.UserRecord, len(users))
	r.order = r.order[:0]
	for _, u := range users {
		if u == nil || u.ID == "" {
			continue
		}
		if _, dup := r.users[u.ID]; dup {
			r.logger.Warn("duplicate user in store, skipping", "user_id", u.ID)
			continue
		}
		u.Normalize()
		r.users[u.ID] = u
		r.order = append(r.order, u.ID)
	}

	r.logger.Info("users loaded", "count", len(r.order))
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// READS
// ══════════════════════════════════════════════════════════════════════════════

// Get возвращает копию пользователя. found == false, если его нет.
func (r *Roster) Get(id string) (*hydration.UserRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, false
	}
	return u.Clone(), true
}

// All возвращает копии всех пользователей в порядке добавления.
func (r *Roster) All() []*hydration.UserRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*hydration.UserRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.users[id].Clone())
	}
	return out
}

// Len возвращает количество пользователей.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// ══════════════════════════════════════════════════════════════════════════════
// MUTATIONS
// ══════════════════════════════════════════════════════════════════════════════

// EnsureUser возвращает пользователя, создавая его при первом обращении.
// Новый пользователь сразу сохраняется. created == true для нового.
func (r *Roster) EnsureUser(ctx context.Context, id, name string) (user *hydration.UserRecord, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[id]; ok {
		return u.Clone(), false, nil
	}

	u, err := hydration.NewUserRecord(id, name, r.clock.Now(), r.calendar)
	if err != nil {
		return nil, false, err
	}
	if existing, ok := r.users[u.ID]; ok {
		return existing.Clone(), false, nil
	}
	if r.goalMl > 0 {
		u.DailyGoalMl = r.goalMl
	}

	r.users[u.ID] = u
	r.order = append(r.order, u.ID)
	r.logger.Info("user registered", "user_id", u.ID, "name", u.DisplayName)

	return u.Clone(), true, r.persist(ctx)
}

// MutateFunc изменяет запись. Ошибка отменяет изменение целиком.
type MutateFunc func(u *hydration.UserRecord) error

// Mutate применяет fn к пользователю id и сохраняет коллекцию.
//
// fn получает рабочую копию; при ошибке fn состояние в памяти не меняется.
// Если сохранение не удалось после всех повторов, изменение остаётся
// в памяти, а вместе с обновлённой записью возвращается ошибка
// с видом shared.ErrPersistence.
func (r *Roster) Mutate(ctx context.Context, id string, fn MutateFunc) (*hydration.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	r.users[id] = working

	return working.Clone(), r.persist(ctx)
}

// MutateAll применяет fn ко всем пользователям и сохраняет коллекцию один раз.
// Возвращает количество изменённых записей (fn вернул true).
func (r *Roster) MutateAll(ctx context.Context, fn func(u *hydration.UserRecord) bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := 0
	for _, id := range r.order {
		if fn(r.users[id]) {
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, r.persist(ctx)
}

// Flush сохраняет коллекцию без изменений (например, при остановке).
func (r *Roster) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persist(ctx)
}

// persist вызывается под r.mu.
func (r *Roster) persist(ctx context.Context) error {
	snapshot := make([]*hydration.UserRecord, 0, len(r.order))
	for _, id := range r.order {
		snapshot = append(snapshot, r.users[id])
	}

	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		return r.store.SaveAll(ctx, snapshot)
	})
	if err == nil {
		return nil
	}

	r.logger.Error("failed to persist users",
		"count", len(snapshot),
		"error", err,
	)
	if errors.Is(err, shared.ErrPersistence) {
		return err
	}
	return shared.NewPersistenceError("SaveAll", err)
}
