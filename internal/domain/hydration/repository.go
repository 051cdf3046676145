package hydration

import "context"

// DocumentStore хранит всю коллекцию пользователей как один документ.
// Реализации находятся в infrastructure/persistence.
type DocumentStore interface {
	// Load возвращает всех пользователей в порядке хранения.
	Load(ctx context.Context) ([]*UserRecord, error)

	// SaveAll заменяет сохранённую коллекцию на users.
	SaveAll(ctx context.Context, users []*UserRecord) error
}
