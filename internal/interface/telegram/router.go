package telegram

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hydromate/hydromate-bot/internal/interface/telegram/handler"
	"github.com/hydromate/hydromate-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// Сопоставляет команды, текст и callback-данные с обработчиками.
// ══════════════════════════════════════════════════════════════════════════════

// QuickTrigger - сообщение, показывающее кнопки быстрого добавления.
const QuickTrigger = "!"

// WaterHandler - то, что роутер вызывает у обработчика воды.
type WaterHandler interface {
	Handle(ctx context.Context, req handler.Request) (*handler.Response, error)
	QuickAdd(ctx context.Context, req handler.Request, data string) (*handler.Response, error)
	Quick() *handler.Response
}

// RouterConfig содержит настройки роутера.
type RouterConfig struct {
	Logger *slog.Logger

	// Debug включает логирование решений маршрутизации.
	Debug bool
}

// Router маршрутизирует обновления к обработчикам.
type Router struct {
	water  WaterHandler
	logger *slog.Logger
	debug  bool
}

// NewRouter создаёт роутер.
func NewRouter(config RouterConfig, water WaterHandler) *Router {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Router{water: water, logger: config.Logger, debug: config.Debug}
}

// RouteCommand обрабатывает команду без "/". Неизвестная команда - nil.
func (r *Router) RouteCommand(ctx context.Context, command string, req handler.Request) (*handler.Response, error) {
	switch command {
	case "water":
		return r.water.Handle(ctx, req)
	case "start", "help":
		req.Args = "help"
		return r.water.Handle(ctx, req)
	default:
		if r.debug {
			r.logger.Debug("no handler for command", "command", command)
		}
		return nil, nil
	}
}

// RouteText обрабатывает обычный текст. Бот реагирует только на "!".
func (r *Router) RouteText(_ context.Context, text string) *handler.Response {
	if strings.TrimSpace(text) == QuickTrigger {
		return r.water.Quick()
	}
	return nil
}

// RouteCallback обрабатывает нажатие inline-кнопки.
func (r *Router) RouteCallback(ctx context.Context, data string, req handler.Request) (*handler.Response, error) {
	if strings.HasPrefix(data, presenter.QuickAddPrefix) {
		return r.water.QuickAdd(ctx, req, data)
	}
	r.logger.Warn("unknown callback", "data", data)
	return nil, nil
}
