// Package slogpretty предоставляет кастомный обработчик (handler) для
// стандартного логгера `slog`, который форматирует вывод в удобном для
// человека, цветном виде. Полезно для локальной разработки, где
// стандартный JSON-вывод трудно читать.
package slogpretty

import (
	"context"
	"encoding/json"
	"io"
	stdLog "log"
	"log/slog"
	"os"

	"github.com/fatih/color"
)

// Константы для определения среды выполнения.
const (
	envLocal = "local" // Локальная разработка (цветной вывод).
	envDev   = "dev"   // Среда разработки (JSON, debug уровень).
	envProd  = "prod"  // Продакшен-среда (JSON, info уровень).
)

// PrettyHandlerOptions содержит опции для настройки PrettyHandler.
type PrettyHandlerOptions struct {
	SlogOpts *slog.HandlerOptions
}

// PrettyHandler - это реализация `slog.Handler`, которая форматирует
// лог-записи в цветном, читаемом виде.
type PrettyHandler struct {
	slog.Handler
	l     *stdLog.Logger // Стандартный `log` для вывода, чтобы избежать рекурсии.
	attrs []slog.Attr
}

// NewPrettyHandler создает новый экземпляр PrettyHandler.
func (opts PrettyHandlerOptions) NewPrettyHandler(
	out io.Writer,
) *PrettyHandler {
	h := &PrettyHandler{
		Handler: slog.NewJSONHandler(out, opts.SlogOpts),
		l:       stdLog.New(out, "", 0),
	}

	return h
}

// SetupLogger является фабрикой логгеров. Она создает и возвращает
// `*slog.Logger` с подходящим обработчиком в зависимости от переданной
// строки окружения (`env`).
func SetupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return setupPrettySlog()
	case envDev:
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		// Неизвестное окружение считаем продакшеном.
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
}

func setupPrettySlog() *slog.Logger {
	opts := PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}
	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

// Handle форматирует запись `slog.Record` и выводит ее в `io.Writer`.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	fields := make(map[string]interface{}, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Any()
		return true
	})

	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Any()
	}

	var b []byte

	var err error

	if len(fields) > 0 {
		b, err = json.MarshalIndent(fields, "", "  ")
		if err != nil {
			return err
		}
	}

	timeStr := r.Time.Format("[15:05:05.000]")
	msg := color.CyanString(r.Message)

	h.l.Println(
		timeStr,
		level,
		msg,
		color.WhiteString(string(b)),
	)

	return nil
}

// WithAttrs создает новый экземпляр PrettyHandler с добавленными атрибутами.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &PrettyHandler{
		Handler: h.Handler,
		l:       h.l,
		attrs:   append(h.attrs, attrs...),
	}
}

// WithGroup создает новый обработчик с именем группы.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{
		Handler: h.Handler.WithGroup(name),
		l:       h.l,
		attrs:   h.attrs,
	}
}
