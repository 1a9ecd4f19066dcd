package health

import (
	"context"
	"log/slog"
	"net/http"
	"unistuhelper/lib/api/response"
	"unistuhelper/lib/sl"

	"github.com/go-chi/render"
)

type Core interface {
	Health(ctx context.Context) error
}

func Check(log *slog.Logger, handler Core) http.HandlerFunc {
	logger := log.With(sl.Module("http.handlers.health"))
	return func(w http.ResponseWriter, r *http.Request) {
		if handler == nil {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Service not available"))
			return
		}
		if err := handler.Health(r.Context()); err != nil {
			logger.Error("health check", sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Database unavailable"))
			return
		}
		render.JSON(w, r, response.Ok("ok"))
	}
}
