package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"unistuhelper/entity"
	"unistuhelper/impl/core"
	"unistuhelper/lib/api/response"
	"unistuhelper/lib/clock"
	"unistuhelper/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	CreateInvite(ctx context.Context, username, plain string, expiresInMinutes int) (*entity.Invite, *entity.User, error)
}

// Create issues an invite on behalf of the user named in the request body.
func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.invite")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("invite service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Invite service not available"))
			return
		}

		var req entity.InviteRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Warn("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			sl.User(req.Username),
			slog.Int("expires_in_minutes", req.Expiry()),
		)

		invite, issuer, err := handler.CreateInvite(r.Context(), req.Username, req.Password, req.Expiry())
		if err != nil {
			var status int
			var message string
			switch {
			case errors.Is(err, core.ErrInvalidCredentials):
				status, message = http.StatusUnauthorized, "Invalid username or password"
			case errors.Is(err, core.ErrNoInvitesRemaining):
				status, message = http.StatusForbidden, "No invites remaining"
			case errors.Is(err, core.ErrValidation):
				status, message = http.StatusBadRequest, "Invalid request"
			default:
				status, message = http.StatusInternalServerError, "Internal error"
			}
			if status == http.StatusInternalServerError {
				logger.Error("create invite", sl.Err(err))
			} else {
				logger.Info("invite refused", sl.Err(err))
			}
			render.Status(r, status)
			render.JSON(w, r, response.Error(message))
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, entity.InviteResponse{
			Message:          "Invite created",
			Code:             invite.Code,
			ExpiresAt:        clock.Format(invite.ExpiresAt),
			InvitesRemaining: issuer.InvitesRemaining,
		})
	}
}
