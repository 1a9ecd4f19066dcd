package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"unistuhelper/entity"
	"unistuhelper/impl/core"
	"unistuhelper/lib/api/response"
	"unistuhelper/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	Register(ctx context.Context, username, plain, code string) (*entity.UserInfo, error)
	Login(ctx context.Context, username, plain string) (*entity.User, error)
}

func Register(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.user")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("user service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("User service not available"))
			return
		}

		var req entity.RegisterRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Warn("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(sl.User(req.Username))

		info, err := handler.Register(r.Context(), req.Username, req.Password, req.InviteCode)
		if err != nil {
			status, message := registerFailure(err)
			if status >= http.StatusInternalServerError {
				logger.Error("register", sl.Err(err))
			} else {
				logger.Debug("register rejected", sl.Err(err))
			}
			render.Status(r, status)
			render.JSON(w, r, response.Error(message))
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, entity.RegisterResponse{
			Message:  "User created successfully",
			UserInfo: info,
		})
	}
}

func Login(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.user")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("user service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("User service not available"))
			return
		}

		var req entity.LoginRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Warn("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Missing username or password"))
			return
		}
		logger = logger.With(sl.User(req.Username))

		user, err := handler.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, core.ErrInvalidCredentials) {
				logger.Info("login failed")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("Invalid username or password"))
				return
			}
			logger.Error("login", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}

		render.JSON(w, r, entity.LoginResponse{
			Message:          "Login successful",
			Username:         user.Username,
			UserGroup:        user.UserGroup,
			InvitesRemaining: user.InvitesRemaining,
		})
	}
}

func registerFailure(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrUserExists):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, core.ErrInviteInvalid):
		return http.StatusBadRequest, "Invalid invite code"
	case errors.Is(err, core.ErrInviteExpired):
		return http.StatusBadRequest, "Invite code has expired"
	case errors.Is(err, core.ErrPasswordTooLong):
		return http.StatusBadRequest, "Password is too long"
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, "Missing username, password, or invite code"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
