package release

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"unistuhelper/entity"
	"unistuhelper/impl/core"
	"unistuhelper/lib/api/response"
	"unistuhelper/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	CheckUpdate(version string) (*entity.UpdateInfo, error)
	ReleaseFile() (io.ReadCloser, *entity.FileMeta, error)
}

// CheckUpdate treats an empty body as an empty version.
func CheckUpdate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.release")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("release service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Release service not available"))
			return
		}

		var req entity.UpdateRequest
		if err := render.Bind(r, &req); err != nil && !errors.Is(err, io.EOF) {
			logger.Warn("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(slog.String("version", req.Version))

		info, err := handler.CheckUpdate(req.Version)
		if err != nil {
			if errors.Is(err, core.ErrValidation) {
				logger.Debug("invalid version")
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error("Invalid version"))
				return
			}
			logger.Error("check update", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		logger.With(
			slog.Bool("update_available", info.UpdateAvailable),
			slog.Bool("beta", info.IsBeta),
		).Debug("update checked")

		render.JSON(w, r, info)
	}
}

// Download streams the latest release artifact as an attachment.
func Download(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.release")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("release service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Release service not available"))
			return
		}

		fileStream, meta, err := handler.ReleaseFile()
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				logger.Warn("release file missing", sl.Err(err))
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("File not found"))
				return
			}
			logger.Error("release file", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		defer fileStream.Close()

		w.Header().Set("Content-Type", meta.ContentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": meta.Name}))
		if meta.ContentLength >= 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(meta.ContentLength, 10))
		}

		written, err := io.Copy(w, fileStream)
		if err != nil {
			logger.Error("failed to copy file", sl.Err(err))
			return
		}
		logger.With(
			slog.String("file", meta.Name),
			slog.Int64("size", written),
		).Info("release downloaded")
	}
}
