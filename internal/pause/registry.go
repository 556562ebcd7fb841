// Package pause persists which identities have already been rescheduled.
package pause

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"visa-rescheduler/internal/config"
	"visa-rescheduler/pkg/apperr"
	"visa-rescheduler/pkg/logg"
)

const registryName = "PauseRegistry"

// FileRegistry is a UTF-8 text file of usernames. A missing file means no
// identity is paused. Writes append, so processes for different identities
// can share one file.
type FileRegistry struct {
	path   string
	logger *zap.Logger
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewFileRegistry(params Params) *FileRegistry {
	return &FileRegistry{
		path:   params.Config.PauseConfig.Path,
		logger: params.Logger.With(zap.String(logg.Layer, registryName)),
	}
}

func (r *FileRegistry) IsPaused(ctx context.Context, username string) (bool, error) {
	const op = "IsPaused"

	if username == "" {
		return false, nil
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "read_failed",
			apperr.MetaStage:  apperr.StagePause,
		})
	}

	return strings.Contains(string(data), username), nil
}

func (r *FileRegistry) MarkPaused(ctx context.Context, username string) error {
	const op = "MarkPaused"

	if username == "" {
		return apperr.InvalidReqError(op, "username", errors.New("username is empty"))
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "open_failed",
			apperr.MetaStage:  apperr.StagePause,
		})
	}

	if _, err = f.WriteString(username + "\n"); err != nil {
		_ = f.Close()

		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "write_failed",
			apperr.MetaStage:  apperr.StagePause,
		})
	}

	if err = f.Close(); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "close_failed",
			apperr.MetaStage:  apperr.StagePause,
		})
	}

	r.logger.Info("Identity paused", zap.String(logg.Username, username), zap.String("path", r.path))

	return nil
}
