package interfaces

import (
	"context"

	"github.com/yanwei/fundwatch/internal/models"
)

// Store persists user state. Loads return first-run defaults when
// nothing has been saved yet; they never fail on a missing file.
type Store interface {
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error
	LoadSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings *models.Settings) error
}
