package assetindex

import (
	"context"
	"strings"
	"time"
)

// AssetType enumerates the kinds of reusable media.
type AssetType string

const (
	AssetVideo AssetType = "video"
	AssetAudio AssetType = "audio"
	AssetImage AssetType = "image"
)

// ParseAssetType converts a string into a known AssetType.
func ParseAssetType(value string) (AssetType, bool) {
	switch AssetType(strings.ToLower(strings.TrimSpace(value))) {
	case AssetVideo:
		return AssetVideo, true
	case AssetAudio:
		return AssetAudio, true
	case AssetImage:
		return AssetImage, true
	default:
		return "", false
	}
}

// Record describes one generated asset. Records are never deleted by the
// core; housekeeping is an external concern.
type Record struct {
	ID              string
	ChannelID       string
	Type            AssetType
	URL             string
	ProductionID    string
	DialogueText    string
	SceneType       string
	ShotType        string
	DurationSeconds float64
	Resolution      string
	AspectRatio     string
	Variation       string
	UseCount        int
	OriginalAssetID string
	CreatedAt       time.Time
	LastUsedAt      *time.Time
}

// Catalog is the record query capability the index depends on. Absent records
// are returned as nil without error.
type Catalog interface {
	InsertAsset(ctx context.Context, record Record) error
	GetAsset(ctx context.Context, id string) (*Record, error)
	AssetsByChannel(ctx context.Context, channelID string, assetType AssetType, limit int) ([]Record, error)
	MarkAssetUsed(ctx context.Context, id string, usedAt time.Time) error
	PopularAssets(ctx context.Context, channelID string, assetType AssetType, limit int) ([]Record, error)
}
