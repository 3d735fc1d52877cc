package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"newsforge/internal/assetindex"
)

const assetColumns = "id, channel_id, asset_type, url, production_id, dialogue_text, scene_type, shot_type, duration_seconds, resolution, aspect_ratio, variation, use_count, original_asset_id, created_at, last_used_at"

// InsertAsset records a newly generated asset.
func (s *Store) InsertAsset(ctx context.Context, record assetindex.Record) error {
	if record.ID == "" {
		return errors.New("asset id required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO assets (`+assetColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.ChannelID,
		string(record.Type),
		record.URL,
		nullableString(record.ProductionID),
		nullableString(record.DialogueText),
		nullableString(record.SceneType),
		nullableString(record.ShotType),
		record.DurationSeconds,
		nullableString(record.Resolution),
		nullableString(record.AspectRatio),
		nullableString(record.Variation),
		record.UseCount,
		nullableString(record.OriginalAssetID),
		formatTime(record.CreatedAt),
		nullableTime(record.LastUsedAt),
	)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// GetAsset fetches an asset by identifier. Missing assets return nil.
func (s *Store) GetAsset(ctx context.Context, id string) (*assetindex.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	record, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return record, nil
}

// AssetsByChannel returns the most recent assets of one type for a channel.
func (s *Store) AssetsByChannel(ctx context.Context, channelID string, assetType assetindex.AssetType, limit int) ([]assetindex.Record, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+assetColumns+` FROM assets WHERE channel_id = ? AND asset_type = ? ORDER BY created_at DESC LIMIT ?`,
		channelID, string(assetType), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("assets by channel: %w", err)
	}
	defer rows.Close()
	return collectAssets(rows)
}

// MarkAssetUsed increments an asset's use count and stamps last use.
func (s *Store) MarkAssetUsed(ctx context.Context, id string, usedAt time.Time) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE assets SET use_count = use_count + 1, last_used_at = ? WHERE id = ?`,
		formatTime(usedAt), id,
	)
	if err != nil {
		return fmt.Errorf("mark asset used: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("asset %s not found", id)
	}
	return nil
}

// PopularAssets returns assets ordered by descending use count. An empty
// assetType spans all types.
func (s *Store) PopularAssets(ctx context.Context, channelID string, assetType assetindex.AssetType, limit int) ([]assetindex.Record, error) {
	if limit <= 0 {
		limit = 10
	}
	var (
		rows *sql.Rows
		err  error
	)
	if assetType == "" {
		rows, err = s.db.QueryContext(
			ctx,
			`SELECT `+assetColumns+` FROM assets WHERE channel_id = ? ORDER BY use_count DESC, created_at DESC LIMIT ?`,
			channelID, limit,
		)
	} else {
		rows, err = s.db.QueryContext(
			ctx,
			`SELECT `+assetColumns+` FROM assets WHERE channel_id = ? AND asset_type = ? ORDER BY use_count DESC, created_at DESC LIMIT ?`,
			channelID, string(assetType), limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("popular assets: %w", err)
	}
	defer rows.Close()
	return collectAssets(rows)
}

func collectAssets(rows *sql.Rows) ([]assetindex.Record, error) {
	var records []assetindex.Record
	for rows.Next() {
		record, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanAsset(scanner interface{ Scan(dest ...any) error }) (*assetindex.Record, error) {
	var (
		id          string
		channelID   string
		assetType   string
		url         string
		production  sql.NullString
		dialogue    sql.NullString
		sceneType   sql.NullString
		shotType    sql.NullString
		duration    sql.NullFloat64
		resolution  sql.NullString
		aspectRatio sql.NullString
		variation   sql.NullString
		useCount    int
		originalID  sql.NullString
		createdRaw  sql.NullString
		lastUsedRaw sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&channelID,
		&assetType,
		&url,
		&production,
		&dialogue,
		&sceneType,
		&shotType,
		&duration,
		&resolution,
		&aspectRatio,
		&variation,
		&useCount,
		&originalID,
		&createdRaw,
		&lastUsedRaw,
	); err != nil {
		return nil, err
	}

	record := &assetindex.Record{
		ID:              id,
		ChannelID:       channelID,
		Type:            assetindex.AssetType(assetType),
		URL:             url,
		ProductionID:    production.String,
		DialogueText:    dialogue.String,
		SceneType:       sceneType.String,
		ShotType:        shotType.String,
		DurationSeconds: duration.Float64,
		Resolution:      resolution.String,
		AspectRatio:     aspectRatio.String,
		Variation:       variation.String,
		UseCount:        useCount,
		OriginalAssetID: originalID.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	if lastUsedRaw.Valid {
		if lastUsed, err := parseTimeString(lastUsedRaw.String); err == nil {
			record.LastUsedAt = &lastUsed
		}
	}
	return record, nil
}
