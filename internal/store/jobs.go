package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"newsforge/internal/production"
)

const jobColumns = "id, channel_id, user_id, date_key, status, current_step, selected_item_ids, script_json, viral_hook, metadata_json, segments_json, video_assets_json, thumbnail_urls, error_message, created_at, updated_at, completed_at"

// SaveJob inserts or updates a production job checkpoint.
func (s *Store) SaveJob(ctx context.Context, job *production.Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.ID == "" {
		return errors.New("job id required")
	}
	job.UpdatedAt = time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = job.UpdatedAt
	}

	selection, err := json.Marshal(job.SelectedItemIDs)
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}
	script, err := marshalNullable(job.Script, len(job.Script) > 0)
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}
	metadata, err := marshalNullable(job.Metadata, job.Metadata != nil)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	segments, err := marshalNullable(job.Segments, len(job.Segments) > 0)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	videos, err := marshalNullable(job.Videos, !job.Videos.Empty())
	if err != nil {
		return fmt.Errorf("marshal video assets: %w", err)
	}
	thumbnails, err := marshalNullable(job.ThumbnailURLs, len(job.ThumbnailURLs) > 0)
	if err != nil {
		return fmt.Errorf("marshal thumbnails: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO productions (`+jobColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             channel_id = excluded.channel_id,
             user_id = excluded.user_id,
             date_key = excluded.date_key,
             status = excluded.status,
             current_step = excluded.current_step,
             selected_item_ids = excluded.selected_item_ids,
             script_json = excluded.script_json,
             viral_hook = excluded.viral_hook,
             metadata_json = excluded.metadata_json,
             segments_json = excluded.segments_json,
             video_assets_json = excluded.video_assets_json,
             thumbnail_urls = excluded.thumbnail_urls,
             error_message = excluded.error_message,
             updated_at = excluded.updated_at,
             completed_at = excluded.completed_at`,
		job.ID,
		job.ChannelID,
		nullableString(job.UserID),
		nullableString(job.DateKey),
		string(job.Status),
		job.CurrentStep,
		string(selection),
		script,
		nullableString(job.ViralHook),
		metadata,
		segments,
		videos,
		thumbnails,
		nullableString(job.ErrorMessage),
		formatTime(job.CreatedAt),
		formatTime(job.UpdatedAt),
		nullableTime(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// GetJob fetches a production job by identifier. Missing jobs return nil.
func (s *Store) GetJob(ctx context.Context, id string) (*production.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM productions WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// JobsByChannel returns jobs for a channel ordered by creation time descending.
func (s *Store) JobsByChannel(ctx context.Context, channelID string, limit int) ([]*production.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM productions WHERE channel_id = ? ORDER BY created_at DESC LIMIT ?`,
		channelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*production.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func marshalNullable(value any, present bool) (any, error) {
	if !present {
		return nil, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*production.Job, error) {
	var (
		id           string
		channelID    string
		userID       sql.NullString
		dateKey      sql.NullString
		statusStr    string
		currentStep  int
		selection    sql.NullString
		script       sql.NullString
		viralHook    sql.NullString
		metadata     sql.NullString
		segments     sql.NullString
		videos       sql.NullString
		thumbnails   sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&channelID,
		&userID,
		&dateKey,
		&statusStr,
		&currentStep,
		&selection,
		&script,
		&viralHook,
		&metadata,
		&segments,
		&videos,
		&thumbnails,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	job := &production.Job{
		ID:           id,
		ChannelID:    channelID,
		UserID:       userID.String,
		DateKey:      dateKey.String,
		Status:       production.Status(statusStr),
		CurrentStep:  currentStep,
		ViralHook:    viralHook.String,
		ErrorMessage: errorMessage.String,
	}

	if selection.Valid && selection.String != "" {
		if err := json.Unmarshal([]byte(selection.String), &job.SelectedItemIDs); err != nil {
			return nil, fmt.Errorf("unmarshal selection: %w", err)
		}
	}
	if script.Valid && script.String != "" {
		if err := json.Unmarshal([]byte(script.String), &job.Script); err != nil {
			return nil, fmt.Errorf("unmarshal script: %w", err)
		}
	}
	if metadata.Valid && metadata.String != "" {
		job.Metadata = &production.Metadata{}
		if err := json.Unmarshal([]byte(metadata.String), job.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if segments.Valid && segments.String != "" {
		if err := json.Unmarshal([]byte(segments.String), &job.Segments); err != nil {
			return nil, fmt.Errorf("unmarshal segments: %w", err)
		}
	}
	if videos.Valid && videos.String != "" {
		if err := json.Unmarshal([]byte(videos.String), &job.Videos); err != nil {
			return nil, fmt.Errorf("unmarshal video assets: %w", err)
		}
	}
	if thumbnails.Valid && thumbnails.String != "" {
		if err := json.Unmarshal([]byte(thumbnails.String), &job.ThumbnailURLs); err != nil {
			return nil, fmt.Errorf("unmarshal thumbnails: %w", err)
		}
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	return job, nil
}
