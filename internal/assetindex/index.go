package assetindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"newsforge/internal/logging"
	"newsforge/internal/textutil"
)

const (
	// defaultMinSimilarity is the score floor applied when the caller does
	// not supply one.
	defaultMinSimilarity = 0.6
	// textGate is the similarity a dialogue comparison must exceed on its
	// own before it contributes to the total score.
	textGate = 0.7
	// Scoring weights: dialogue similarity contributes up to textWeight,
	// scene and shot exact matches contribute fixed amounts.
	textWeight  = 0.5
	sceneWeight = 0.3
	shotWeight  = 0.2
	// candidateLimit bounds how many records one scoring pass loads.
	candidateLimit = 500
)

// Criteria describes the asset the pipeline is about to generate.
type Criteria struct {
	DialogueText  string
	SceneType     string
	ShotType      string
	MinSimilarity float64
}

// Match is a scored candidate with a human-readable reason string listing
// the criteria that matched.
type Match struct {
	Record Record
	Score  float64
	Reason string
}

// Index ranks reusable assets for a channel.
type Index struct {
	catalog Catalog
	logger  *slog.Logger
}

// New constructs an index over the given catalog.
func New(catalog Catalog, logger *slog.Logger) *Index {
	return &Index{
		catalog: catalog,
		logger:  logging.NewComponentLogger(logger, "assetindex"),
	}
}

// FindSimilar returns candidates scoring at or above the criteria's minimum
// similarity, sorted by descending score.
func (i *Index) FindSimilar(ctx context.Context, channelID string, assetType AssetType, criteria Criteria) ([]Match, error) {
	minSimilarity := criteria.MinSimilarity
	if minSimilarity <= 0 {
		minSimilarity = defaultMinSimilarity
	}

	candidates, err := i.catalog.AssetsByChannel(ctx, channelID, assetType, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	dialogue := textutil.Normalize(criteria.DialogueText)
	matches := make([]Match, 0, len(candidates))
	for _, record := range candidates {
		score, reasons := scoreRecord(record, criteria, dialogue)
		if score < minSimilarity {
			continue
		}
		matches = append(matches, Match{
			Record: record,
			Score:  score,
			Reason: strings.Join(reasons, ", "),
		})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	return matches, nil
}

func scoreRecord(record Record, criteria Criteria, normalizedDialogue string) (float64, []string) {
	var score float64
	reasons := make([]string, 0, 3)

	if normalizedDialogue != "" && record.DialogueText != "" {
		similarity := textutil.Similarity(normalizedDialogue, textutil.Normalize(record.DialogueText))
		if similarity > textGate {
			score += similarity * textWeight
			reasons = append(reasons, fmt.Sprintf("dialogue %d%% similar", int(similarity*100)))
		}
	}
	if criteria.SceneType != "" && strings.EqualFold(criteria.SceneType, record.SceneType) {
		score += sceneWeight
		reasons = append(reasons, "scene type match")
	}
	if criteria.ShotType != "" && strings.EqualFold(criteria.ShotType, record.ShotType) {
		score += shotWeight
		reasons = append(reasons, "shot type match")
	}
	return score, reasons
}

// RecordReuse increments the asset's use count and stamps last use.
func (i *Index) RecordReuse(ctx context.Context, assetID string) error {
	if strings.TrimSpace(assetID) == "" {
		return errors.New("asset id required")
	}
	if err := i.catalog.MarkAssetUsed(ctx, assetID, time.Now().UTC()); err != nil {
		return fmt.Errorf("record reuse: %w", err)
	}
	i.logger.Debug("asset reused", logging.String("asset_id", assetID))
	return nil
}

// Popular returns assets ordered by descending use count. An empty assetType
// spans all types.
func (i *Index) Popular(ctx context.Context, channelID string, assetType AssetType, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	records, err := i.catalog.PopularAssets(ctx, channelID, assetType, limit)
	if err != nil {
		return nil, fmt.Errorf("popular assets: %w", err)
	}
	return records, nil
}

// CreateVersion derives a new asset from an existing one, copying its
// descriptive attributes and recording lineage. The new record starts with a
// zero use count.
func (i *Index) CreateVersion(ctx context.Context, originalID, newURL, variationLabel string) (*Record, error) {
	original, err := i.catalog.GetAsset(ctx, originalID)
	if err != nil {
		return nil, fmt.Errorf("load original asset: %w", err)
	}
	if original == nil {
		return nil, fmt.Errorf("original asset %s not found", originalID)
	}

	version := Record{
		ID:              uuid.NewString(),
		ChannelID:       original.ChannelID,
		Type:            original.Type,
		URL:             newURL,
		ProductionID:    original.ProductionID,
		DialogueText:    original.DialogueText,
		SceneType:       original.SceneType,
		ShotType:        original.ShotType,
		DurationSeconds: original.DurationSeconds,
		Resolution:      original.Resolution,
		AspectRatio:     original.AspectRatio,
		Variation:       variationLabel,
		UseCount:        0,
		OriginalAssetID: original.ID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := i.catalog.InsertAsset(ctx, version); err != nil {
		return nil, fmt.Errorf("insert asset version: %w", err)
	}
	i.logger.Info("asset version created",
		logging.String("asset_id", version.ID),
		logging.String("original_asset_id", original.ID),
		logging.String("variation", variationLabel))
	return &version, nil
}
