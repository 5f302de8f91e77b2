package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/farmlink/farmlink/internal/db"
	"github.com/farmlink/farmlink/internal/models"
	"github.com/farmlink/farmlink/pkg/config"
	"github.com/farmlink/farmlink/pkg/logging"
	"github.com/farmlink/farmlink/pkg/telemetry"
)

const defaultBatchSize = 500

// Reconciler recomputes the denormalized like and comment counters
// from the join tables and repairs any drift. It is a safety net for
// the counters, not part of the request path.
type Reconciler struct {
	db     *db.DB
	cfg    *config.ReconcileConfig
	logger *zap.Logger
}

// New creates a new reconciler
func New(database *db.DB, cfg *config.ReconcileConfig) *Reconciler {
	return &Reconciler{
		db:     database,
		cfg:    cfg,
		logger: logging.GetLogger().With(zap.String("component", "reconciler")),
	}
}

// Run executes reconciliation passes until the context is cancelled.
// With a zero interval it runs a single pass and returns.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.cfg.Interval <= 0 {
		_, err := r.RunOnce(ctx)
		return err
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("Reconciliation pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce walks all posts in batches and fixes counter drift. Returns
// the number of posts repaired.
func (r *Reconciler) RunOnce(ctx context.Context) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "reconcile.run_once")
	defer span.End()

	start := time.Now()
	batchSize := r.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var repaired int64
	var lastID int64
	for {
		select {
		case <-ctx.Done():
			return repaired, ctx.Err()
		default:
		}

		var posts []*models.Post
		err := r.db.WithContext(ctx).
			Select("id", "public_id", "like_count", "comment_count").
			Where("id > ?", lastID).
			Order("id ASC").
			Limit(batchSize).
			Find(&posts).Error
		if err != nil {
			return repaired, err
		}
		if len(posts) == 0 {
			break
		}

		for _, post := range posts {
			fixed, err := r.reconcilePost(ctx, post)
			if err != nil {
				return repaired, err
			}
			if fixed {
				repaired++
			}
			lastID = post.ID
		}
	}

	r.logger.Info("Reconciliation pass complete",
		zap.Int64("repaired", repaired),
		zap.Duration("elapsed", time.Since(start)))
	return repaired, nil
}

func (r *Reconciler) reconcilePost(ctx context.Context, post *models.Post) (bool, error) {
	var likeCount int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ?", post.ID).
		Count(&likeCount).Error
	if err != nil {
		return false, err
	}

	var commentCount int64
	err = r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("post_id = ?", post.ID).
		Count(&commentCount).Error
	if err != nil {
		return false, err
	}

	if post.LikeCount == likeCount && post.CommentCount == commentCount {
		return false, nil
	}

	r.logger.Warn("Counter drift detected",
		zap.String("post", post.PublicID),
		zap.Int64("stored_likes", post.LikeCount),
		zap.Int64("actual_likes", likeCount),
		zap.Int64("stored_comments", post.CommentCount),
		zap.Int64("actual_comments", commentCount))

	err = r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", post.ID).
		UpdateColumns(map[string]interface{}{
			"like_count":    likeCount,
			"comment_count": commentCount,
		}).Error
	if err != nil {
		return false, err
	}
	return true, nil
}
