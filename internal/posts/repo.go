package posts

import (
	"context"
	"time"

	"github.com/davazquez/commonroom-backend/pkg/db/models"
	"github.com/davazquez/commonroom-backend/pkg/enums"
	"github.com/davazquez/commonroom-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for posts and comments, and exposes the
// vote-target surface the vote engine works against.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePost(ctx context.Context, post *models.Post) error
	FindPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error
	ListPosts(ctx context.Context, communityID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Post, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	FindComment(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
	ListComments(ctx context.Context, postID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Comment, error)

	ResolveVoteTarget(ctx context.Context, targetType enums.VoteTargetType, targetID uuid.UUID) (uuid.UUID, error)
	AdjustVoteCounts(ctx context.Context, tx *gorm.DB, targetType enums.VoteTargetType, targetID uuid.UUID, upDelta, downDelta int) error
	GetVoteCounts(ctx context.Context, targetType enums.VoteTargetType, targetID uuid.UUID) (int, int, error)
	ReconcileVoteCounts(ctx context.Context, targetType enums.VoteTargetType) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a content repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreatePost(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *repository) FindPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *repository) DeletePost(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{}).Error
}

func (r *repository) ListPosts(ctx context.Context, communityID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Post, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("community_id = ?", communityID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Post
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *repository) FindComment(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *repository) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{}).Error
}

func (r *repository) ListComments(ctx context.Context, postID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Comment, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ?", postID)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Comment
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ResolveVoteTarget maps a vote target to the community whose gate applies.
// Comments resolve through their post.
func (r *repository) ResolveVoteTarget(ctx context.Context, targetType enums.VoteTargetType, targetID uuid.UUID) (uuid.UUID, error) {
	switch targetType {
	case enums.VoteTargetPost:
		post, err := r.FindPost(ctx, targetID)
		if err != nil {
			return uuid.Nil, err
		}
		return post.CommunityID, nil
	case enums.VoteTargetComment:
		comment, err := r.FindComment(ctx, targetID)
		if err != nil {
			return uuid.Nil, err
		}
		post, err := r.FindPost(ctx, comment.PostID)
		if err != nil {
			return uuid.Nil, err
		}
		return post.CommunityID, nil
	default:
		return uuid.Nil, gorm.ErrRecordNotFound
	}
}

// AdjustVoteCounts moves both cached counters in one atomic statement so a
// direction flip is a single write, never an intermediate state.
func (r *repository) AdjustVoteCounts(ctx context.Context, tx *gorm.DB, targetType enums.VoteTargetType, targetID uuid.UUID, upDelta, downDelta int) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}

	table := "posts"
	if targetType == enums.VoteTargetComment {
		table = "comments"
	}
	// Bound timestamp rather than NOW() so the statement also runs on the
	// sqlite dev database.
	return conn.WithContext(ctx).Exec(
		"UPDATE "+table+" SET upvote_count = upvote_count + ?, downvote_count = downvote_count + ?, updated_at = ? WHERE id = ?",
		upDelta, downDelta, time.Now().UTC(), targetID,
	).Error
}

func (r *repository) GetVoteCounts(ctx context.Context, targetType enums.VoteTargetType, targetID uuid.UUID) (int, int, error) {
	if targetType == enums.VoteTargetComment {
		comment, err := r.FindComment(ctx, targetID)
		if err != nil {
			return 0, 0, err
		}
		return comment.UpvoteCount, comment.DownvoteCount, nil
	}
	post, err := r.FindPost(ctx, targetID)
	if err != nil {
		return 0, 0, err
	}
	return post.UpvoteCount, post.DownvoteCount, nil
}

// ReconcileVoteCounts recomputes cached vote counters for every target of one
// kind from the vote ledger and returns how many rows drifted.
func (r *repository) ReconcileVoteCounts(ctx context.Context, targetType enums.VoteTargetType) (int64, error) {
	table := "posts"
	if targetType == enums.VoteTargetComment {
		table = "comments"
	}
	result := r.db.WithContext(ctx).Exec(`
		UPDATE `+table+` SET upvote_count = sub.ups, downvote_count = sub.downs, updated_at = NOW()
		FROM (
			SELECT t.id,
				COUNT(v.id) FILTER (WHERE v.direction = 'upvote') AS ups,
				COUNT(v.id) FILTER (WHERE v.direction = 'downvote') AS downs
			FROM `+table+` t
			LEFT JOIN votes v ON v.target_id = t.id AND v.target_type = ?
			GROUP BY t.id
		) sub
		WHERE `+table+`.id = sub.id
		AND (`+table+`.upvote_count <> sub.ups OR `+table+`.downvote_count <> sub.downs)`,
		targetType.String())
	return result.RowsAffected, result.Error
}
