package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"elim/internal/metrics"
	"elim/internal/models"
	"elim/internal/realtime"
	"elim/internal/store"
	"elim/internal/thread"
	"elim/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher receives change events after successful mutations.
type Publisher interface {
	Publish(ev realtime.Event)
}

type CreateInput struct {
	PostID   string
	ParentID *string
	Content  string
}

// CommentService owns the comment lifecycle: listing a post's thread,
// creating top-level comments and replies, and deleting one's own comments.
type CommentService struct {
	store         store.CommentStore
	cache         utils.Cache
	cacheTTL      time.Duration
	points        *PointsService
	notifications *NotificationService
	events        Publisher
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

type Option func(*CommentService)

func WithCache(c utils.Cache, ttl time.Duration) Option {
	return func(s *CommentService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithPoints(p *PointsService) Option {
	return func(s *CommentService) { s.points = p }
}

func WithNotifications(n *NotificationService) Option {
	return func(s *CommentService) { s.notifications = n }
}

func WithPublisher(p Publisher) Option {
	return func(s *CommentService) { s.events = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CommentService) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *CommentService) { s.logger = l }
}

func NewCommentService(st store.CommentStore, opts ...Option) *CommentService {
	s := &CommentService{
		store:  st,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Post returns the post a thread belongs to, or models.ErrPostNotFound.
func (s *CommentService) Post(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.store.FindPost(ctx, postID)
	if err != nil {
		return nil, s.lookupFailed("post", err, models.ErrPostNotFound)
	}
	return post, nil
}

func threadCacheKey(postID string) string {
	return "thread:" + postID
}

func threadVersionKey(postID string) string {
	return "thread-version:" + postID
}

// cachedTree is the cache payload. Version is the post's thread version seen
// before the rows were read; the entry is only served while it still matches.
type cachedTree struct {
	Version  string         `json:"version"`
	Comments []*thread.Node `json:"comments"`
}

// Thread returns the post's comments as a forest of root comments, replies
// nested under their parents in creation order.
func (s *CommentService) Thread(ctx context.Context, postID string) ([]*thread.Node, error) {
	version, roots, ok := s.cachedThread(ctx, postID)
	if ok {
		s.metrics.Observe("thread", metrics.OutcomeCacheHit)
		return roots, nil
	}

	rows, err := s.store.ListByPost(ctx, postID)
	if err != nil {
		s.metrics.Observe("thread", metrics.OutcomeFailed)
		s.logger.Error("list comments failed", zap.String("post", postID), zap.Error(err))
		return nil, &PersistenceError{Op: "list", Err: err}
	}

	roots = thread.Build(rows)
	s.metrics.Observe("thread", metrics.OutcomeOK)
	s.metrics.ObserveThread(len(rows))
	s.storeThread(ctx, postID, version, roots)
	return roots, nil
}

// cachedThread returns the cached tree when it is current. On a miss it
// returns the version the caller must tag a freshly built tree with; an empty
// version means nothing should be cached.
func (s *CommentService) cachedThread(ctx context.Context, postID string) (string, []*thread.Node, bool) {
	if s.cache == nil {
		return "", nil, false
	}
	v, ok := s.cache.Get(ctx, threadVersionKey(postID))
	if !ok {
		version := uuid.NewString()
		if err := s.cache.Set(ctx, threadVersionKey(postID), []byte(version), s.cacheTTL); err != nil {
			s.logger.Warn("set thread version", zap.String("post", postID), zap.Error(err))
			return "", nil, false
		}
		return version, nil, false
	}
	version := string(v)

	data, ok := s.cache.Get(ctx, threadCacheKey(postID))
	if !ok {
		return version, nil, false
	}
	var cached cachedTree
	if err := json.Unmarshal(data, &cached); err != nil {
		s.logger.Warn("discarding unreadable cached thread", zap.String("post", postID), zap.Error(err))
		return version, nil, false
	}
	if cached.Version != version {
		return version, nil, false
	}
	if cached.Comments == nil {
		cached.Comments = []*thread.Node{}
	}
	return version, cached.Comments, true
}

func (s *CommentService) storeThread(ctx context.Context, postID, version string, roots []*thread.Node) {
	if s.cache == nil || version == "" {
		return
	}
	data, err := json.Marshal(cachedTree{Version: version, Comments: roots})
	if err != nil {
		s.logger.Warn("encode thread for cache", zap.String("post", postID), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, threadCacheKey(postID), data, s.cacheTTL); err != nil {
		s.logger.Warn("cache thread", zap.String("post", postID), zap.Error(err))
	}
}

// invalidate moves the post to a new thread version, so a tree built from rows
// read before the write is never served, even if it is stored afterwards.
func (s *CommentService) invalidate(ctx context.Context, postID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, threadVersionKey(postID), []byte(uuid.NewString()), s.cacheTTL); err != nil {
		s.logger.Warn("bump thread version", zap.String("post", postID), zap.Error(err))
		// without a new version the old entry must not survive
		if err := s.cache.Delete(ctx, threadVersionKey(postID)); err != nil {
			s.logger.Warn("drop thread version", zap.String("post", postID), zap.Error(err))
		}
	}
	if err := s.cache.Delete(ctx, threadCacheKey(postID)); err != nil {
		s.logger.Warn("invalidate cached thread", zap.String("post", postID), zap.Error(err))
	}
}

// Create stores a new comment written by actorID. With a ParentID the comment
// is a reply; the parent must belong to the same post.
func (s *CommentService) Create(ctx context.Context, actorID string, in CreateInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		s.metrics.Observe("create", metrics.OutcomeInvalid)
		return nil, models.ErrEmptyContent
	}
	if actorID == "" {
		s.metrics.Observe("create", metrics.OutcomeDenied)
		return nil, models.ErrUnauthenticated
	}

	post, err := s.store.FindPost(ctx, in.PostID)
	if err != nil {
		return nil, s.lookupFailed("create", err, models.ErrPostNotFound)
	}

	var parent *models.Comment
	if in.ParentID != nil && *in.ParentID != "" {
		parent, err = s.store.Find(ctx, *in.ParentID)
		if err != nil {
			return nil, s.lookupFailed("create", err, models.ErrParentNotFound)
		}
		if parent.PostID != post.ID {
			s.metrics.Observe("create", metrics.OutcomeInvalid)
			return nil, models.ErrParentNotFound
		}
	}

	c := &models.Comment{
		PostID:   post.ID,
		AuthorID: actorID,
		Content:  content,
	}
	if parent != nil {
		parentID := parent.ID
		c.ParentID = &parentID
	}

	if err := s.store.Insert(ctx, c); err != nil {
		s.metrics.Observe("create", metrics.OutcomeFailed)
		s.logger.Error("insert comment failed", zap.String("post", post.ID), zap.String("author", actorID), zap.Error(err))
		return nil, &PersistenceError{Op: "create", Err: err}
	}
	s.metrics.Observe("create", metrics.OutcomeOK)

	s.invalidate(ctx, post.ID)
	if s.events != nil {
		s.events.Publish(realtime.Event{Type: realtime.CommentCreated, PostID: post.ID, CommentID: c.ID})
	}
	if s.points != nil {
		if _, err := s.points.CommentCreated(ctx, actorID); err != nil {
			s.logger.Warn("award comment points", zap.String("profile", actorID), zap.Error(err))
		}
	}
	if s.notifications != nil {
		if err := s.notifications.CommentCreated(ctx, post, parent, c); err != nil {
			s.logger.Warn("notify comment", zap.String("comment", c.ID), zap.Error(err))
		}
	}
	return c, nil
}

// Delete removes commentID when actorID wrote it. Deleting someone else's
// comment, or one that no longer exists, reports false without an error.
// Replies are left in place.
func (s *CommentService) Delete(ctx context.Context, actorID, commentID string) (bool, error) {
	if actorID == "" {
		s.metrics.Observe("delete", metrics.OutcomeDenied)
		return false, models.ErrUnauthenticated
	}

	c, err := s.store.Find(ctx, commentID)
	if errors.Is(err, models.ErrNotFound) {
		s.metrics.Observe("delete", metrics.OutcomeNoop)
		return false, nil
	}
	if err != nil {
		s.metrics.Observe("delete", metrics.OutcomeFailed)
		return false, &PersistenceError{Op: "delete", Err: err}
	}

	n, err := s.store.Delete(ctx, commentID, actorID)
	if err != nil {
		s.metrics.Observe("delete", metrics.OutcomeFailed)
		s.logger.Error("delete comment failed", zap.String("comment", commentID), zap.Error(err))
		return false, &PersistenceError{Op: "delete", Err: err}
	}
	if n == 0 {
		s.metrics.Observe("delete", metrics.OutcomeNoop)
		s.logger.Info("ignored delete of foreign comment", zap.String("comment", commentID), zap.String("actor", actorID))
		return false, nil
	}
	s.metrics.Observe("delete", metrics.OutcomeOK)

	s.invalidate(ctx, c.PostID)
	if s.events != nil {
		s.events.Publish(realtime.Event{Type: realtime.CommentDeleted, PostID: c.PostID, CommentID: c.ID})
	}
	if s.points != nil {
		if err := s.points.CommentDeleted(ctx, actorID); err != nil {
			s.logger.Warn("deduct comment points", zap.String("profile", actorID), zap.Error(err))
		}
	}
	return true, nil
}

// lookupFailed maps a miss to the caller-facing sentinel and anything else
// to a PersistenceError.
func (s *CommentService) lookupFailed(op string, err, missing error) error {
	if errors.Is(err, models.ErrNotFound) {
		s.metrics.Observe(op, metrics.OutcomeInvalid)
		return missing
	}
	s.metrics.Observe(op, metrics.OutcomeFailed)
	s.logger.Error("comment lookup failed", zap.String("op", op), zap.Error(err))
	return &PersistenceError{Op: op, Err: err}
}
