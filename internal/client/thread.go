package client

import (
	"context"
	"strings"
	"sync"

	"elim/internal/models"
	"elim/internal/thread"

	"go.uber.org/zap"
)

// Thread is the client-side state of one post's discussion. The comment list
// is only ever replaced by a complete server response; mutations wait for the
// server and then refetch.
type Thread struct {
	client *Client
	postID string
	viewer *models.Profile
	logger *zap.Logger

	mu       sync.Mutex
	comments []*thread.Node
	inflight int
	loaded   bool
	issued   uint64
	applied  uint64
	onChange func([]*thread.Node)
}

// NewThread starts in the loading state with no comments. viewer may be nil.
func NewThread(c *Client, postID string, viewer *models.Profile, logger *zap.Logger) *Thread {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Thread{
		client:   c,
		postID:   postID,
		viewer:   viewer,
		logger:   logger,
		comments: []*thread.Node{},
	}
}

// OnChange registers fn to run after every applied fetch.
func (t *Thread) OnChange(fn func([]*thread.Node)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

func (t *Thread) Comments() []*thread.Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.comments
}

// Loading is true before the first fetch settles and while any fetch runs.
func (t *Thread) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.loaded || t.inflight > 0
}

// Refetch replaces the comment list with the server's current thread. A
// response that arrives after a newer one has been applied is dropped. On
// failure the list is left as it was.
func (t *Thread) Refetch(ctx context.Context) error {
	t.mu.Lock()
	t.issued++
	gen := t.issued
	t.inflight++
	t.mu.Unlock()

	roots, err := t.client.ListComments(ctx, t.postID)

	t.mu.Lock()
	t.inflight--
	t.loaded = true
	var notify func([]*thread.Node)
	if err == nil && gen > t.applied {
		t.comments = roots
		t.applied = gen
		notify = t.onChange
	}
	t.mu.Unlock()

	if err != nil {
		t.logger.Warn("fetch comments", zap.String("post", t.postID), zap.Error(err))
		return err
	}
	if notify != nil {
		notify(roots)
	}
	return nil
}

// AddComment posts a comment, or a reply when parentID is set, then
// refetches the thread. Only a rejected or failed create is returned; once
// the server has stored the comment a failed refetch is logged and the list
// keeps its last state until the next refetch.
func (t *Thread) AddComment(ctx context.Context, content string, parentID *string) error {
	if strings.TrimSpace(content) == "" {
		return models.ErrEmptyContent
	}
	if t.viewer == nil {
		return models.ErrUnauthenticated
	}
	created, err := t.client.CreateComment(ctx, t.postID, strings.TrimSpace(content), parentID)
	if err != nil {
		return err
	}
	t.refetchAfter(ctx, "create", created.ID)
	return nil
}

// DeleteComment asks the server to delete id, then refetches. The server
// ignores deletes of comments the viewer did not write. As with AddComment,
// a refetch failure after the delete is not returned.
func (t *Thread) DeleteComment(ctx context.Context, id string) error {
	if t.viewer == nil {
		return models.ErrUnauthenticated
	}
	if _, err := t.client.DeleteComment(ctx, id); err != nil {
		return err
	}
	t.refetchAfter(ctx, "delete", id)
	return nil
}

func (t *Thread) refetchAfter(ctx context.Context, op, commentID string) {
	if err := t.Refetch(ctx); err != nil {
		t.logger.Warn("refetch after "+op, zap.String("post", t.postID), zap.String("comment", commentID), zap.Error(err))
	}
}

// CanDelete reports whether the delete action should be offered for n.
func (t *Thread) CanDelete(n *thread.Node) bool {
	return t.viewer != nil && n.AuthorID == t.viewer.ID
}

// Watch fetches the thread and refetches on every change event until ctx is
// done or the event stream ends.
func (t *Thread) Watch(ctx context.Context) error {
	events, err := t.client.Subscribe(ctx, t.postID)
	if err != nil {
		return err
	}
	if err := t.Refetch(ctx); err != nil {
		return err
	}
	for ev := range events {
		t.logger.Debug("comment event", zap.String("type", string(ev.Type)), zap.String("comment", ev.CommentID))
		// failures are logged by Refetch; the next event retries
		_ = t.Refetch(ctx)
	}
	return ctx.Err()
}
