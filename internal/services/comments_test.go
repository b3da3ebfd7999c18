package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"elim/internal/db/dbtest"
	"elim/internal/metrics"
	"elim/internal/models"
	"elim/internal/realtime"
	"elim/internal/store"
	"elim/internal/thread"
	"elim/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	svc     *CommentService
	hub     *realtime.Hub
	cache   *utils.LocalCache
	metrics *metrics.Metrics
	alice   models.Profile
	bob     models.Profile
	post    models.Post
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.New(t)
	cache, err := utils.NewLocalCache(64)
	require.NoError(t, err)

	f := &fixture{
		db:      gdb,
		hub:     realtime.NewHub(zap.NewNop()),
		cache:   cache,
		metrics: metrics.New(),
	}
	f.svc = NewCommentService(store.NewGormStore(gdb),
		WithCache(cache, time.Minute),
		WithPoints(NewPointsService(gdb)),
		WithNotifications(NewNotificationService(gdb)),
		WithPublisher(f.hub),
		WithMetrics(f.metrics),
		WithLogger(zap.NewNop()),
	)
	f.alice = dbtest.Profile(t, gdb, "alice")
	f.bob = dbtest.Profile(t, gdb, "bob")
	f.post = dbtest.Post(t, gdb, f.alice.ID, "Broken streetlight on Main St")
	return f
}

func strPtr(s string) *string { return &s }

func TestCreateRootAndReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, err := f.svc.Create(ctx, f.bob.ID, CreateInput{PostID: f.post.ID, Content: "  Reported it to the council  "})
	require.NoError(t, err)
	assert.NotEmpty(t, root.ID)
	assert.Nil(t, root.ParentID)
	assert.Equal(t, "Reported it to the council", root.Content)
	assert.Equal(t, "bob", root.Author().Username)

	reply, err := f.svc.Create(ctx, f.alice.ID, CreateInput{PostID: f.post.ID, ParentID: strPtr(root.ID), Content: "Thanks!"})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)

	roots, err := f.svc.Thread(ctx, f.post.ID)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, root.ID, roots[0].ID)
	require.Len(t, roots[0].Replies, 1)
	assert.Equal(t, reply.ID, roots[0].Replies[0].ID)
	assert.Equal(t, "alice", roots[0].Replies[0].Author().Username)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   string
		in      CreateInput
		wantErr error
	}{
		{"empty content", f.bob.ID, CreateInput{PostID: f.post.ID, Content: ""}, models.ErrEmptyContent},
		{"whitespace content", f.bob.ID, CreateInput{PostID: f.post.ID, Content: " \n\t "}, models.ErrEmptyContent},
		{"no viewer", "", CreateInput{PostID: f.post.ID, Content: "hi"}, models.ErrUnauthenticated},
		{"unknown post", f.bob.ID, CreateInput{PostID: "missing", Content: "hi"}, models.ErrPostNotFound},
		{"unknown parent", f.bob.ID, CreateInput{PostID: f.post.ID, ParentID: strPtr("missing"), Content: "hi"}, models.ErrParentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := f.svc.Create(ctx, tt.actor, tt.in)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateRejectsParentFromAnotherPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := dbtest.Post(t, f.db, f.bob.ID, "Library hours")

	foreign, err := f.svc.Create(ctx, f.bob.ID, CreateInput{PostID: other.ID, Content: "open on sundays?"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.bob.ID, CreateInput{PostID: f.post.ID, ParentID: strPtr(foreign.ID), Content: "x"})
	assert.ErrorIs(t, err, models.ErrParentNotFound)
}

func TestCreateEmptyParentIsRoot(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.Create(context.Background(), f.bob.ID, CreateInput{PostID: f.post.ID, ParentID: strPtr(""), Content: "hello"})
	require.NoError(t, err)
	assert.Nil(t, c.ParentID)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent, err := f.svc.Create(ctx, f.bob.ID, CreateInput{PostID: f.post.ID, Content: "parent"})
	require.NoError(t, err)
	reply, err := f.svc.Create(ctx, f.alice.ID, CreateInput{PostID: f.post.ID, ParentID: strPtr(parent.ID), Content: "reply"})
	require.NoError(t, err)

	t.Run("unauthenticated", func(t *testing.T) {
		ok, err := f.svc.Delete(ctx, "", parent.ID)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
		assert.False(t, ok)
	})

	t.Run("not the author", func(t *testing.T) {
		ok, err := f.svc.Delete(ctx, f.alice.ID, parent.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		roots, err := f.svc.Thread(ctx, f.post.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, thread.Count(roots))
	})

	t.Run("author", func(t *testing.T) {
		ok, err := f.svc.Delete(ctx, f.bob.ID, parent.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		roots, err := f.svc.Thread(ctx, f.post.ID)
		require.NoError(t, err)
		require.Len(t, roots, 1)
		assert.Equal(t, reply.ID, roots[0].ID)
		assert.True(t, roots[0].Orphaned)
	})

	t.Run("already gone", func(t *testing.T) {
		ok, err := f.svc.Delete(ctx, f.bob.ID, parent.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestThreadCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.bob.ID, CreateInput{PostID: f.post.ID, Content: "first"})
	require.NoError(t, err)

	roots, err := f.svc.Thread(ctx, f.post.ID)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	_, cached := f.cache.Get(ctx, threadCacheKey(f.post.ID))
	assert.True(t, cached)

	again, err := f.svc.Thread(ctx, f.post.ID)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, roots[0].ID, again[0].ID)
	assert.Equal(t, roots[0].Author(), again[0].Author())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Operation("thread", metrics.OutcomeCacheHit)))

	_, err = f.svc.Create(ctx, f.bob.ID, CreateInput{PostID: f.post.ID, Content: "second"})
	require.NoError(t, err)
	_, cached = f.cache.Get(ctx, threadCacheKey(f.post.ID))
	assert.False(t, cached)

	roots, err = f.svc.Thread(ctx, f.post.ID)
	require.NoError(t, err)
	assert.Len(t, roots, 2)
}

// pausingStore holds ListByPost after the rows are read until resume is closed.
type pausingStore struct {
	store.CommentStore
	listed chan struct{}
	resume chan struct{}
}

func (p *pausingStore) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	rows, err := p.CommentStore.ListByPost(ctx, postID)
	if p.listed != nil {
		close(p.listed)
		p.listed = nil
		<-p.resume
	}
	return rows, err
}

func TestThreadCacheIgnoresTreeReadBeforeWrite(t *testing.T) {
	caches := map[string]func(t *testing.T) utils.Cache{
		"local": func(t *testing.T) utils.Cache {
			c, err := utils.NewLocalCache(64)
			require.NoError(t, err)
			return c
		},
		"redis": func(t *testing.T) utils.Cache {
			s := miniredis.RunT(t)
			return utils.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: s.Addr()}))
		},
	}
	for name, newCache := range caches {
		t.Run(name, func(t *testing.T) {
			gdb := dbtest.New(t)
			ctx := context.Background()
			alice := dbtest.Profile(t, gdb, "alice")
			post := dbtest.Post(t, gdb, alice.ID, "Bus stop moved")

			st := &pausingStore{
				CommentStore: store.NewGormStore(gdb),
				listed:       make(chan struct{}),
				resume:       make(chan struct{}),
			}
			svc := NewCommentService(st, WithCache(newCache(t), time.Minute))

			listed := st.listed
			done := make(chan []*thread.Node, 1)
			go func() {
				roots, err := svc.Thread(ctx, post.ID)
				assert.NoError(t, err)
				done <- roots
			}()
			<-listed

			_, err := svc.Create(ctx, alice.ID, CreateInput{PostID: post.ID, Content: "it is at the corner now"})
			require.NoError(t, err)
			close(st.resume)
			assert.Empty(t, <-done)

			roots, err := svc.Thread(ctx, post.ID)
			require.NoError(t, err)
			require.Len(t, roots, 1)
			assert.Equal(t, "it is at the corner now", roots[0].Content)

			ok, err := svc.Delete(ctx, alice.ID, roots[0].ID)
			require.NoError(t, err)
			require.True(t, ok)
			roots, err = svc.Thread(ctx, post.ID)
			require.NoError(t, err)
			assert.Empty(t, roots)
		})
	}
}

func TestEmptyThread(t *testing.T) {
	f := newFixture(t)
	roots, err := f.svc.Thread(context.Background(), f.post.ID)
	require.NoError(t, err)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
}

func TestMutationsPublishEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.hub.Subscribe(f.post.ID)
	defer sub.Close()

	c, err := f.svc.Create(ctx, f.bob.ID, CreateInput{PostID: f.post.ID, Content: "hello"})
	require.NoError(t, err)
	ok, err := f.svc.Delete(ctx, f.bob.ID, c.ID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, realtime.Event{Type: realtime.CommentCreated, PostID: f.post.ID, CommentID: c.ID}, <-sub.Events())
	assert.Equal(t, realtime.Event{Type: realtime.CommentDeleted, PostID: f.post.ID, CommentID: c.ID}, <-sub.Events())
}

func TestSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, err := f.svc.Create(ctx, f.bob.ID, CreateInput{PostID: f.post.ID, Content: "root"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.alice.ID, CreateInput{PostID: f.post.ID, ParentID: strPtr(root.ID), Content: "reply"})
	require.NoError(t, err)
	// replying to oneself notifies nobody
	_, err = f.svc.Create(ctx, f.bob.ID, CreateInput{PostID: f.post.ID, ParentID: strPtr(root.ID), Content: "me again"})
	require.NoError(t, err)

	notifications := NewNotificationService(f.db)

	forAlice, err := notifications.List(ctx, f.alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, forAlice, 1)
	assert.Equal(t, models.NotificationTypeCommentPost, forAlice[0].Type)
	assert.Equal(t, root.ID, forAlice[0].CommentID)

	forBob, err := notifications.List(ctx, f.bob.ID, 10)
	require.NoError(t, err)
	require.Len(t, forBob, 1)
	assert.Equal(t, models.NotificationTypeReplyComment, forBob[0].Type)
	require.NotNil(t, forBob[0].Actor)
	assert.Equal(t, "alice", forBob[0].Actor.Username)

	var bob models.Profile
	require.NoError(t, f.db.First(&bob, "id = ?", f.bob.ID).Error)
	assert.Equal(t, 2, bob.Points)
}

type brokenStore struct {
	store.CommentStore
	err error
}

func (b brokenStore) ListByPost(context.Context, string) ([]models.Comment, error) {
	return nil, b.err
}

func (b brokenStore) FindPost(_ context.Context, id string) (*models.Post, error) {
	return &models.Post{ID: id}, nil
}

func (b brokenStore) Insert(context.Context, *models.Comment) error {
	return b.err
}

func (b brokenStore) Find(context.Context, string) (*models.Comment, error) {
	return nil, b.err
}

func TestPersistenceFailures(t *testing.T) {
	cause := errors.New("connection reset")
	svc := NewCommentService(brokenStore{err: cause})
	ctx := context.Background()

	var perr *PersistenceError

	_, err := svc.Thread(ctx, "p1")
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, cause)

	_, err = svc.Create(ctx, "u1", CreateInput{PostID: "p1", Content: "hi"})
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "create", perr.Op)

	ok, err := svc.Delete(ctx, "u1", "c1")
	require.ErrorAs(t, err, &perr)
	assert.False(t, ok)
}
