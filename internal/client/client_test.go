package client

import (
	"context"
	"testing"
	"time"

	"elim/internal/db/dbtest"
	"elim/internal/models"
	"elim/internal/realtime"
	"elim/internal/router/routertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	env := routertest.New(t)
	alice := dbtest.Profile(t, env.DB, "alice")
	dbtest.Profile(t, env.DB, "bob")
	post := dbtest.Post(t, env.DB, alice.ID, "Bus route 12 changes")
	ctx := context.Background()

	c := New(env.Server.URL + "/")

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, me)

	_, err = c.CreateComment(ctx, post.ID, "hi", nil)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = c.Login(ctx, "nobody")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)

	profile, err := c.Login(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", profile.Username)

	me, err = c.Me(ctx)
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, profile.ID, me.ID)

	root, err := c.CreateComment(ctx, post.ID, "Stop moved to Lenin St", nil)
	require.NoError(t, err)
	reply, err := c.CreateComment(ctx, post.ID, "since Monday", &root.ID)
	require.NoError(t, err)

	_, err = c.CreateComment(ctx, post.ID, "x", strPtr("missing"))
	assert.ErrorIs(t, err, models.ErrParentNotFound)
	_, err = c.CreateComment(ctx, "missing", "x", nil)
	assert.ErrorIs(t, err, models.ErrPostNotFound)

	roots, err := c.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Replies, 1)
	assert.Equal(t, reply.ID, roots[0].Replies[0].ID)
	assert.Equal(t, "bob", roots[0].Author().Username)

	deleted, err := c.DeleteComment(ctx, root.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	roots, err = c.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, reply.ID, roots[0].ID)
	assert.True(t, roots[0].Orphaned)
}

func TestSubscribe(t *testing.T) {
	env := routertest.New(t)
	alice := dbtest.Profile(t, env.DB, "alice")
	post := dbtest.Post(t, env.DB, alice.ID, "Snow clearing")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(env.Server.URL)
	events, err := c.Subscribe(ctx, post.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return env.Hub.Subscribers(post.ID) == 1 }, time.Second, 10*time.Millisecond)

	_, err = c.Login(ctx, "alice")
	require.NoError(t, err)
	created, err := c.CreateComment(ctx, post.ID, "Our street was skipped", nil)
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, realtime.Event{Type: realtime.CommentCreated, PostID: post.ID, CommentID: created.ID}, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, 2*time.Second, 10*time.Millisecond)
}

func strPtr(s string) *string { return &s }
