package posts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/blog-api/internal/apperr"
	"github.com/yourusername/blog-api/internal/auth"
)

type fakeFiles struct {
	seq       int
	discarded []string
	saveErr   error
}

func (f *fakeFiles) Save(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.seq++
	return file.Filename, nil
}

func (f *fakeFiles) Discard(ctx context.Context, name string) {
	if name != "" {
		f.discarded = append(f.discarded, name)
	}
}

type fakeCounter struct {
	counts map[string]int
	err    error
}

func (c *fakeCounter) AdjustPostCount(ctx context.Context, userID string, delta int) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.counts[userID] += delta
	return c.counts[userID], nil
}

type testEnv struct {
	svc     *Service
	store   *MemoryStore
	files   *fakeFiles
	counter *fakeCounter
}

func newTestService(t *testing.T) *testEnv {
	t.Helper()
	store := NewMemoryStore()
	files := &fakeFiles{}
	counter := &fakeCounter{counts: map[string]int{}}
	svc := NewService(store, files, counter, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &testEnv{svc: svc, store: store, files: files, counter: counter}
}

var (
	alice = auth.AuthContext{UserID: "alice-id", Email: "alice@example.com"}
	bob   = auth.AuthContext{UserID: "bob-id", Email: "bob@example.com"}
)

func validCreate() CreateInput {
	return CreateInput{Title: "Harvest", Category: "agriculture", Description: "A long enough description"}
}

func thumb(name string) *multipart.FileHeader {
	return &multipart.FileHeader{Filename: name}
}

func TestCreatePost(t *testing.T) {
	env := newTestService(t)

	post, err := env.svc.Create(context.Background(), alice, validCreate(), thumb("t1.png"))
	require.NoError(t, err)
	assert.Equal(t, CategoryAgriculture, post.Category)
	assert.Equal(t, alice.UserID, post.Creator)
	assert.Equal(t, "t1.png", post.Thumbnail)
	assert.Equal(t, 1, env.counter.counts[alice.UserID])
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestService(t)

	cases := []struct {
		name      string
		in        CreateInput
		thumbnail *multipart.FileHeader
	}{
		{"missing title", CreateInput{Category: "Art", Description: "desc"}, thumb("a.png")},
		{"missing thumbnail", validCreate(), nil},
		{"unknown category", CreateInput{Title: "t", Category: "Sports", Description: "desc"}, thumb("a.png")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Create(context.Background(), alice, tc.in, tc.thumbnail)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
	assert.Zero(t, env.files.seq)
	assert.Zero(t, env.counter.counts[alice.UserID])
}

func TestCreatePostRollsBackWhenCounterFails(t *testing.T) {
	env := newTestService(t)
	env.counter.err = apperr.NotFound("missing user")

	_, err := env.svc.Create(context.Background(), alice, validCreate(), thumb("t1.png"))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	list, err := env.svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, []string{"t1.png"}, env.files.discarded)
}

func TestEditPostOwnership(t *testing.T) {
	env := newTestService(t)
	post, err := env.svc.Create(context.Background(), alice, validCreate(), thumb("t1.png"))
	require.NoError(t, err)

	in := EditInput{Title: "New title", Category: "Business", Description: "Updated description"}
	_, err = env.svc.Edit(context.Background(), bob, post.ID, in, nil)
	assert.Same(t, apperr.ErrForbidden, err)

	updated, err := env.svc.Edit(context.Background(), alice, post.ID, in, nil)
	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, CategoryBusiness, updated.Category)
	assert.Equal(t, "t1.png", updated.Thumbnail)
	assert.Empty(t, env.files.discarded)
}

func TestEditPostReplacesThumbnail(t *testing.T) {
	env := newTestService(t)
	post, err := env.svc.Create(context.Background(), alice, validCreate(), thumb("old.png"))
	require.NoError(t, err)

	in := EditInput{Title: "Harvest", Category: "Agriculture", Description: "Updated description"}
	updated, err := env.svc.Edit(context.Background(), alice, post.ID, in, thumb("new.png"))
	require.NoError(t, err)
	assert.Equal(t, "new.png", updated.Thumbnail)
	assert.Equal(t, []string{"old.png"}, env.files.discarded)
}

func TestEditPostShortDescription(t *testing.T) {
	env := newTestService(t)
	post, err := env.svc.Create(context.Background(), alice, validCreate(), thumb("t1.png"))
	require.NoError(t, err)

	_, err = env.svc.Edit(context.Background(), alice, post.ID, EditInput{Title: "x", Category: "Art", Description: "too short"}, nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestEditMissingPost(t *testing.T) {
	env := newTestService(t)
	_, err := env.svc.Edit(context.Background(), alice, "missing", EditInput{Title: "x", Category: "Art", Description: "long enough text"}, nil)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeletePost(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	post, err := env.svc.Create(ctx, alice, validCreate(), thumb("t1.png"))
	require.NoError(t, err)

	assert.Same(t, apperr.ErrForbidden, env.svc.Delete(ctx, bob, post.ID))
	assert.Equal(t, 1, env.counter.counts[alice.UserID])

	require.NoError(t, env.svc.Delete(ctx, alice, post.ID))
	assert.Equal(t, 0, env.counter.counts[alice.UserID])
	assert.Equal(t, []string{"t1.png"}, env.files.discarded)

	_, err = env.svc.Get(ctx, post.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDeleteSucceedsWhenCounterFails(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	post, err := env.svc.Create(ctx, alice, validCreate(), thumb("t1.png"))
	require.NoError(t, err)

	env.counter.err = errors.New("counter down")
	assert.NoError(t, env.svc.Delete(ctx, alice, post.ID))
}

func TestListOrderingAndFilters(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	env.store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, err := env.svc.Create(ctx, alice, validCreate(), thumb("a.png"))
	require.NoError(t, err)
	second, err := env.svc.Create(ctx, bob, CreateInput{Title: "Art", Category: "Art", Description: "Painting things"}, thumb("b.png"))
	require.NoError(t, err)

	list, err := env.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	_, err = env.svc.Edit(ctx, alice, first.ID, EditInput{Title: "Harvest", Category: "Agriculture", Description: "Fresh description"}, nil)
	require.NoError(t, err)
	list, err = env.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, list[0].ID)

	byCategory, err := env.svc.ListByCategory(ctx, "ART")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, second.ID, byCategory[0].ID)

	unknown, err := env.svc.ListByCategory(ctx, "Sports")
	require.NoError(t, err)
	assert.Empty(t, unknown)

	byCreator, err := env.svc.ListByCreator(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, byCreator, 1)
	assert.Equal(t, first.ID, byCreator[0].ID)
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory(" weather ")
	assert.True(t, ok)
	assert.Equal(t, CategoryWeather, c)

	_, ok = ParseCategory("")
	assert.False(t, ok)
}
