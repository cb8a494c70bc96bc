package live

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-blog-forum/internal/models"
)

type feedFixture struct {
	feed     *Feed[doc]
	sub      *fakeSubscriber
	pag      *Pagination
	counters *CounterBoard
	accounts *fakeAccounts
}

func newFeedFixture(t *testing.T, cfg FeedConfig) *feedFixture {
	t.Helper()

	fx := &feedFixture{
		sub:      newFakeSubscriber(),
		pag:      NewPagination(),
		counters: NewCounterBoard(),
		accounts: &fakeAccounts{},
	}

	fx.feed = NewFeed(cfg, FeedDeps[doc]{
		Subscriber: fx.sub,
		Counters:   fx.counters,
		Paginator:  fx.pag,
		Accounts:   fx.accounts,
		Identity:   fakeIdentity("u1"),
	})
	t.Cleanup(fx.feed.Close)

	return fx
}

func (fx *feedFixture) page() PaginationState {
	st, _ := fx.pag.State(fx.feed.PaginationID())
	return st
}

func TestFeed_InitialRegistrationAndPageChange(t *testing.T) {
	fx := newFeedFixture(t, FeedConfig{Publication: "blogs", Counter: "numberOfBlogs"})
	require.NoError(t, fx.feed.Start(context.Background()))

	first := fx.sub.next(t)
	require.Equal(t, []any{BuildOptions(5, 1, "")}, first.req.Args)

	st := fx.page()
	require.Equal(t, 5, st.ItemsPerPage)
	require.Equal(t, 1, st.CurrentPage)

	first.sink.Added(docAt("old", 0))
	first.sink.Added(docAt("new", 10))
	first.h.ready <- nil

	waitFor(t, func() bool { return fx.feed.Snapshot().State == Subscribed })
	require.Equal(t, []string{"new", "old"}, ids(fx.feed.Snapshot().Items))
	require.Equal(t, 1, fx.sub.count())

	fx.feed.OnPageChanged(3)
	third := fx.sub.next(t)

	require.Equal(t, []any{BuildOptions(5, 3, "")}, third.req.Args)
	require.EqualValues(t, 1, first.h.stops.Load())
	waitFor(t, func() bool { return fx.page().CurrentPage == 3 })
}

func TestFeed_ArgsAndScope(t *testing.T) {
	fx := newFeedFixture(t, FeedConfig{
		Publication: "post-comments",
		Scope:       "p1",
		Args: func(opts models.QueryOptions) []any {
			return []any{"p1", opts, opts.SearchText}
		},
	})
	require.NoError(t, fx.feed.Start(context.Background()))

	r := fx.sub.next(t)
	require.Equal(t, []any{"p1", BuildOptions(5, 1, ""), ""}, r.req.Args)

	fx.feed.SetSearchText("hello")
	r2 := fx.sub.next(t)
	require.Equal(t, []any{"p1", BuildOptions(5, 1, "hello"), "hello"}, r2.req.Args)
}

func TestFeed_BurstCoalesced(t *testing.T) {
	fx := newFeedFixture(t, FeedConfig{Publication: "blogs"})
	require.NoError(t, fx.feed.Start(context.Background()))
	fx.sub.next(t)

	gate := make(chan struct{})
	fx.sub.mu.Lock()
	fx.sub.gate = gate
	fx.sub.mu.Unlock()

	// цикл застревает в Subscribe для страницы 2, пока копится пачка.
	fx.feed.OnPageChanged(2)
	waitFor(t, func() bool {
		fx.sub.mu.Lock()
		defer fx.sub.mu.Unlock()
		return fx.sub.gate == nil
	})

	fx.feed.OnPageChanged(3)
	fx.feed.SetPageSize(10)
	fx.feed.OnPageChanged(4)
	close(gate)

	r2 := fx.sub.next(t)
	require.Equal(t, []any{BuildOptions(5, 2, "")}, r2.req.Args)

	r3 := fx.sub.next(t)
	require.Equal(t, []any{BuildOptions(10, 4, "")}, r3.req.Args)

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, 3, fx.sub.count(), "burst gives exactly one registration")
}

func TestFeed_CounterDrivesTotalItems(t *testing.T) {
	fx := newFeedFixture(t, FeedConfig{Publication: "blogs", Counter: "numberOfBlogs"})
	require.NoError(t, fx.feed.Start(context.Background()))
	fx.sub.next(t)

	fx.counters.Set("numberOfBlogs", 23)
	waitFor(t, func() bool { return fx.page().TotalItems == 23 })

	fx.counters.Set("numberOfBlogs", 0)
	waitFor(t, func() bool { return fx.page().TotalItems == 0 })
}

func TestFeed_StaleRegistrationCounterIgnored(t *testing.T) {
	fx := newFeedFixture(t, FeedConfig{Publication: "blogs", Counter: "numberOfBlogs"})
	require.NoError(t, fx.feed.Start(context.Background()))

	first := fx.sub.next(t)
	first.sink.Counter("numberOfBlogs", 11)
	waitFor(t, func() bool { return fx.page().TotalItems == 11 })

	fx.feed.SetSearchText("go")
	second := fx.sub.next(t)

	second.sink.Counter("numberOfBlogs", 4)
	first.sink.Counter("numberOfBlogs", 99)

	waitFor(t, func() bool { return fx.page().TotalItems == 4 })
	require.EqualValues(t, 4, fx.counters.Get("numberOfBlogs"))
}

func TestFeed_IsAdminRecomputedOnCompletion(t *testing.T) {
	fx := newFeedFixture(t, FeedConfig{Publication: "blogs"})
	require.NoError(t, fx.feed.Start(context.Background()))

	r := fx.sub.next(t)
	r.h.ready <- nil
	waitFor(t, func() bool { return fx.feed.Snapshot().State == Subscribed })
	require.False(t, fx.feed.Snapshot().IsAdmin)

	fx.accounts.admin.Store(true)

	// живое изменение данных флаг не пересчитывает.
	r.sink.Added(docAt("x", 0))
	waitFor(t, func() bool { return len(fx.feed.Snapshot().Items) == 1 })
	require.False(t, fx.feed.Snapshot().IsAdmin)

	fx.feed.OnPageChanged(2)
	r2 := fx.sub.next(t)
	r2.h.ready <- nil
	waitFor(t, func() bool {
		v := fx.feed.Snapshot()
		return v.State == Subscribed && v.Options.Skip == 5
	})
	require.True(t, fx.feed.Snapshot().IsAdmin)
}

func TestFeed_LiveChangesWhileSubscribed(t *testing.T) {
	fx := newFeedFixture(t, FeedConfig{Publication: "blogs"})
	require.NoError(t, fx.feed.Start(context.Background()))

	r := fx.sub.next(t)
	r.sink.Added(docAt("a", 0))
	r.h.ready <- nil
	waitFor(t, func() bool { return fx.feed.Snapshot().State == Subscribed })

	r.sink.Added(docAt("b", 1))
	waitFor(t, func() bool { return len(fx.feed.Snapshot().Items) == 2 })
	require.Equal(t, []string{"b", "a"}, ids(fx.feed.Snapshot().Items))

	r.sink.Changed(docAt("a", 5))
	waitFor(t, func() bool { return ids(fx.feed.Snapshot().Items)[0] == "a" })

	r.sink.Removed("b")
	waitFor(t, func() bool { return len(fx.feed.Snapshot().Items) == 1 })
}

func TestFeed_SubscribeFailureSurfaced(t *testing.T) {
	fx := newFeedFixture(t, FeedConfig{Publication: "blogs"})
	fx.sub.err = errors.New("no such publication")

	require.NoError(t, fx.feed.Start(context.Background()))
	waitFor(t, func() bool { return fx.feed.Snapshot().Err != nil })

	v := fx.feed.Snapshot()
	require.ErrorIs(t, v.Err, fx.sub.err)
	require.Equal(t, Subscribing, v.State)
}

func TestFeed_SubscribeTimeout(t *testing.T) {
	fx := newFeedFixture(t, FeedConfig{Publication: "blogs", SubscribeTimeout: 20 * time.Millisecond})
	require.NoError(t, fx.feed.Start(context.Background()))
	fx.sub.next(t)

	waitFor(t, func() bool { return errors.Is(fx.feed.Snapshot().Err, ErrSubscribeTimeout) })
}

func TestFeed_CloseReleasesEverything(t *testing.T) {
	fx := newFeedFixture(t, FeedConfig{Publication: "blogs", Counter: "numberOfBlogs"})
	require.NoError(t, fx.feed.Start(context.Background()))
	r := fx.sub.next(t)

	fx.feed.Close()
	fx.feed.Close()

	require.EqualValues(t, 1, r.h.stops.Load())

	st, _ := fx.feed.State()
	require.Equal(t, Unsubscribed, st)

	for range fx.feed.Updates() {
	}

	require.ErrorIs(t, fx.feed.Start(context.Background()), ErrClosed)
	fx.feed.OnPageChanged(9)
	require.Equal(t, 1, fx.sub.count())
}

func TestFeed_CloseBeforeStart(t *testing.T) {
	fx := newFeedFixture(t, FeedConfig{Publication: "blogs"})
	fx.feed.Close()

	<-fx.feed.Done()
	require.ErrorIs(t, fx.feed.Start(context.Background()), ErrClosed)
	require.Zero(t, fx.sub.count())
}

func TestFeed_ParentContextCancelStops(t *testing.T) {
	fx := newFeedFixture(t, FeedConfig{Publication: "blogs"})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, fx.feed.Start(ctx))
	r := fx.sub.next(t)

	cancel()
	select {
	case <-fx.feed.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("feed must stop with its context")
	}

	require.EqualValues(t, 1, r.h.stops.Load())
}
