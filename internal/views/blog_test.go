package views

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/go-blog-forum/internal/i18n"
	"github.com/pribylovaa/go-blog-forum/internal/live"
	"github.com/pribylovaa/go-blog-forum/internal/livequery"
	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/service"
	"github.com/pribylovaa/go-blog-forum/mocks"
)

type blogFixture struct {
	view     *BlogView
	sub      *fakeSubscriber[models.Blog]
	pag      *live.Pagination
	counters *live.CounterBoard
	caller   *mocks.MockCaller
}

func newBlogFixture(t *testing.T, policy ErrorPolicy) *blogFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	accounts := mocks.NewMockAccounts(ctrl)
	accounts.EXPECT().IsAdmin("u1").Return(true).AnyTimes()

	fx := &blogFixture{
		sub:      newFakeSubscriber[models.Blog](),
		pag:      live.NewPagination(),
		counters: live.NewCounterBoard(),
		caller:   mocks.NewMockCaller(ctrl),
	}

	fx.view = NewBlogView(BlogDeps{
		Subscriber: fx.sub,
		Counters:   fx.counters,
		Paginator:  fx.pag,
		Accounts:   accounts,
		Identity:   fakeIdentity("u1"),
		Caller:     fx.caller,
		Translator: i18n.New("en"),
		Policy:     policy,
		Logger:     discard,
	})
	t.Cleanup(fx.view.Close)

	return fx
}

func (fx *blogFixture) page() live.PaginationState {
	st, _ := fx.pag.State(fx.view.PaginationID())
	return st
}

func TestBlogView_StartPagesAndCounter(t *testing.T) {
	fx := newBlogFixture(t, Surface)
	require.NoError(t, fx.view.Start(context.Background()))

	first := fx.sub.next(t)
	require.Equal(t, livequery.PubBlogs, first.req.Name)
	require.Equal(t, []any{live.BuildOptions(5, 1, "")}, first.req.Args)

	st := fx.page()
	require.Equal(t, 5, st.ItemsPerPage)
	require.Equal(t, 1, st.CurrentPage)
	require.EqualValues(t, 0, st.TotalItems)

	older := models.Blog{ID: uuid.New(), Title: "older", CreatedAt: time.Unix(1710000000, 0)}
	newer := models.Blog{ID: uuid.New(), Title: "newer", CreatedAt: time.Unix(1710000100, 0)}
	first.sink.Added(older)
	first.sink.Added(newer)
	first.h.ready <- nil

	waitFor(t, func() bool { return len(fx.view.Blogs()) == 2 })
	require.Equal(t, "newer", fx.view.Blogs()[0].Title)
	require.True(t, fx.view.IsAdmin())

	fx.counters.Set(livequery.CounterBlogs, 12)
	waitFor(t, func() bool { return fx.page().TotalItems == 12 })

	fx.view.OnPageChanged(3)
	third := fx.sub.next(t)
	require.Equal(t, []any{live.BuildOptions(5, 3, "")}, third.req.Args)
	require.EqualValues(t, 10, live.BuildOptions(5, 3, "").Skip)
	require.EqualValues(t, 1, first.h.stops.Load())
	waitFor(t, func() bool { return fx.page().CurrentPage == 3 })
}

func TestBlogView_DeleteNilMakesNoCall(t *testing.T) {
	fx := newBlogFixture(t, Surface)

	require.NoError(t, fx.view.DeleteBlog(context.Background(), nil))
}

func TestBlogView_DeleteBlog(t *testing.T) {
	blog := &models.Blog{ID: uuid.New()}
	denied := status.Error(codes.PermissionDenied, "not owner")

	tests := []struct {
		name    string
		policy  ErrorPolicy
		callErr error
		wantErr bool
		wantMsg string
	}{
		{name: "ok", policy: Surface},
		{name: "surface", policy: Surface, callErr: denied, wantErr: true, wantMsg: "Access denied"},
		{name: "silent", policy: Silent, callErr: denied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newBlogFixture(t, tt.policy)

			fx.caller.EXPECT().
				Call(gomock.Any(), service.MethodDeleteBlog, []any{blog.ID.String(), "u1"}, nil).
				Return(tt.callErr)

			err := fx.view.DeleteBlog(context.Background(), blog)
			if tt.wantErr {
				require.ErrorIs(t, err, denied)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.wantMsg, fx.view.Status().Error)
		})
	}
}

func TestBlogView_CloseIdempotent(t *testing.T) {
	fx := newBlogFixture(t, Surface)
	require.NoError(t, fx.view.Start(context.Background()))

	reg := fx.sub.next(t)

	fx.view.Close()
	fx.view.Close()

	require.EqualValues(t, 1, reg.h.stops.Load())

	_, open := <-fx.view.Updates()
	for open {
		_, open = <-fx.view.Updates()
	}
}

func TestBlogView_CountersAndIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	counters := mocks.NewMockCounters(ctrl)
	identity := mocks.NewMockIdentity(ctrl)
	accounts := mocks.NewMockAccounts(ctrl)
	caller := mocks.NewMockCaller(ctrl)
	sub := newFakeSubscriber[models.Blog]()
	pag := live.NewPagination()

	counters.EXPECT().
		Watch(gomock.Any(), livequery.CounterBlogs).
		DoAndReturn(func(ctx context.Context, _ string) <-chan int64 {
			ch := make(chan int64, 1)
			ch <- 3
			go func() {
				<-ctx.Done()
				close(ch)
			}()
			return ch
		})
	counters.EXPECT().Set(livequery.CounterBlogs, int64(3))
	identity.EXPECT().UserID().Return("u2").AnyTimes()
	accounts.EXPECT().IsAdmin("u2").Return(false).AnyTimes()

	view := NewBlogView(BlogDeps{
		Subscriber: sub,
		Counters:   counters,
		Paginator:  pag,
		Accounts:   accounts,
		Identity:   identity,
		Caller:     caller,
		Translator: i18n.New("en"),
		Logger:     discard,
	})
	defer view.Close()

	require.NoError(t, view.Start(context.Background()))

	reg := sub.next(t)
	reg.sink.Counter(livequery.CounterBlogs, 3)
	reg.h.ready <- nil

	waitFor(t, func() bool {
		st, _ := pag.State(view.PaginationID())
		return st.TotalItems == 3
	})

	blog := &models.Blog{ID: uuid.New()}
	caller.EXPECT().Call(gomock.Any(), service.MethodDeleteBlog, []any{blog.ID.String(), "u2"}, nil).Return(nil)
	require.NoError(t, view.DeleteBlog(context.Background(), blog))
}
