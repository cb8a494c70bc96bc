package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-blog-forum/internal/client"
	"github.com/pribylovaa/go-blog-forum/internal/live"
	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/views"
)

var errPostNotFound = errors.New("post not found")

// exitNavigator завершает команду при переходе на другой маршрут.
type exitNavigator struct {
	cancel context.CancelCauseFunc
}

func (n exitNavigator) Navigate(path string) {
	n.cancel(fmt.Errorf("%w (redirect to %s)", errPostNotFound, path))
}

func (a *app) postView(pag *live.Pagination, nav views.Navigator) *views.PostDetailView {
	return views.NewPostDetailView(views.PostDetailDeps{
		Posts:            client.NewSubscriber[models.Post](a.client),
		Images:           client.NewSubscriber[models.Image](a.client),
		Comments:         client.NewSubscriber[models.PostComment](a.client),
		Counters:         a.client,
		Paginator:        pag,
		Accounts:         a.client,
		Identity:         a.client,
		Caller:           a.client,
		Navigator:        nav,
		Translator:       a.tr,
		Logger:           a.log,
		SubscribeTimeout: a.timeout,
	})
}

func (a *app) postCmd() *cobra.Command {
	var page int
	var search string
	var watch bool

	cmd := &cobra.Command{
		Use:   "post <id>",
		Short: "Show a post with a page of its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 1 {
				return fmt.Errorf("--page must be positive")
			}

			ctx, cancel := context.WithCancelCause(cmd.Context())
			defer cancel(nil)

			pag := live.NewPagination()
			v := a.postView(pag, exitNavigator{cancel: cancel})
			defer v.Close()

			if err := v.Open(ctx, args[0]); err != nil {
				return err
			}
			v.SetSearchText(search)
			v.OnPageChanged(page)

			if err := awaitPost(ctx, v); err != nil {
				return err
			}

			post, ok := v.Post()
			if !ok {
				return errPostNotFound
			}
			fmt.Fprintf(a.out(cmd), "%s\n%s\n\n%s\n\n", post.Title, post.CreatedAt.Format("2006-01-02 15:04"), post.Content)

			want := live.BuildOptions(live.DefaultItemsPerPage, page, search)

			return render(ctx, v.Updates(), want, watch, func(view live.View[models.PostComment]) error {
				st, _ := pag.State(v.PaginationID())
				return printComments(a.out(cmd), v, view, st)
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "comments page number")
	cmd.Flags().StringVar(&search, "search", "", "filter comments by text")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep printing on changes")

	return cmd
}

// awaitPost ждёт готовности post-detail; переход навигатора отменяет ctx.
func awaitPost(ctx context.Context, v *views.PostDetailView) error {
	for {
		state, err := v.PostState()
		if err != nil {
			return err
		}

		if state == live.Subscribed {
			return context.Cause(ctx)
		}

		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-v.PostChanges():
		}
	}
}

func (a *app) commentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <postId> <text>",
		Short: "Add a comment to a post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancelCause(cmd.Context())
			defer cancel(nil)

			v := a.postView(live.NewPagination(), exitNavigator{cancel: cancel})
			defer v.Close()

			if err := v.Open(ctx, args[0]); err != nil {
				return err
			}

			v.SetComment(args[1])
			if err := v.InsertPostComment(ctx); err != nil {
				return failure(v.Status().Error, err)
			}

			_, err := fmt.Fprintln(a.out(cmd), "comment added")
			return err
		},
	}
}

func (a *app) deleteCommentCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "delete-comment <id>",
		Short: "Delete a post comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner == "" {
				owner = a.client.UserID()
			}

			ownerID, err := uuid.Parse(owner)
			if err != nil {
				return fmt.Errorf("invalid --owner %q: %w", owner, err)
			}

			v := a.postView(live.NewPagination(), nil)
			defer v.Close()

			if err := v.DeletePostComment(cmd.Context(), &models.PostComment{ID: args[0], Owner: ownerID}); err != nil {
				return failure(v.Status().Error, err)
			}

			_, err = fmt.Fprintln(a.out(cmd), "deleted", args[0])
			return err
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "comment owner id (default: current user)")

	return cmd
}

func (a *app) privateCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "private-comment <id>",
		Short: "Make a post comment private",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := a.postView(live.NewPagination(), nil)
			defer v.Close()

			if err := v.SetPostCommentPrivate(cmd.Context(), &models.PostComment{ID: args[0]}); err != nil {
				return failure(v.Status().Error, err)
			}

			_, err := fmt.Fprintln(a.out(cmd), "private", args[0])
			return err
		},
	}
}

func printComments(w io.Writer, v *views.PostDetailView, view live.View[models.PostComment], st live.PaginationState) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "comments: page %d of %d (%d total)\n", view.Options.Page(), st.PageCount(), st.TotalItems)
	fmt.Fprintln(tw, "ID\tCREATED\tFLAGS\tCONTENT")
	for _, c := range view.Items {
		flags := ""
		if c.Private {
			flags += "private "
		}
		if v.IsCurrentUser(c.Owner.String()) {
			flags += "mine"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.CreatedAt.Format("2006-01-02 15:04"), flags, c.Content)
	}

	return tw.Flush()
}
