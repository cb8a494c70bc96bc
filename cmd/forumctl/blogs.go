package main

import (
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

func (a *app) blogView(pag *live.Pagination) *views.BlogView {
	return views.NewBlogView(views.BlogDeps{
		Subscriber:       client.NewSubscriber[models.Blog](a.client),
		Counters:         a.client,
		Paginator:        pag,
		Accounts:         a.client,
		Identity:         a.client,
		Caller:           a.client,
		Translator:       a.tr,
		Logger:           a.log,
		SubscribeTimeout: a.timeout,
	})
}

func (a *app) blogsCmd() *cobra.Command {
	var page, pageSize int
	var watch bool

	cmd := &cobra.Command{
		Use:   "blogs",
		Short: "List blog entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if page < 1 || pageSize < 1 {
				return fmt.Errorf("--page and --page-size must be positive")
			}

			ctx := cmd.Context()
			pag := live.NewPagination()

			v := a.blogView(pag)
			defer v.Close()

			if err := v.Start(ctx); err != nil {
				return err
			}
			v.SetPageSize(pageSize)
			v.OnPageChanged(page)

			want := live.BuildOptions(pageSize, page, "")

			return render(ctx, v.Updates(), want, watch, func(view live.View[models.Blog]) error {
				st, _ := pag.State(v.PaginationID())
				return printBlogs(a.out(cmd), view, st)
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", live.DefaultItemsPerPage, "entries per page")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep printing on changes")

	return cmd
}

func (a *app) deleteBlogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-blog <id>",
		Short: "Delete a blog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid blog id %q: %w", args[0], err)
			}

			v := a.blogView(live.NewPagination())
			defer v.Close()

			if err := v.DeleteBlog(cmd.Context(), &models.Blog{ID: id}); err != nil {
				return failure(v.Status().Error, err)
			}

			_, err = fmt.Fprintln(a.out(cmd), "deleted", id)
			return err
		},
	}
}

func printBlogs(w io.Writer, view live.View[models.Blog], st live.PaginationState) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "page %d of %d (%d total)\n", view.Options.Page(), st.PageCount(), st.TotalItems)
	fmt.Fprintln(tw, "ID\tCREATED\tTITLE")
	for _, b := range view.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.ID, b.CreatedAt.Format("2006-01-02 15:04"), b.Title)
	}
	if view.IsAdmin {
		fmt.Fprintln(tw, "(admin)")
	}

	return tw.Flush()
}
