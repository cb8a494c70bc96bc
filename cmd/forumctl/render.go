package main

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-blog-forum/internal/live"
	"github.com/pribylovaa/go-blog-forum/internal/models"
)

// render печатает снимки, относящиеся к want. Без watch — только первый готовый снимок.
// Снимки других параметров (пачка сигналов до перерегистрации) пропускаются.
func render[T live.Document](ctx context.Context, updates <-chan live.View[T], want models.QueryOptions, watch bool, print func(live.View[T]) error) error {
	for {
		select {
		case <-ctx.Done():
			cause := context.Cause(ctx)
			if watch && errors.Is(cause, context.Canceled) {
				return nil
			}
			return cause
		case v, ok := <-updates:
			if !ok {
				return nil
			}

			if v.Options.Limit != want.Limit || v.Options.Skip != want.Skip || v.Options.SearchText != want.SearchText {
				continue
			}

			if v.Err != nil {
				return v.Err
			}

			if v.State != live.Subscribed {
				continue
			}

			if err := print(v); err != nil {
				return err
			}

			if !watch {
				return nil
			}
		}
	}
}
