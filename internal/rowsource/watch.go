package rowsource

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/bdalabs/parcelship/pkg/log"
)

// Handler is invoked for every row file that appears in a watched directory.
// A handler error is logged and does not stop the watch.
type Handler func(path string) error

// Watch observes a directory and invokes the handler for every CSV file
// created or renamed into it, until the context is cancelled. Events for
// other file types are ignored.
func Watch(ctx context.Context, dir string, handler Handler, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	logger.Info("watching directory", log.String("dir", dir))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if !isRowFile(event.Name) {
					continue
				}
				logger.Info("new source file", log.String("path", event.Name))
				if err := handler(event.Name); err != nil {
					logger.Error("handler failed", log.String("path", event.Name), log.Err(err))
				}
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Error("watch error", log.Err(err))
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func isRowFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
