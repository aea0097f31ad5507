package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce absorbs the burst of events editors produce on a single save.
const debounce = 100 * time.Millisecond

// WatchFile reports changes to path until ctx is done.
// The parent directory is watched so atomic replace-on-save is seen too.
func WatchFile(ctx context.Context, path string) (<-chan string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		defer watcher.Close()

		var timer <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				timer = time.After(debounce)
			case <-timer:
				timer = nil
				select {
				case out <- abs:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}

// RunWatch previews the flow file and restarts the conversation whenever it changes.
func RunWatch(ctx context.Context, opts RunOptions, in io.Reader, out io.Writer) error {
	if opts.FlowPath == "" {
		return errors.New("--watch needs a flow file")
	}
	if opts.JSON {
		return errors.New("--watch and --json cannot be used together")
	}

	logger := createLogger(opts.Debug)
	changes, err := WatchFile(ctx, opts.FlowPath)
	if err != nil {
		return err
	}

	handler := newHandler(opts, in, out)
	printSystemMessage(out, "Watching %s", opts.FlowPath)

	for {
		iterCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)

		g, err := LoadFlowFile(opts.FlowPath)
		if err != nil {
			printSystemMessage(out, "Cannot load flow: %v", err)
			close(done)
		} else {
			go func() { done <- runPreview(iterCtx, g, opts, handler) }()
		}

		select {
		case <-ctx.Done():
			cancel()
			<-done
			return nil
		case _, ok := <-changes:
			cancel()
			<-done
			if !ok {
				return nil
			}
			logger.Info("change detected, restarting preview", "path", opts.FlowPath)
			printSystemMessage(out, "Change detected, restarting.")
		case err := <-done:
			cancel()
			if err := handleExecutionError(err); err != nil {
				printSystemMessage(out, "Preview failed: %v", err)
			}
			printSystemMessage(out, "Waiting for changes...")
			select {
			case <-ctx.Done():
				return nil
			case _, ok := <-changes:
				if !ok {
					return nil
				}
			}
		}
	}
}
