package watch

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Driver re-runs a build whenever one of the watched files changes.
// Events are debounced: editors love to write a file three times.
type Driver struct {
	files    []string
	debounce time.Duration
	log      zerolog.Logger
}

func New(files []string, debounce time.Duration, log zerolog.Logger) *Driver {
	return &Driver{files: files, debounce: debounce, log: log}
}

// Run blocks until the context is cancelled, invoking rebuild after each
// debounced change burst. The rebuild callback returns the next set of
// files to observe (the reference set can change between bundles).
func (d *Driver) Run(ctx context.Context, rebuild func() []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	sync := func(files []string) {
		next := make(map[string]bool, len(files))
		for _, f := range files {
			next[f] = true
			if !watched[f] {
				if err := watcher.Add(f); err != nil {
					d.log.Warn().Str("file", f).Err(err).Msg("cannot watch file")
				}
			}
		}
		for f := range watched {
			if !next[f] {
				watcher.Remove(f)
			}
		}
		watched = next
	}
	sync(d.files)

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
				!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			d.log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("change detected")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(d.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
			// some editors replace the file; re-add to keep the watch alive
			if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
				if watched[event.Name] {
					watcher.Add(event.Name)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.log.Warn().Err(err).Msg("watcher error")

		case <-fire:
			if next := rebuild(); len(next) > 0 {
				sync(next)
			}
		}
	}
}
