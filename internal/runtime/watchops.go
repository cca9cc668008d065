package runtime

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/dop251/goja"
	"github.com/fsnotify/fsnotify"
)

// watcherState buffers filesystem events until the bundle polls them.
type watcherState struct {
	watcher *fsnotify.Watcher
	mu      sync.Mutex
	events  []map[string]any
}

type watcherRegistry struct {
	mu       sync.Mutex
	watchers map[int]*watcherState
	nextID   int
}

// installWatchOps provides host://watch: start/poll/stop over fsnotify.
func (r *Runtime) installWatchOps(vm *goja.Runtime, ops *goja.Object) {
	reg := &watcherRegistry{watchers: make(map[int]*watcherState), nextID: 1}

	_ = ops.Set("watchStart", func(path string, recursive bool) map[string]any {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fsErr("failed to create watcher: %v", err)
		}
		state := &watcherState{watcher: w}

		add := func(p string) error { return w.Add(p) }
		if err := add(path); err != nil {
			w.Close()
			return fsErr("failed to watch path: %v", err)
		}
		if recursive {
			filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
				if err == nil && d.IsDir() && p != path {
					add(p)
				}
				return nil
			})
		}

		go func() {
			for event := range w.Events {
				kind := "other"
				switch {
				case event.Op.Has(fsnotify.Create):
					kind = "create"
				case event.Op.Has(fsnotify.Write):
					kind = "modify"
				case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
					kind = "remove"
				case event.Op.Has(fsnotify.Chmod):
					kind = "access"
				}
				state.mu.Lock()
				state.events = append(state.events, map[string]any{
					"kind": kind,
					"path": event.Name,
				})
				state.mu.Unlock()
			}
		}()

		reg.mu.Lock()
		id := reg.nextID
		reg.nextID++
		reg.watchers[id] = state
		reg.mu.Unlock()

		return fsOK(id)
	})

	_ = ops.Set("watchPoll", func(id int) goja.Value {
		reg.mu.Lock()
		state, ok := reg.watchers[id]
		reg.mu.Unlock()
		if !ok {
			return goja.Null()
		}
		state.mu.Lock()
		defer state.mu.Unlock()
		if len(state.events) == 0 {
			return goja.Null()
		}
		drained := state.events
		state.events = nil
		return vm.ToValue(drained)
	})

	_ = ops.Set("watchStop", func(id int) {
		reg.mu.Lock()
		state, ok := reg.watchers[id]
		delete(reg.watchers, id)
		reg.mu.Unlock()
		if ok {
			state.watcher.Close()
		}
	})
}
