package page

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType classifies a tab lifecycle event.
type EventType int

const (
	// TabOpened is emitted when a tab's state document first appears.
	TabOpened EventType = iota
	// TabUpdated is emitted when an existing state document changes.
	TabUpdated
	// TabClosed is emitted when a state document is removed.
	TabClosed
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case TabOpened:
		return "opened"
	case TabUpdated:
		return "updated"
	case TabClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is a tab lifecycle notification. State is nil for TabClosed.
type Event struct {
	Type  EventType
	TabID string
	State *State
}

// settleDelay coalesces bursts of writes to the same state document.
const settleDelay = 50 * time.Millisecond

// Watcher turns bridge directory changes into tab lifecycle events.
type Watcher struct {
	bridge  *Bridge
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	known   map[string]bool        // tab IDs with an emitted TabOpened
	pending map[string]*time.Timer // tab IDs waiting to settle

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher for the bridge's tabs directory.
func NewWatcher(bridge *Bridge, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := fsw.Add(bridge.TabsDir()); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", bridge.TabsDir(), err)
	}

	return &Watcher{
		bridge:  bridge,
		logger:  logger,
		watcher: fsw,
		known:   make(map[string]bool),
		pending: make(map[string]*time.Timer),
		events:  make(chan Event, 100),
		done:    make(chan struct{}),
	}, nil
}

// Events returns the channel of tab lifecycle events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start emits TabOpened for every tab already present, then blocks
// processing filesystem events until ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	ids, err := w.bridge.ListTabs()
	if err != nil {
		return fmt.Errorf("initial tab scan: %w", err)
	}
	for _, id := range ids {
		w.emitState(id)
	}

	w.wg.Add(1)
	go w.processEvents(ctx)

	select {
	case <-ctx.Done():
	case <-w.done:
	}
	return nil
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)

	err := w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	for id, timer := range w.pending {
		timer.Stop()
		delete(w.pending, id)
	}
	w.mu.Unlock()

	// The events channel stays open; consumers exit via their context.
	return err
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("bridge watcher error", "error", err)
			}
		}
	}
}

func (w *Watcher) handleFsnotifyEvent(event fsnotify.Event) {
	tabID := TabIDFromPath(event.Name)
	if tabID == "" {
		return
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.cancelPending(tabID)
		w.emitClosed(tabID)
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		w.startSettling(tabID)
	}
}

// startSettling delays the read until the bridge finishes its write burst.
func (w *Watcher) startSettling(tabID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.pending[tabID]; exists {
		timer.Stop()
	}

	w.pending[tabID] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, tabID)
		w.mu.Unlock()

		w.emitState(tabID)
	})
}

func (w *Watcher) cancelPending(tabID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.pending[tabID]; exists {
		timer.Stop()
		delete(w.pending, tabID)
	}
}

// emitState reads the tab's document and emits TabOpened or TabUpdated.
func (w *Watcher) emitState(tabID string) {
	state, err := w.bridge.ReadState(tabID)
	if err != nil {
		// The document may have been removed between the event and the read.
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		if w.logger != nil {
			w.logger.Warn("failed to read tab state", "tab_id", tabID, "error", err)
		}
		return
	}

	w.mu.Lock()
	eventType := TabUpdated
	if !w.known[tabID] {
		eventType = TabOpened
		w.known[tabID] = true
	}
	w.mu.Unlock()

	w.send(Event{Type: eventType, TabID: tabID, State: state})
}

func (w *Watcher) emitClosed(tabID string) {
	w.mu.Lock()
	if !w.known[tabID] {
		w.mu.Unlock()
		return
	}
	delete(w.known, tabID)
	w.mu.Unlock()

	w.send(Event{Type: TabClosed, TabID: tabID})
}

// send delivers an event without blocking the watch loop. A full channel
// drops the event; consumers reconcile from the state documents.
func (w *Watcher) send(event Event) {
	select {
	case <-w.done:
	case w.events <- event:
	default:
		if w.logger != nil {
			w.logger.Warn("dropping tab event, consumer too slow",
				"tab_id", event.TabID, "type", event.Type.String())
		}
	}
}
