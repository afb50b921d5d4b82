package page

import (
	"encoding/json/v2"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	tabsSubdir     = "tabs"
	commandsSubdir = "commands"
	stateExt       = ".json"
)

// Bridge reads tab state documents and writes commands under the bridge
// directory shared with the browser.
type Bridge struct {
	root string
}

// NewBridge creates a bridge rooted at dir, creating the tab and command
// subdirectories if needed.
func NewBridge(dir string) (*Bridge, error) {
	for _, sub := range []string{tabsSubdir, commandsSubdir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o750); err != nil {
			return nil, fmt.Errorf("create bridge dir: %w", err)
		}
	}
	return &Bridge{root: dir}, nil
}

// TabsDir returns the directory holding per-tab state documents.
func (b *Bridge) TabsDir() string {
	return filepath.Join(b.root, tabsSubdir)
}

// statePath returns the state document path for a tab.
func (b *Bridge) statePath(tabID string) string {
	return filepath.Join(b.TabsDir(), tabID+stateExt)
}

// commandPath returns the command document path for a tab and kind.
// Kinds get separate files so a rate command is never clobbered by an
// overlay command issued in the same instant.
func (b *Bridge) commandPath(tabID, kind string) string {
	return filepath.Join(b.root, commandsSubdir, tabID+"."+kind+stateExt)
}

// TabIDFromPath extracts the tab ID from a state document path.
// Returns empty string for paths that are not state documents.
func TabIDFromPath(path string) string {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, stateExt) {
		return ""
	}
	return strings.TrimSuffix(base, stateExt)
}

// ReadState reads and decodes a tab's state document.
func (b *Bridge) ReadState(tabID string) (*State, error) {
	f, err := os.Open(b.statePath(tabID))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var state State
	if err := json.UnmarshalRead(f, &state); err != nil {
		return nil, fmt.Errorf("decode tab state %s: %w", tabID, err)
	}
	if state.TabID == "" {
		state.TabID = tabID
	}
	return &state, nil
}

// ListTabs returns the IDs of all tabs with a state document.
func (b *Bridge) ListTabs() ([]string, error) {
	entries, err := os.ReadDir(b.TabsDir())
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id := TabIDFromPath(entry.Name()); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// WriteCommand atomically replaces a tab's command document. The bridge
// picks up the newest command and deletes the file after applying it.
func (b *Bridge) WriteCommand(tabID string, cmd Command) error {
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now().UTC()
	}

	path := b.commandPath(tabID, cmd.Kind)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640) //#nosec G304 -- path derived from bridge root
	if err != nil {
		return fmt.Errorf("write command: %w", err)
	}

	if err := json.MarshalWrite(f, cmd); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode command: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	// Rename so the bridge never observes a half-written command.
	return os.Rename(tmp, path)
}
