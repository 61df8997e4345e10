// Package transfer implements clipboard cut, copy and paste on top of the
// public vfs.FileSystem operations.
package transfer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/vfs"
)

// Action says what Paste does with the clipboard items.
type Action string

const (
	ActionCopy Action = "copy"
	ActionCut  Action = "cut"
)

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionCopy, ActionCut:
		return a, nil
	}
	return "", fmt.Errorf("unknown clipboard action %q", s)
}

// Item is one entry captured by CopyToClipboard.
type Item struct {
	Path string
	Name string
	Kind vfs.Kind
}

// Clipboard is the captured selection.
type Clipboard struct {
	Action Action
	Items  []Item
	At     time.Time
}

// FileSystem is the subset of vfs.FileSystem the engine relies on.
type FileSystem interface {
	Get(ctx context.Context, p string) (*vfs.Entry, error)
	Move(ctx context.Context, src, dst string) (*vfs.Entry, error)
	Copy(ctx context.Context, src, dst string) (*vfs.Entry, error)
}

// Engine holds one clipboard. Each Paste step is an independent file system
// operation; a failure stops the paste and leaves completed steps in place.
//
// Thread Safety: safe for concurrent use.
type Engine struct {
	fs    FileSystem
	clock vfs.Clock

	mu   sync.Mutex
	clip *Clipboard
}

// NewEngine returns an engine with an empty clipboard.
func NewEngine(fs FileSystem, clock vfs.Clock) *Engine {
	if clock == nil {
		clock = vfs.RealClock{}
	}
	return &Engine{fs: fs, clock: clock}
}

// CopyToClipboard captures paths for a later Paste, replacing the current
// clipboard. Every path must exist.
func (e *Engine) CopyToClipboard(ctx context.Context, paths []string, action Action) error {
	if action != ActionCopy && action != ActionCut {
		return &vfs.Error{Code: vfs.ErrInvalidOperation, Message: fmt.Sprintf("unknown clipboard action %q", action)}
	}
	if len(paths) == 0 {
		return &vfs.Error{Code: vfs.ErrInvalidOperation, Message: "nothing to copy"}
	}

	items := make([]Item, 0, len(paths))
	for _, p := range paths {
		entry, err := e.fs.Get(ctx, p)
		if err != nil {
			return err
		}
		if entry == nil {
			return &vfs.Error{Code: vfs.ErrNotFound, Message: "entry not found", Path: p}
		}
		if entry.Path == vfs.RootPath {
			return &vfs.Error{Code: vfs.ErrInvalidOperation, Message: "cannot copy the root folder", Path: p}
		}
		items = append(items, Item{Path: entry.Path, Name: entry.Name, Kind: entry.Kind})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.clip = &Clipboard{Action: action, Items: items, At: e.clock.Now()}
	return nil
}

// Clipboard returns a copy of the current clipboard, or nil when empty.
func (e *Engine) Clipboard() *Clipboard {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clip == nil {
		return nil
	}
	c := *e.clip
	c.Items = slices.Clone(e.clip.Items)
	return &c
}

// Clear empties the clipboard.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clip = nil
}

// Paste applies the clipboard to folder destDir and returns the created or
// moved entries.
//
// A cut moves every item under its original name and empties the clipboard
// once all moves succeed; a name collision fails with ErrAlreadyExists. A
// copy picks a free name with GetUniqueName and keeps the clipboard, so it
// can be pasted again.
func (e *Engine) Paste(ctx context.Context, destDir string) ([]*vfs.Entry, error) {
	e.mu.Lock()
	clip := e.clip
	e.mu.Unlock()
	if clip == nil {
		return nil, &vfs.Error{Code: vfs.ErrInvalidOperation, Message: "clipboard is empty"}
	}

	dir, err := e.fs.Get(ctx, destDir)
	if err != nil {
		return nil, err
	}
	if dir == nil {
		return nil, &vfs.Error{Code: vfs.ErrNotFound, Message: "folder not found", Path: destDir}
	}
	if !dir.IsFolder() {
		return nil, &vfs.Error{Code: vfs.ErrInvalidOperation, Message: "not a folder", Path: destDir}
	}

	out := make([]*vfs.Entry, 0, len(clip.Items))
	for _, item := range clip.Items {
		pasted, err := e.pasteItem(ctx, clip.Action, item, dir.Path)
		if err != nil {
			logger.Debug("Paste of %s into %s stopped: %v", item.Path, dir.Path, err)
			return out, err
		}
		out = append(out, pasted)
	}

	if clip.Action == ActionCut {
		e.mu.Lock()
		if e.clip == clip {
			e.clip = nil
		}
		e.mu.Unlock()
	}
	return out, nil
}

func (e *Engine) pasteItem(ctx context.Context, action Action, item Item, dir string) (*vfs.Entry, error) {
	if action == ActionCut {
		dst := vfs.JoinPath(dir, item.Name)
		if dst != item.Path {
			return e.fs.Move(ctx, item.Path, dst)
		}
		// Cut and pasted into its own folder: nothing moves.
		entry, err := e.fs.Get(ctx, dst)
		if err == nil && entry == nil {
			err = &vfs.Error{Code: vfs.ErrNotFound, Message: "entry not found", Path: dst}
		}
		return entry, err
	}

	name, err := e.GetUniqueName(ctx, dir, item.Name)
	if err != nil {
		return nil, err
	}
	return e.fs.Copy(ctx, item.Path, vfs.JoinPath(dir, name))
}

// GetUniqueName returns name if it is free in dir, otherwise the first free
// "base (n).ext" for n = 1, 2, ...
func (e *Engine) GetUniqueName(ctx context.Context, dir, name string) (string, error) {
	base, ext := splitName(name)
	candidate := name
	for n := 1; ; n++ {
		existing, err := e.fs.Get(ctx, vfs.JoinPath(dir, candidate))
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
}

// splitName separates a name into base and dotted extension, keeping the
// extension's original case. Dotfiles have no extension.
func splitName(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	return name[:i], name[i:]
}
