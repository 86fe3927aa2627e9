package devices

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/picokeys/pico-bridge/internal/faults"
)

// Enumerator lists currently connected devices. An error means enumeration
// itself could not run; "no devices" is an empty list, not an error.
type Enumerator interface {
	Scan(ctx context.Context) ([]Record, error)
}

// Opener manages the exclusive hardware channel for a device.
type Opener interface {
	Open(ctx context.Context, rec Record) error
	Close(ctx context.Context, path string) error
}

// Registry owns the selected-device slot. It is the single writer: Select
// and Reconcile serialize on the registry mutex, so hot-plug events cannot
// race a user-initiated selection into a torn state.
type Registry struct {
	enum   Enumerator
	opener Opener

	mu         sync.Mutex
	selected   *Record
	onDeselect []func(Record)
}

func NewRegistry(enum Enumerator, opener Opener) *Registry {
	return &Registry{enum: enum, opener: opener}
}

// OnDeselect registers a hook run whenever a device stops being selected,
// either by replacement or by disappearing from an enumeration. Session
// managers use it to discard cached unlocked state.
func (r *Registry) OnDeselect(fn func(Record)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDeselect = append(r.onDeselect, fn)
}

// Scan enumerates connected devices and reconciles the current selection
// against the result. It fails only when enumeration itself cannot run.
func (r *Registry) Scan(ctx context.Context) ([]Record, error) {
	list, err := r.enum.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", faults.ErrBackendUnavailable, err)
	}
	r.Reconcile(list)
	return list, nil
}

// Select makes rec the active device. Selecting the already-selected path is
// a no-op; the channel-open side effect runs at most once per selection.
// On open failure the previous selection is left intact. A device whose
// earlier open attempt failed is retried, not remembered as failed.
func (r *Registry) Select(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.selected != nil && r.selected.Path == rec.Path {
		return nil
	}

	if err := r.opener.Open(ctx, rec); err != nil {
		return fmt.Errorf("open device %s: %w", rec.Path, err)
	}

	previous := r.selected
	r.selected = &rec
	if previous != nil {
		r.dropLocked(ctx, *previous)
	}

	slog.Info("Device selected", "type", rec.Type, "path", rec.Path, "serial", rec.Serial)
	return nil
}

// Selected returns the current selection, if any.
func (r *Registry) Selected() (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == nil {
		return Record{}, false
	}
	return *r.selected, true
}

// SelectedOfType returns the selection only if it matches the wanted family.
func (r *Registry) SelectedOfType(t DeviceType) (Record, bool) {
	rec, ok := r.Selected()
	if !ok || rec.Type != t {
		return Record{}, false
	}
	return rec, true
}

// Reconcile merges a fresh enumeration into the selection slot: if the
// selected path vanished the selection clears, otherwise it is kept as-is.
// The channel is never re-opened on a mere re-scan. Returns true when the
// selection was cleared.
func (r *Registry) Reconcile(latest []Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.selected == nil {
		return false
	}
	for _, rec := range latest {
		if rec.Path == r.selected.Path {
			return false
		}
	}

	gone := *r.selected
	r.selected = nil
	r.dropLocked(context.Background(), gone)
	slog.Info("Selected device disappeared, selection cleared", "path", gone.Path)
	return true
}

// Deselect clears the selection explicitly.
func (r *Registry) Deselect(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == nil {
		return
	}
	gone := *r.selected
	r.selected = nil
	r.dropLocked(ctx, gone)
}

// dropLocked closes the channel for a no-longer-selected device and fires
// the deselect hooks. Callers hold r.mu.
func (r *Registry) dropLocked(ctx context.Context, rec Record) {
	if err := r.opener.Close(ctx, rec.Path); err != nil {
		slog.Warn("Failed to close device channel", "path", rec.Path, "error", err)
	}
	for _, fn := range r.onDeselect {
		fn(rec)
	}
}
