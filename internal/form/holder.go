// Package form holds the editable state of the upload form.
package form

import (
	"sync"

	"github.com/studiowebux/formpost/internal/types"
)

// NoFileLabel is shown in place of a file name when nothing is selected
const NoFileLabel = "no file chosen"

// Holder is the single source of truth for the form inputs and submission status.
// Every mutation notifies subscribers with the post-mutation snapshot.
// The zero value is an empty form with no JSON text.
type Holder struct {
	mu       sync.Mutex
	jsonText string
	file     *types.SelectedFile
	inFlight bool
	result   *types.Outcome

	subs   map[int]func(types.Snapshot)
	nextID int
}

// New creates a holder with the given default JSON text and no file
func New(defaultJSON string) *Holder {
	return &Holder{
		jsonText: defaultJSON,
		subs:     make(map[int]func(types.Snapshot)),
	}
}

// SetJSONText replaces the JSON text verbatim
func (h *Holder) SetJSONText(text string) {
	h.mutate(func() {
		h.jsonText = text
	})
}

// SetSelectedFile replaces the selected file; nil clears it
func (h *Holder) SetSelectedFile(file *types.SelectedFile) {
	h.mutate(func() {
		h.file = file
	})
}

// BeginSubmission marks a submission in flight and clears the previous result
func (h *Holder) BeginSubmission() {
	h.mutate(func() {
		h.inFlight = true
		h.result = nil
	})
}

// CompleteSubmission stores the outcome and clears the in-flight flag
func (h *Holder) CompleteSubmission(outcome types.Outcome) {
	h.mutate(func() {
		h.inFlight = false
		h.result = &outcome
	})
}

// InFlight returns whether a submission is pending
func (h *Holder) InFlight() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inFlight
}

// Snapshot returns a copy of the current state
func (h *Holder) Snapshot() types.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

// FileLabel returns the selected file name, or NoFileLabel
func (h *Holder) FileLabel() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return NoFileLabel
	}
	return h.file.Name
}

// Subscribe registers fn to be called after every mutation.
// The returned function removes the subscription.
func (h *Holder) Subscribe(fn func(types.Snapshot)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs == nil {
		h.subs = make(map[int]func(types.Snapshot))
	}
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *Holder) snapshotLocked() types.Snapshot {
	snap := types.Snapshot{
		JSONText: h.jsonText,
		File:     h.file,
		InFlight: h.inFlight,
	}
	if h.result != nil {
		res := *h.result
		snap.Result = &res
	}
	return snap
}

// mutate applies fn under the lock, then notifies subscribers outside it
// so a subscriber may read the holder again.
func (h *Holder) mutate(fn func()) {
	h.mu.Lock()
	fn()
	snap := h.snapshotLocked()
	subs := make([]func(types.Snapshot), 0, len(h.subs))
	for id := 0; id < h.nextID; id++ {
		if sub, ok := h.subs[id]; ok {
			subs = append(subs, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}
