package previewclient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/patattzel/memos/linkpreview"
)

// State is the display state of one note's preview.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Meta is the metadata shape shared with the server.
type Meta = linkpreview.Meta

// Snapshot is what the display layer renders: the fetch state plus the
// orthogonal hidden flag. Meta is set in StateSuccess, Err in StateFailed.
type Snapshot struct {
	State  State
	Hidden bool
	URL    string
	Meta   *Meta
	Err    error
}

// PreviewGetter retrieves metadata for a URL. *Client implements it.
type PreviewGetter interface {
	GetPreview(ctx context.Context, rawURL string) (*Meta, error)
}

// HiddenStore persists the user's per-note hide preference. Persistence
// failures only cost durability, never correctness, so the Controller logs
// and carries on.
type HiddenStore interface {
	SetLinkHidden(ctx context.Context, noteID string, hidden bool) error
}

// Controller manages the preview lifecycle for one displayed note.
//
// At most one retrieval is in flight at a time. SetURL supersedes: the prior
// request's context is cancelled and its generation is retired, so a stale
// completion can never overwrite a newer state regardless of arrival order.
// While hidden, no request is issued at all: that is the user's explicit
// "do not contact this third party for me", a precondition rather than an
// optimization.
type Controller struct {
	getter PreviewGetter
	prefs  HiddenStore // optional
	noteID string
	log    *slog.Logger
	notify func(Snapshot)

	mu     sync.Mutex
	gen    int // generation of the newest request; stale completions compare against it
	cancel context.CancelFunc
	snap   Snapshot
}

// Option configures a Controller.
type Option func(*Controller)

// WithHiddenStore wires preference persistence for the hidden flag.
func WithHiddenStore(s HiddenStore) Option {
	return func(c *Controller) { c.prefs = s }
}

// WithHidden sets the initial hidden flag (loaded by the caller from the
// preference store before the controller is mounted).
func WithHidden(hidden bool) Option {
	return func(c *Controller) { c.snap.Hidden = hidden }
}

// OnChange registers the render callback. It runs after every state change,
// without the controller lock held, in mutation order.
func OnChange(fn func(Snapshot)) Option {
	return func(c *Controller) { c.notify = fn }
}

// NewController builds a Controller for one note.
func NewController(getter PreviewGetter, noteID string, opts ...Option) *Controller {
	c := &Controller{
		getter: getter,
		noteID: noteID,
		log:    slog.With("component", "previewclient", "note", noteID),
		snap:   Snapshot{State: StateIdle},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Snapshot returns the current display state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// SetText reacts to the note's text changing: the first URL-like token is
// extracted and normalized, then handed to SetURL. Text with no candidate
// returns the controller to idle, superseding any in-flight request.
func (c *Controller) SetText(text string) {
	raw, ok := linkpreview.FirstURL(text)
	if !ok {
		c.SetURL("")
		return
	}
	c.SetURL(linkpreview.NormalizeURL(raw))
}

// SetURL reacts to the note's URL changing. An empty URL returns to idle.
// Any in-flight request is cancelled first; the new request, if one is
// issued, belongs to a fresh generation.
func (c *Controller) SetURL(rawURL string) {
	c.mu.Lock()
	c.supersedeLocked()
	switch {
	case rawURL == "":
		c.snap = Snapshot{State: StateIdle, Hidden: c.snap.Hidden}
	case c.snap.Hidden:
		// Remember the URL but touch nothing remote.
		c.snap = Snapshot{State: StateIdle, Hidden: true, URL: rawURL}
	default:
		c.startLocked(rawURL)
	}
	snap := c.snap
	c.mu.Unlock()
	c.emit(snap)
}

// SetHidden flips the user's hide preference. Hiding cancels in-flight work;
// unhiding re-issues the fetch for the current URL (this is also the manual
// retry path: failed previews are retried by hide/unhide).
func (c *Controller) SetHidden(hidden bool) {
	c.mu.Lock()
	if c.snap.Hidden == hidden {
		c.mu.Unlock()
		return
	}
	c.supersedeLocked()
	switch {
	case hidden:
		c.snap = Snapshot{State: StateIdle, Hidden: true, URL: c.snap.URL}
	case c.snap.URL != "":
		c.snap.Hidden = false
		c.startLocked(c.snap.URL)
	default:
		c.snap = Snapshot{State: StateIdle, Hidden: false}
	}
	snap := c.snap
	c.mu.Unlock()
	c.emit(snap)

	if c.prefs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.prefs.SetLinkHidden(ctx, c.noteID, hidden); err != nil {
			c.log.Warn("persist hide preference failed", "error", err)
		}
	}
}

// Close dismantles the controller, cancelling any in-flight request. A
// completion arriving after Close is discarded like any superseded result.
func (c *Controller) Close() {
	c.mu.Lock()
	c.supersedeLocked()
	c.snap = Snapshot{State: StateIdle, Hidden: c.snap.Hidden, URL: c.snap.URL}
	c.mu.Unlock()
}

// supersedeLocked retires the current generation and cancels its request.
// A completion carrying a retired generation is discarded on arrival.
func (c *Controller) supersedeLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// startLocked issues exactly one retrieval for rawURL under a fresh
// generation and transitions to loading.
func (c *Controller) startLocked(rawURL string) {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	gen := c.gen
	c.snap = Snapshot{State: StateLoading, Hidden: false, URL: rawURL}

	go func() {
		meta, err := c.getter.GetPreview(ctx, rawURL)
		cancel()
		c.commit(gen, rawURL, meta, err)
	}()
}

// commit applies a completed retrieval, unless it has been superseded.
func (c *Controller) commit(gen int, rawURL string, meta *Meta, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug("discarded stale preview result", "url", rawURL)
		return
	}
	if err != nil {
		c.snap = Snapshot{State: StateFailed, Hidden: c.snap.Hidden, URL: rawURL, Err: err}
	} else {
		c.snap = Snapshot{State: StateSuccess, Hidden: c.snap.Hidden, URL: rawURL, Meta: meta}
	}
	snap := c.snap
	c.mu.Unlock()
	c.emit(snap)
}

func (c *Controller) emit(s Snapshot) {
	if c.notify != nil {
		c.notify(s)
	}
}
