// Package notify sends asynchronous HTTP notifications for phase events.
// The primary use case is ntfy.sh, but any HTTP webhook works. Callers
// that exit after a phase must Wait for pending posts.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/LISSConsulting/LISSTech.QuestKeeper/internal/event"
)

// DefaultTitle is the X-Title header used when no title is given.
const DefaultTitle = "QuestKeeper"

// Notifier posts plain-text HTTP notifications for selected phase events.
type Notifier struct {
	url       string
	title     string
	onError   bool
	onSummary bool
	onGrant   bool
	client    *http.Client
	pending   sync.WaitGroup
}

// New creates a Notifier. title is sent as the X-Title header; if empty,
// DefaultTitle is used instead.
func New(notifURL, title string, onError, onSummary, onGrant bool) *Notifier {
	if title == "" {
		title = DefaultTitle
	}
	return &Notifier{
		url:       notifURL,
		title:     title,
		onError:   onError,
		onSummary: onSummary,
		onGrant:   onGrant,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Hook starts asynchronous POSTs for entries that match the configured
// notification flags. A finished phase with failed rows counts as an
// error when summaries are off.
func (n *Notifier) Hook(entry event.Entry) {
	switch entry.Kind {
	case event.KindPhaseFailed:
		if n.onError {
			n.send(message(entry), "high")
		}
	case event.KindPhaseDone:
		switch {
		case n.onSummary:
			n.send(message(entry), priorityFor(entry))
		case n.onError && entry.Failed > 0:
			n.send(message(entry), "high")
		}
	case event.KindXPGranted:
		if n.onGrant {
			n.send(fmt.Sprintf("%s completed: +%d XP", entry.Quest, entry.XP), "")
		}
	}
}

// Wait blocks until every post started by Hook has finished or ctx is
// done, whichever comes first.
func (n *Notifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) send(message, priority string) {
	n.pending.Add(1)
	go func() {
		defer n.pending.Done()
		n.post(message, priority)
	}()
}

func message(entry event.Entry) string {
	if entry.Phase == "" {
		return entry.Message
	}
	return fmt.Sprintf("[%s] %s", entry.Phase, entry.Message)
}

func priorityFor(entry event.Entry) string {
	if entry.Failed > 0 {
		return "high"
	}
	return ""
}

// post sends a plain-text POST to the configured URL. Errors are silently
// discarded so notification failures never interrupt a phase.
func (n *Notifier) post(message, priority string) {
	req, err := http.NewRequest(http.MethodPost, n.url, strings.NewReader(message))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-Title", n.title)
	if priority != "" {
		req.Header.Set("X-Priority", priority)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
