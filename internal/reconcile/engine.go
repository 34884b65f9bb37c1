// Package reconcile interprets inbound events and pull-request responses,
// translating each into a ticket store mutation. Push frames and REST
// results funnel through the same upsert and snapshot paths so both share
// one merge rule.
package reconcile

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tickwatch/tickwatch/internal/event"
	"github.com/tickwatch/tickwatch/internal/model"
	"github.com/tickwatch/tickwatch/internal/store"
)

// Engine owns all writes to the ticket store. It must be driven from a
// single goroutine; in the TUI that is the bubbletea update loop.
type Engine struct {
	store *store.Store
	log   zerolog.Logger
}

func New(s *store.Store, log zerolog.Logger) *Engine {
	return &Engine{store: s, log: log}
}

// Result describes what applying one event did: transient status text for
// the status line, an optional blocking alert, the ids whose records
// changed, and whether the whole collection was replaced.
type Result struct {
	Status   string
	Alert    string
	Touched  []string
	Snapshot bool
}

// Apply dispatches one decoded frame. Informational tags only produce
// status text; authoritative tags (ticket_update, the collections riding on
// initial_state and processing_complete) mutate the store.
func (e *Engine) Apply(ev event.Event) Result {
	switch ev.Type {
	case event.TypeInitialState:
		if e.ApplySnapshot(ev.Tickets) {
			return Result{
				Status:   fmt.Sprintf("Loaded %d tickets", e.store.Len()),
				Snapshot: true,
			}
		}
		// An empty snapshot is ignored rather than used to clear state:
		// a late-joining client keeps what it already pulled over REST.
		e.log.Debug().Msg("ignoring empty initial_state snapshot")
		return Result{}

	case event.TypeTicketUpdate:
		if ev.Ticket == nil {
			e.log.Warn().Msg("ticket_update without ticket payload")
			return Result{}
		}
		return e.upsert(*ev.Ticket, "")

	case event.TypeProcessingStart:
		return Result{Status: ev.Message}

	case event.TypeStageUpdate:
		// Transient progress text only. The ticket's own stage list is
		// the durable source of stage status and arrives via
		// ticket_update; dropping one of these is cosmetic.
		return Result{Status: fmt.Sprintf("%s: %s", ev.Stage, ev.Message)}

	case event.TypeProcessingComplete:
		if ev.Ticket != nil {
			return e.upsert(*ev.Ticket, ev.Message)
		}
		return Result{Status: ev.Message}

	case event.TypeError:
		return Result{
			Status: "Error: " + ev.Message,
			Alert:  ev.Message,
		}

	case event.TypePong:
		return Result{}

	default:
		e.log.Warn().Str("type", string(ev.Type)).Msg("unknown event tag dropped")
		return Result{}
	}
}

// ApplySnapshot replaces the collection wholesale when the snapshot is
// non-empty. The REST fetch-all path reuses it so startup pull and push
// initial_state behave identically. Records failing validation are dropped
// individually.
func (e *Engine) ApplySnapshot(tickets []model.Ticket) bool {
	if len(tickets) == 0 {
		return false
	}
	kept := make([]model.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if err := t.Validate(); err != nil {
			e.log.Warn().Str("ticket", t.ID).Err(err).Msg("dropping invalid snapshot record")
			continue
		}
		kept = append(kept, t)
	}
	if len(kept) == 0 {
		return false
	}
	e.store.ReplaceAll(kept)
	return true
}

// Upsert applies a single authoritative record through the shared merge
// rule. Exposed for the REST fetch-one path.
func (e *Engine) Upsert(t model.Ticket) Result {
	return e.upsert(t, "")
}

func (e *Engine) upsert(t model.Ticket, status string) Result {
	if err := t.Validate(); err != nil {
		e.log.Warn().Str("ticket", t.ID).Err(err).Msg("dropping invalid ticket record")
		return Result{}
	}
	if prev, ok := e.store.Get(t.ID); ok && stale(prev.UpdatedAt, t.UpdatedAt) {
		e.log.Debug().Str("ticket", t.ID).Msg("rejecting stale update")
		return Result{Status: status}
	}
	e.store.Upsert(t)
	return Result{Status: status, Touched: []string{t.ID}}
}

// stale reports whether the incoming timestamp is strictly older than the
// stored one. The observed backend never sends updatedAt, in which case
// either side fails to parse and the merge degrades to last-write-wins.
func stale(stored, incoming string) bool {
	st, err := time.Parse(time.RFC3339, stored)
	if err != nil {
		return false
	}
	in, err := time.Parse(time.RFC3339, incoming)
	if err != nil {
		return false
	}
	return in.Before(st)
}
