package csvjob

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Event is one progress update pushed to a job's listeners.
type Event struct {
	Percent int  `json:"percent"`
	Done    bool `json:"done"`
}

// Registry tracks live progress listeners per job. Listeners register and
// unregister explicitly, so disconnected clients do not accumulate. Delivery
// is best-effort: a listener that cannot keep up loses updates, never the job.
type Registry struct {
	mu        sync.Mutex
	listeners map[string]map[chan Event]struct{}
}

func NewRegistry() *Registry {
	return &Registry{listeners: make(map[string]map[chan Event]struct{})}
}

// Register adds a listener for a job and returns its event channel.
// Registration is independent of job submission order.
func (r *Registry) Register(jobID string) chan Event {
	ch := make(chan Event, 8)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners[jobID] == nil {
		r.listeners[jobID] = make(map[chan Event]struct{})
	}
	r.listeners[jobID][ch] = struct{}{}
	return ch
}

// Unregister removes a listener and closes its channel. Must be called when
// the listening connection goes away.
func (r *Registry) Unregister(jobID string, ch chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.listeners[jobID]; ok {
		if _, ok := set[ch]; ok {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(r.listeners, jobID)
		}
	}
}

// Notify pushes an event to every live listener of the job. A full listener
// buffer drops the event for that one listener only.
func (r *Registry) Notify(jobID string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for ch := range r.listeners[jobID] {
		select {
		case ch <- ev:
		default:
			log.Debug().Str("job_id", jobID).Int("percent", ev.Percent).Msg("Progress listener lagging, update dropped")
		}
	}
}
