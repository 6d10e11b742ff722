package pipeline

import (
	"context"

	"github.com/dmitrijs2005/fileguard/internal/models"
	"github.com/dmitrijs2005/fileguard/internal/upload"
	"github.com/google/uuid"
)

type State string

const (
	StateReceived    State = "Received"
	StateValidated   State = "Validated"
	StateScanning    State = "Scanning"
	StateClean       State = "Clean"
	StateSuspicious  State = "Suspicious"
	StateQuarantined State = "Quarantined"
	StateEncrypting  State = "Encrypting"
	StatePersisting  State = "Persisting"
	StateNotifying   State = "Notifying"
	StateDone        State = "Done"
)

var transitions = map[State][]State{
	StateReceived:    {StateValidated, StateDone},
	StateValidated:   {StateScanning},
	StateScanning:    {StateClean, StateSuspicious, StateDone},
	StateClean:       {StateEncrypting},
	StateSuspicious:  {StateQuarantined, StateDone},
	StateQuarantined: {StateNotifying},
	StateEncrypting:  {StatePersisting, StateDone},
	StatePersisting:  {StateNotifying, StateDone},
	StateNotifying:   {StateDone},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// run is the per-file state of one Process call. Nothing in it is shared
// between runs.
type run struct {
	p      *Pipeline
	id     string
	path   string
	state  State
	staged *upload.Staged
}

func newRun(p *Pipeline, path string) *run {
	return &run{p: p, id: uuid.NewString(), path: path, state: StateReceived}
}

func (r *run) advance(ctx context.Context, to State) {
	if !CanTransition(r.state, to) {
		r.p.log.Error(ctx, "invalid state transition", "run", r.id, "from", r.state, "to", to)
	}
	r.p.log.Debug(ctx, "state transition", "run", r.id, "from", r.state, "to", to)
	r.state = to
}

func (r *run) audit(ctx context.Context, op, details, status string, sev models.Severity) {
	r.p.auditEvent(ctx, op, details, status, sev)
}

// restore hands the staged file back to its source path after a failure
// that is not a quarantine.
func (r *run) restore(ctx context.Context) {
	if r.staged == nil {
		return
	}
	if err := upload.Restore(r.staged); err != nil {
		r.p.log.Error(ctx, "failed to restore staged file", "run", r.id, "path", r.staged.Path, "error", err)
	}
}
