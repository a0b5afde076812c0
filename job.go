package gophone

import (
	"context"
	"log/slog"

	"github.com/qmuntal/stateless"

	"github.com/ghettovoice/gophone/connectivity"
	"github.com/ghettovoice/gophone/internal/errorutil"
	"github.com/ghettovoice/gophone/stack"
)

// MaxAuthAttempts bounds digest re-authentication per job. A compliant
// server rejects bad credentials with 403 instead of re-challenging, so
// exceeding the bound is a protocol error, not a retry situation.
const MaxAuthAttempts = 3

// ErrAuthAttemptsExceeded is returned when a job is challenged more
// than [MaxAuthAttempts] times.
const ErrAuthAttemptsExceeded errorutil.Error = "authentication attempts exceeded"

// JobType enumerates the signaling job kinds.
type JobType int

const (
	// JobOpen bootstraps networking and registers.
	JobOpen JobType = iota
	// JobRegisterRefresh renews the registration before expiry.
	JobRegisterRefresh
	// JobClose unregisters and tears networking down.
	JobClose
	// JobReconfigure swaps credentials without rebinding.
	JobReconfigure
	// JobReconfigureReloadNetworking swaps credentials and rebinds the
	// listening point for a transport change.
	JobReconfigureReloadNetworking
	// JobReloadNetworking rebinds and re-registers after a handover.
	JobReloadNetworking
	// JobStartNetworking binds and registers after regaining connectivity.
	JobStartNetworking
	// JobCall is a call leg, driven by the call sub-engine.
	JobCall
	// JobMessage is a one-shot instant message transaction.
	JobMessage
)

var jobTypeNames = [...]string{
	"open", "register_refresh", "close", "reconfigure",
	"reconfigure_reload_networking", "reload_networking",
	"start_networking", "call", "message",
}

func (t JobType) String() string {
	if t < JobOpen || int(t) >= len(jobTypeNames) {
		return "unknown"
	}
	return jobTypeNames[t]
}

// Job is a tracked unit of signaling work spanning one or more SIP
// transactions, identified by a correlation id. Client-initiated jobs
// reuse the id as the SIP dialog identifier, so responses route back by
// Call-ID alone.
//
// A job is mutated only on the signaling goroutine.
type Job struct {
	id  string
	typ JobType

	// tx is the active client transaction, nil between transactions.
	tx stack.Transaction
	// fsm drives multi-transaction jobs. Nil for JobCall and JobMessage.
	fsm *stateless.StateMachine

	// cfg is the configuration the job operates with. For reconfigure
	// jobs it tracks the set of the current phase, starting with Old.
	cfg    Config
	reconf Reconfigure
	// status is the connectivity status attached to networking jobs.
	status connectivity.Status

	// authAttempts counts digest challenges answered so far.
	authAttempts int
	// done is set once the terminal callback fired, guarding against
	// double delivery on abort paths.
	done bool

	// call is the sub-context of a JobCall.
	call *Call

	// watchdog cancels the close deadline task.
	watchdog func()
}

// ID returns the job correlation id.
func (j *Job) ID() string { return j.id }

// Type returns the job type.
func (j *Job) Type() JobType { return j.typ }

// Transaction returns the active client transaction, nil between
// transactions.
func (j *Job) Transaction() stack.Transaction { return j.tx }

// LogValue implements [slog.LogValuer].
func (j *Job) LogValue() slog.Value {
	if j == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("id", j.id),
		slog.String("type", j.typ.String()),
	)
}

// fire advances the job machine. Unhandled triggers surface as errors
// to the caller, they never panic the loop.
func (j *Job) fire(ctx context.Context, trg jobTrigger, args ...any) error {
	if j.fsm == nil {
		return nil
	}
	return j.fsm.FireCtx(ctx, trg, args...) //nolint:wrapcheck
}

// bumpAuth increments the challenge counter and reports whether another
// attempt is allowed.
func (j *Job) bumpAuth() bool {
	j.authAttempts++
	return j.authAttempts <= MaxAuthAttempts
}

// resetAuth restarts the challenge budget for a new job phase.
func (j *Job) resetAuth() { j.authAttempts = 0 }

// Registry owns the in-flight jobs, indexed by correlation id.
// Access is confined to the signaling goroutine, there is no locking.
type Registry struct {
	jobs map[string]*Job
	log  *slog.Logger
}

// NewRegistry creates an empty job registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{jobs: make(map[string]*Job), log: logger}
}

// Add constructs and indexes a job. When the job carries a state
// machine the machine is kicked immediately with the start trigger.
// Adding a duplicate id is a programming error.
func (r *Registry) Add(ctx context.Context, j *Job) (*Job, error) {
	if _, ok := r.jobs[j.id]; ok {
		return nil, errorutil.NewInvalidArgumentError("duplicate job id", j.id)
	}
	r.jobs[j.id] = j
	r.log.LogAttrs(ctx, slog.LevelDebug, "job added", slog.Any("job", j))

	if err := j.fire(ctx, trgStart); err != nil {
		delete(r.jobs, j.id)
		return nil, err
	}
	return j, nil
}

// Get returns the job with the given correlation id, nil if absent.
func (r *Registry) Get(id string) *Job { return r.jobs[id] }

// GetByCallID resolves a job by the dialog identifier of its active
// transaction. Jobs between transactions are not discoverable this way.
func (r *Registry) GetByCallID(callID string) *Job {
	for _, j := range r.jobs {
		if j.tx != nil && j.tx.CallID() == callID {
			return j
		}
	}
	return nil
}

// Remove discards a job. Removing an absent id is a no-op.
func (r *Registry) Remove(id string) {
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	delete(r.jobs, id)
	r.log.Debug("job removed", slog.Any("job", j))
}

// RemoveAll discards every in-flight job.
func (r *Registry) RemoveAll() {
	clear(r.jobs)
}

// Len returns the number of in-flight jobs.
func (r *Registry) Len() int { return len(r.jobs) }
