package gophone

import (
	"context"
	"log/slog"
	"sync/atomic"

	"braces.dev/errtrace"
	"github.com/emiago/sipgo/sip"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghettovoice/gophone/connectivity"
	"github.com/ghettovoice/gophone/internal/errorutil"
	"github.com/ghettovoice/gophone/internal/loop"
	"github.com/ghettovoice/gophone/log"
	"github.com/ghettovoice/gophone/stack"
)

// ClientState is the lifecycle state of a [Client].
type ClientState int32

const (
	// StateClosed is the initial and final state.
	StateClosed ClientState = iota
	// StateOpening means an open job is in flight.
	StateOpening
	// StateOpen means the client is bound and, with a registrar
	// configured, registered.
	StateOpen
	// StateClosing means a close job is in flight.
	StateClosing
)

var clientStateNames = [...]string{"closed", "opening", "open", "closing"}

func (s ClientState) String() string {
	if s < StateClosed || int(s) >= len(clientStateNames) {
		return "unknown"
	}
	return clientStateNames[s]
}

// Options contains options for a [Client].
type Options struct {
	// UserAgent is the User-Agent header value. If empty, "gophone" is used.
	UserAgent string
	// Timings overrides the scheduled intervals of the engine.
	Timings *Timings
	// Media describes the local media endpoint advertised in
	// offers and answers.
	Media stack.MediaConfig
	// QueueSize is the signaling queue capacity.
	QueueSize int
	// Resolver overrides registrar target resolution.
	Resolver *stack.Resolver
	// Registerer receives the client metrics. If nil, metrics are off.
	Registerer prometheus.Registerer
	// NewStack overrides protocol stack construction. The stack must
	// deliver its events through post.
	NewStack func(events stack.Events, post func(func()) error) (stack.Stack, error)
	// Log is the logger that will be used with the client.
	// If nil, the [log.Default] will be used.
	Log *slog.Logger
}

func (o *Options) timings() *Timings {
	if o == nil {
		return nil
	}
	return o.Timings
}

func (o *Options) media() stack.MediaConfig {
	if o == nil || o.Media.Host == "" {
		return stack.MediaConfig{Host: "127.0.0.1", Port: 4000}
	}
	return o.Media
}

func (o *Options) queueSize() int {
	if o == nil {
		return 0
	}
	return o.QueueSize
}

func (o *Options) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

func (o *Options) newStack(bindAddr string, events stack.Events, post func(func()) error, logger *slog.Logger) (stack.Stack, error) {
	if o != nil && o.NewStack != nil {
		return errtrace.Wrap2(o.NewStack(events, post))
	}
	ua := ""
	var resolver *stack.Resolver
	if o != nil {
		ua, resolver = o.UserAgent, o.Resolver
	}
	return errtrace.Wrap2(stack.NewSIPGo(bindAddr, events, &stack.SIPGoOptions{
		UserAgent: ua,
		Resolver:  resolver,
		Post:      post,
		Log:       logger,
	}))
}

// Client is the signaling facade. Public operations post onto the
// single signaling goroutine, perform their precondition checks there
// and return; completion arrives later through [Callbacks] on the same
// goroutine. There is not a single lock in the engine.
type Client struct {
	opts *Options
	cb   *Callbacks
	loop *loop.Loop
	mon  *connectivity.Monitor
	stk  stack.Stack
	reg  *Registry
	log  *slog.Logger

	metrics *metrics

	state atomic.Int32
	// cfg is the active configuration, owned by the signaling goroutine.
	cfg Config
	// refresh is the pending registration refresh task.
	refresh *loop.Task
}

// New creates a signaling client listening on bindAddr ("host:port"),
// watching src for connectivity transitions and reporting through cb.
func New(bindAddr string, src connectivity.Source, cb *Callbacks, opts *Options) (*Client, error) {
	c := &Client{
		opts:    opts,
		cb:      cb,
		log:     opts.log(),
		metrics: newMetrics(optRegisterer(opts)),
	}
	c.loop = loop.New(&loop.Options{QueueSize: opts.queueSize(), Log: c.log})
	c.reg = NewRegistry(c.log)

	stk, err := opts.newStack(bindAddr, stack.Events{
		OnResponse: c.onResponse,
		OnTimeout:  c.onTimeout,
		OnRequest:  c.onRequest,
	}, c.loop.Post, c.log)
	if err != nil {
		c.loop.Close()
		return nil, errtrace.Wrap(err)
	}
	c.stk = stk

	c.mon = connectivity.NewMonitor(src, &connectivity.MonitorOptions{
		Post: c.loop.Post,
		Log:  c.log,
	})
	c.mon.OnChange(c.onConnectivityChange)

	c.log = c.log.With("client", c)
	return c, nil
}

func optRegisterer(opts *Options) prometheus.Registerer {
	if opts == nil {
		return nil
	}
	return opts.Registerer
}

// LogValue implements [slog.LogValuer].
func (c *Client) LogValue() slog.Value {
	if c == nil {
		return slog.Value{}
	}
	return slog.GroupValue(slog.String("state", c.State().String()))
}

// State returns the client lifecycle state. Safe from any goroutine.
func (c *Client) State() ClientState { return ClientState(c.state.Load()) }

func (c *Client) setState(s ClientState) { c.state.Store(int32(s)) }

// Stats is a point-in-time snapshot of the engine.
type Stats struct {
	// State is the client lifecycle state.
	State ClientState
	// Jobs is the number of in-flight jobs.
	Jobs int
	// Connectivity is the current network status.
	Connectivity connectivity.Status
}

// Stats snapshots the engine state. Safe from any goroutine, but not
// from engine callbacks.
func (c *Client) Stats() Stats {
	var st Stats
	if err := c.run(func() error {
		st = Stats{
			State:        c.State(),
			Jobs:         c.reg.Len(),
			Connectivity: c.mon.Current(),
		}
		return nil
	}); err != nil {
		return Stats{State: c.State()}
	}
	return st
}

func (c *Client) timings() *Timings { return c.opts.timings() }

func (c *Client) media() stack.MediaConfig { return c.opts.media() }

// Shutdown releases the client resources: the connectivity monitor,
// the protocol stack and the signaling goroutine. In-flight jobs are
// discarded without callbacks. Use [Client.Close] for an orderly close.
func (c *Client) Shutdown() {
	c.mon.Close()
	_ = c.run(func() error {
		c.cancelRefresh()
		c.reg.RemoveAll()
		c.setState(StateClosed)
		return errtrace.Wrap(c.stk.Stop())
	})
	c.loop.Close()
}

// run posts fn onto the signaling goroutine and waits for its
// precondition result. Must not be called from the goroutine itself.
func (c *Client) run(fn func() error) error {
	errCh := make(chan error, 1)
	if err := c.loop.Post(func() { errCh <- fn() }); err != nil {
		return errtrace.Wrap(err)
	}
	return errtrace.Wrap(<-errCh)
}

func (c *Client) checkConnectivity() error {
	if !c.mon.HasConnectivity() {
		return newClientError(CodeNoConnectivity, "no connectivity", nil)
	}
	return nil
}

// Open bootstraps the protocol stack and starts the open job: bind,
// register unless cfg is registrar-less, report through OnOpened.
func (c *Client) Open(id string, cfg Config) error {
	return errtrace.Wrap(c.run(func() error {
		if c.State() != StateClosed {
			return newClientError(CodeAlreadyOpen, "client already open", nil)
		}
		if err := c.checkConnectivity(); err != nil {
			return errtrace.Wrap(err)
		}

		c.setState(StateOpening)
		j := &Job{id: id, typ: JobOpen, cfg: cfg}
		j.fsm = c.newOpenMachine(j)
		if _, err := c.reg.Add(context.Background(), j); err != nil {
			c.setState(StateClosed)
			return errtrace.Wrap(err)
		}
		return nil
	}))
}

// Close ends the session. Registrar-less clients close synchronously:
// there is nothing to unregister. Otherwise a close job unregisters
// first, bounded by the close watchdog, and OnClosed reports the
// outcome.
func (c *Client) Close(id string) error {
	return errtrace.Wrap(c.run(func() error {
		switch c.State() {
		case StateOpen, StateOpening:
		default:
			return newClientError(CodeAlreadyClosed, "client not open", nil)
		}
		if err := c.checkConnectivity(); err != nil {
			return errtrace.Wrap(err)
		}

		c.cancelRefresh()
		c.setState(StateClosing)

		if c.cfg.Registrarless() || !c.stk.Started() {
			if err := c.stk.Stop(); err != nil {
				c.log.Warn("stack stop failed", slog.Any("error", err))
			}
			c.setState(StateClosed)
			c.cb.closed(Result{ID: id, Status: c.mon.Current(), Code: CodeOK, Text: "closed"})
			c.metrics.jobDone(JobClose, true)
			return nil
		}

		j := &Job{id: id, typ: JobClose, cfg: c.cfg}
		j.fsm = c.newCloseMachine(j)
		_, err := c.reg.Add(context.Background(), j)
		return errtrace.Wrap(err)
	}))
}

// Reconfigure diffs next against the active configuration and applies
// the cheapest sufficient change: nothing, a direct media update, a
// re-registration with the new credentials, or a full rebind when the
// transport security changed. The outcome arrives through
// OnReconfigured.
func (c *Client) Reconfigure(id string, next Config) error {
	return errtrace.Wrap(c.run(func() error {
		if c.State() != StateOpen {
			return errtrace.Wrap(ErrNotOpened)
		}

		change := classifyConfig(c.cfg, next)
		c.log.Debug("reconfigure requested", slog.String("change", change.String()))

		switch change {
		case configUnchanged:
			c.cb.reconfigured(Result{ID: id, Status: c.mon.Current(), Code: CodeOK, Text: "unchanged"})
			return nil
		case configMediaOnly:
			c.cfg.Media = next.Media
			c.cb.reconfigured(Result{ID: id, Status: c.mon.Current(), Code: CodeOK, Text: "media updated"})
			return nil
		}

		if err := c.checkConnectivity(); err != nil {
			return errtrace.Wrap(err)
		}
		c.cancelRefresh()

		typ, rebind := JobReconfigure, false
		if change == configTransport {
			typ, rebind = JobReconfigureReloadNetworking, true
		}
		j := &Job{id: id, typ: typ, reconf: Reconfigure{Old: c.cfg, New: next}}
		j.fsm = c.newReconfigureMachine(j, rebind)
		_, err := c.reg.Add(context.Background(), j)
		return errtrace.Wrap(err)
	}))
}

// Call places an outgoing call to target. Lifecycle events arrive
// through OnCall under the given id, which doubles as the SIP dialog
// identifier.
func (c *Client) Call(id, target string) error {
	return errtrace.Wrap(c.run(func() error {
		if c.State() != StateOpen {
			return errtrace.Wrap(ErrNotOpened)
		}
		if err := c.checkConnectivity(); err != nil {
			return errtrace.Wrap(err)
		}

		ctx := context.Background()
		j := &Job{id: id, typ: JobCall, call: &Call{id: id, dir: DirectionOutgoing, remote: target}}
		if _, err := c.reg.Add(ctx, j); err != nil {
			return errtrace.Wrap(err)
		}
		if err := c.startCall(ctx, j, target); err != nil {
			c.reg.Remove(id)
			return errtrace.Wrap(err)
		}
		c.metrics.callStarted(DirectionOutgoing)
		return nil
	}))
}

// Accept answers the incoming call with the given id.
func (c *Client) Accept(id string) error {
	return errtrace.Wrap(c.run(func() error {
		if err := c.checkConnectivity(); err != nil {
			return errtrace.Wrap(err)
		}
		j := c.reg.Get(id)
		if j == nil || j.typ != JobCall {
			return errorutil.NewInvalidArgumentError("unknown call", id)
		}
		return errtrace.Wrap(c.acceptCall(context.Background(), j))
	}))
}

// Disconnect ends the call with the given id. Hanging up a call that
// already failed is legitimate: a missing job is logged, not an error.
func (c *Client) Disconnect(id string) error {
	return errtrace.Wrap(c.run(func() error {
		if err := c.checkConnectivity(); err != nil {
			return errtrace.Wrap(err)
		}
		j := c.reg.Get(id)
		if j == nil || j.typ != JobCall {
			c.log.Warn("disconnect for unknown call", slog.String("id", id))
			return nil
		}
		return errtrace.Wrap(c.hangupCall(context.Background(), j))
	}))
}

// SendDigits emits DTMF digits on the connected call with the given id.
func (c *Client) SendDigits(id, digits string) error {
	return errtrace.Wrap(c.run(func() error {
		if err := c.checkConnectivity(); err != nil {
			return errtrace.Wrap(err)
		}
		j := c.reg.Get(id)
		if j == nil || j.typ != JobCall {
			return errorutil.NewInvalidArgumentError("unknown call", id)
		}
		return errtrace.Wrap(c.sendDigits(context.Background(), j, digits))
	}))
}

// SendMessage sends an instant message to target. The outcome arrives
// through OnMessage under the given id.
func (c *Client) SendMessage(id, target, text string) error {
	return errtrace.Wrap(c.run(func() error {
		if c.State() != StateOpen {
			return errtrace.Wrap(ErrNotOpened)
		}
		if err := c.checkConnectivity(); err != nil {
			return errtrace.Wrap(err)
		}

		ctx := context.Background()
		j := &Job{id: id, typ: JobMessage}
		if _, err := c.reg.Add(ctx, j); err != nil {
			return errtrace.Wrap(err)
		}
		if err := c.startMessage(ctx, j, target, text); err != nil {
			c.reg.Remove(id)
			return errtrace.Wrap(newClientError(CodeMessageCouldNotConnect, "message could not connect", err))
		}
		return nil
	}))
}

// onConnectivityChange reacts to monitor transitions. Every change
// first cancels a pending registration refresh: a stale refresh must
// not race the new networking state.
func (c *Client) onConnectivityChange(ch connectivity.Change) {
	ctx := context.Background()
	c.cancelRefresh()
	c.metrics.connectivityChange(ch.Kind)

	if c.State() != StateOpen {
		c.log.LogAttrs(ctx, slog.LevelDebug, "connectivity change ignored",
			slog.Any("change", ch), slog.String("state", c.State().String()))
		return
	}

	switch ch.Kind {
	case connectivity.ChangeOffline:
		// Best effort: even a failed unbind must surface as offline,
		// the application must not believe it is reachable.
		if err := c.stk.Unbind(); err != nil {
			c.log.Warn("unbind failed", slog.Any("error", err))
		}
		c.cb.connectivity(Result{
			Status: connectivity.StatusNone,
			Code:   CodeNoConnectivity,
			Text:   "connectivity lost",
		})
	case connectivity.ChangeOnline:
		c.spawnNetworkingJob(ctx, JobStartNetworking, ch.Status)
	case connectivity.ChangeHandover:
		c.spawnNetworkingJob(ctx, JobReloadNetworking, ch.Status)
	}
}

func (c *Client) spawnNetworkingJob(ctx context.Context, typ JobType, status connectivity.Status) {
	j := &Job{id: stack.NewCallID(), typ: typ, cfg: c.cfg, status: status}
	j.fsm = c.newNetworkingMachine(j, typ == JobReloadNetworking)
	if _, err := c.reg.Add(ctx, j); err != nil {
		c.log.Error("networking job rejected", slog.Any("error", err))
	}
}

// scheduleRefresh arms the registration refresh at expiry minus the
// margin, replacing a previously scheduled one.
func (c *Client) scheduleRefresh(expiry int) {
	c.cancelRefresh()
	d := c.timings().refreshDelay(expiry)
	c.refresh = c.loop.Schedule(d, func() {
		c.refresh = nil
		c.runRefresh()
	})
	c.log.Debug("registration refresh scheduled", slog.Duration("in", d))
}

func (c *Client) cancelRefresh() {
	if c.refresh != nil {
		c.refresh.Cancel()
		c.refresh = nil
	}
}

func (c *Client) runRefresh() {
	if c.State() != StateOpen || !c.mon.HasConnectivity() {
		return
	}
	ctx := context.Background()
	j := &Job{id: stack.NewCallID(), typ: JobRegisterRefresh, cfg: c.cfg}
	j.fsm = c.newRefreshMachine(j)
	if _, err := c.reg.Add(ctx, j); err != nil {
		c.log.Error("refresh job rejected", slog.Any("error", err))
	}
}

// jobFor resolves the owning job of a client transaction: by
// correlation id first, by dialog identifier scan second.
func (c *Client) jobFor(tx stack.Transaction) *Job {
	if j := c.reg.Get(tx.CallID()); j != nil {
		return j
	}
	return c.reg.GetByCallID(tx.CallID())
}

func (c *Client) onResponse(tx stack.Transaction, res *sip.Response) {
	ctx := context.Background()
	j := c.jobFor(tx)
	if j == nil {
		c.log.LogAttrs(ctx, slog.LevelDebug, "response without a job",
			slog.String("call_id", tx.CallID()), slog.Int("status", int(res.StatusCode)))
		return
	}

	switch j.typ {
	case JobCall:
		c.onCallResponse(ctx, j, tx, res)
	case JobMessage:
		c.onMessageResponse(ctx, j, res)
	default:
		c.routeEvent(ctx, j, res)
	}
}

func (c *Client) onTimeout(tx stack.Transaction) {
	ctx := context.Background()
	j := c.jobFor(tx)
	if j == nil {
		c.log.LogAttrs(ctx, slog.LevelDebug, "timeout without a job",
			slog.String("call_id", tx.CallID()))
		return
	}

	switch j.typ {
	case JobCall:
		c.onCallTimeout(ctx, j, tx)
	case JobMessage:
		c.onMessageTimeout(ctx, j)
	default:
		c.fireOrFail(ctx, j, trgTimeout)
	}
}

func (c *Client) onRequest(req *sip.Request, tx stack.ServerTransaction) {
	ctx := context.Background()
	switch req.Method {
	case sip.INVITE:
		c.onIncomingInvite(ctx, req, tx)
	case sip.MESSAGE:
		c.onIncomingMessage(ctx, req, tx)
	default:
		id := ""
		if cid := req.CallID(); cid != nil {
			id = cid.Value()
		}
		j := c.reg.Get(id)
		if j == nil {
			j = c.reg.GetByCallID(id)
		}
		if j == nil || j.call == nil {
			if req.Method != sip.ACK {
				if _, err := c.stk.Respond(tx, req, 481, "Call/Transaction Does Not Exist", stack.Body{}); err != nil {
					c.log.Warn("response failed", slog.Any("error", err))
				}
			}
			return
		}
		c.onCallRequest(ctx, j, req, tx)
	}
}

// fault reports an unrecoverable condition: stack bootstrap or bind
// failures that no retry can fix without reinitializing the client.
func (c *Client) fault(err error) {
	c.log.Error("unrecoverable signaling failure", slog.Any("error", err))
	c.cb.faulted(err)
}

// finishJob is the last-resort cleanup when a machine rejects every
// trigger: the job is discarded so the registry cannot leak it.
func (c *Client) finishJob(ctx context.Context, j *Job) {
	if !j.done {
		j.done = true
		c.log.LogAttrs(ctx, slog.LevelError, "job discarded", slog.Any("job", j))
	}
	c.reg.Remove(j.id)
}
