package stack

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"
	"github.com/emiago/sipgo"
	"github.com/emiago/sipgo/sip"

	"github.com/ghettovoice/gophone/log"
)

// SIPGo is the sipgo-backed [Stack] implementation.
//
// It owns the sipgo user agent, client and server, pumps client
// transaction responses into [Events] callbacks and registers server
// handlers for the request methods the engine understands. All events
// are marshalled through the configured post function before delivery.
type SIPGo struct {
	events   Events
	post     func(func()) error
	resolver *Resolver
	name     string
	log      *slog.Logger

	bld builder

	ua     *sipgo.UserAgent
	client *sipgo.Client
	server *sipgo.Server

	started bool
	bound   bool
	bindCfg BindConfig
	serve   context.CancelFunc
}

// SIPGoOptions contains options for a [SIPGo] stack.
type SIPGoOptions struct {
	// UserAgent is the User-Agent header value. If empty, "gophone" is used.
	UserAgent string
	// Resolver locates registrar targets. If nil, a default resolver is used.
	Resolver *Resolver
	// Post marshals protocol events onto the signaling goroutine.
	// If nil, events are delivered on the transport goroutine.
	Post func(func()) error
	// Log is the logger that will be used with the stack.
	// If nil, the [log.Default] will be used.
	Log *slog.Logger
}

func (o *SIPGoOptions) userAgent() string {
	if o == nil || o.UserAgent == "" {
		return "gophone"
	}
	return o.UserAgent
}

func (o *SIPGoOptions) resolver() *Resolver {
	if o == nil || o.Resolver == nil {
		return &Resolver{}
	}
	return o.Resolver
}

func (o *SIPGoOptions) postFn() func(func()) error {
	if o == nil || o.Post == nil {
		return func(fn func()) error {
			fn()
			return nil
		}
	}
	return o.Post
}

func (o *SIPGoOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// NewSIPGo creates a [SIPGo] stack listening on bindAddr ("host:port").
func NewSIPGo(bindAddr string, events Events, opts *SIPGoOptions) (*SIPGo, error) {
	host, portStr, err := net.SplitHostPort(bindAddr)
	if err != nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError(err))
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError(err))
	}

	s := &SIPGo{
		events:   events,
		post:     opts.postFn(),
		resolver: opts.resolver(),
		name:     opts.userAgent(),
		log:      opts.log(),
		bld: builder{
			contactHost: host,
			contactPort: port,
		},
	}
	s.log = s.log.With("stack", s)
	return s, nil
}

// LogValue implements [slog.LogValuer].
func (s *SIPGo) LogValue() slog.Value {
	if s == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("bind_addr", net.JoinHostPort(s.bld.contactHost, strconv.Itoa(s.bld.contactPort))),
		slog.Bool("started", s.started),
		slog.Bool("bound", s.bound),
	)
}

// Start creates the protocol stack resources.
func (s *SIPGo) Start(ctx context.Context) error {
	if s.started {
		return ErrActionNotAllowed
	}

	ua, err := sipgo.NewUA(sipgo.WithUserAgent(s.name))
	if err != nil {
		return errtrace.Wrap(err)
	}
	client, err := sipgo.NewClient(ua, sipgo.WithClientHostname(s.bld.contactHost))
	if err != nil {
		_ = ua.Close()
		return errtrace.Wrap(err)
	}

	s.ua, s.client = ua, client
	s.started = true

	s.log.LogAttrs(ctx, slog.LevelDebug, "stack started")
	return nil
}

// Started reports whether the stack was started and not yet stopped.
func (s *SIPGo) Started() bool { return s != nil && s.started }

// Stop releases all protocol stack resources.
func (s *SIPGo) Stop() error {
	if !s.started {
		return nil
	}
	if s.bound {
		_ = s.Unbind()
	}

	var errs []error
	if err := s.client.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.ua.Close(); err != nil {
		errs = append(errs, err)
	}
	s.ua, s.client = nil, nil
	s.started = false

	s.log.Debug("stack stopped")
	return errtrace.Wrap(joinErrs(errs))
}

// Bind opens the listening point and begins accepting inbound requests.
func (s *SIPGo) Bind(ctx context.Context, cfg BindConfig) error {
	if !s.started {
		return ErrNotStarted
	}
	if s.bound {
		return ErrAlreadyBound
	}

	srv, err := sipgo.NewServer(s.ua)
	if err != nil {
		return errtrace.Wrap(err)
	}
	s.registerHandlers(srv)

	addr := cfg.Address
	if addr == "" {
		addr = net.JoinHostPort(s.bld.contactHost, strconv.Itoa(s.bld.contactPort))
	}

	serveCtx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(serveCtx, cfg.Transport(), addr)
	}()

	// ListenAndServe blocks while serving, an immediate error means the
	// listening point could not be opened.
	select {
	case err := <-errCh:
		cancel()
		_ = srv.Close()
		return errtrace.Wrap(err)
	case <-time.After(100 * time.Millisecond):
	}

	s.server, s.serve = srv, cancel
	s.bound, s.bindCfg = true, cfg

	s.log.LogAttrs(ctx, slog.LevelDebug, "stack bound",
		slog.String("addr", addr),
		slog.String("transport", cfg.Transport()),
		slog.Any("config", log.FmtValue(cfg, false)),
	)
	return nil
}

// Bound reports whether a listening point is open.
func (s *SIPGo) Bound() bool { return s != nil && s.bound }

// Unbind closes the listening point.
func (s *SIPGo) Unbind() error {
	if !s.bound {
		return nil
	}

	s.serve()
	err := s.server.Close()
	s.server, s.serve = nil, nil
	s.bound = false

	s.log.Debug("stack unbound")
	return errtrace.Wrap(err)
}

func (s *SIPGo) registerHandlers(srv *sipgo.Server) {
	forward := func(req *sip.Request, tx sip.ServerTransaction) {
		s.dispatch(func() {
			if s.events.OnRequest != nil {
				s.events.OnRequest(req, tx)
			}
		})
	}
	srv.OnInvite(forward)
	srv.OnAck(forward)
	srv.OnBye(forward)
	srv.OnCancel(forward)
	srv.OnInfo(forward)
	srv.OnMessage(forward)
}

// Register emits a REGISTER transaction. The registrar target is resolved
// first, resolution failures wrap [ErrResolve].
func (s *SIPGo) Register(ctx context.Context, p RegisterParams) (Transaction, error) {
	if err := s.sendable(); err != nil {
		return nil, errtrace.Wrap(err)
	}

	target, err := s.resolver.ResolveRegistrar(ctx, p.Registrar, s.bindCfg.Secured)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	req, err := s.bld.Register(p)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	req.SetDestination(target)
	return errtrace.Wrap2(s.createTransaction(ctx, req))
}

// Invite emits an INVITE transaction.
func (s *SIPGo) Invite(ctx context.Context, p InviteParams) (Transaction, error) {
	if err := s.sendable(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	req, err := s.bld.Invite(p)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return errtrace.Wrap2(s.createTransaction(ctx, req))
}

// Message emits a MESSAGE transaction.
func (s *SIPGo) Message(ctx context.Context, p MessageParams) (Transaction, error) {
	if err := s.sendable(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	req, err := s.bld.Message(p)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return errtrace.Wrap2(s.createTransaction(ctx, req))
}

// Bye emits an in-dialog BYE.
func (s *SIPGo) Bye(ctx context.Context, inviteTx Transaction, res *sip.Response) (Transaction, error) {
	if err := s.sendable(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return errtrace.Wrap2(s.createTransaction(ctx, s.bld.Bye(inviteTx.Request(), res)))
}

// ByeUAS emits an in-dialog BYE for a dialog the local side answered.
func (s *SIPGo) ByeUAS(ctx context.Context, invite *sip.Request, sentRes *sip.Response) (Transaction, error) {
	if err := s.sendable(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	req := s.bld.ByeUAS(invite, sentRes)
	if src := invite.Source(); src != "" {
		req.SetDestination(src)
	}
	return errtrace.Wrap2(s.createTransaction(ctx, req))
}

// Cancel emits a CANCEL for a pending INVITE transaction.
func (s *SIPGo) Cancel(ctx context.Context, inviteTx Transaction) (Transaction, error) {
	if err := s.sendable(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return errtrace.Wrap2(s.createTransaction(ctx, s.bld.Cancel(inviteTx.Request())))
}

// Info emits an in-dialog INFO carrying body.
func (s *SIPGo) Info(ctx context.Context, inviteTx Transaction, res *sip.Response, body Body) (Transaction, error) {
	if err := s.sendable(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return errtrace.Wrap2(s.createTransaction(ctx, s.bld.Info(inviteTx.Request(), res, body)))
}

// Ack acknowledges a 2xx INVITE response. ACK is not a transaction
// of its own, it is written straight to the transport.
func (s *SIPGo) Ack(ctx context.Context, inviteTx Transaction, res *sip.Response) error {
	if err := s.sendable(); err != nil {
		return errtrace.Wrap(err)
	}
	return errtrace.Wrap(s.client.WriteRequest(s.bld.Ack(inviteTx.Request(), res)))
}

// Respond replies to an inbound request transaction.
func (s *SIPGo) Respond(tx ServerTransaction, req *sip.Request, status int, reason string, body Body) (*sip.Response, error) {
	res := s.bld.Response(req, status, reason, body)
	if err := tx.Respond(res); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return res, nil
}

// Authorize answers a 401/407 challenge by re-emitting the challenged
// request with a digest credential header in a fresh transaction.
func (s *SIPGo) Authorize(ctx context.Context, challenged Transaction, res *sip.Response, creds Credentials) (Transaction, error) {
	if err := s.sendable(); err != nil {
		return nil, errtrace.Wrap(err)
	}

	req, err := authorizeRequest(challenged.Request(), res, creds)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if dst := challenged.Request().Destination(); dst != "" {
		req.SetDestination(dst)
	}
	challenged.Terminate()
	return errtrace.Wrap2(s.createTransaction(ctx, req))
}

func (s *SIPGo) sendable() error {
	if !s.started {
		return ErrNotStarted
	}
	if !s.bound {
		return ErrNotBound
	}
	return nil
}

type transaction struct {
	req        *sip.Request
	tx         sip.ClientTransaction
	terminated atomic.Bool
}

func (t *transaction) Request() *sip.Request { return t.req }

func (t *transaction) CallID() string {
	if cid := t.req.CallID(); cid != nil {
		return cid.Value()
	}
	return ""
}

func (t *transaction) Terminate() {
	t.terminated.Store(true)
	t.tx.Terminate()
}

func (s *SIPGo) createTransaction(ctx context.Context, req *sip.Request) (Transaction, error) {
	tx, err := s.client.TransactionRequest(ctx, req)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	t := &transaction{req: req, tx: tx}
	go s.pump(t)

	s.log.LogAttrs(ctx, slog.LevelDebug, "transaction created",
		slog.String("method", req.Method.String()),
		slog.String("call_id", t.CallID()),
		slog.Any("message", log.CalcValue(func() any { return req.String() })),
	)
	return t, nil
}

// pump forwards transaction responses into engine events until the
// transaction terminates. Termination without a final response is
// reported as a timeout unless the engine terminated it on purpose.
func (s *SIPGo) pump(t *transaction) {
	resCh := t.tx.Responses()
	final := false

	forward := func(res *sip.Response) {
		if int(res.StatusCode) >= 200 {
			final = true
		}
		s.dispatch(func() {
			if s.events.OnResponse != nil {
				s.events.OnResponse(t, res)
			}
		})
	}

	for {
		select {
		case res, ok := <-resCh:
			if !ok {
				resCh = nil
				continue
			}
			forward(res)
		case <-t.tx.Done():
			drainResponses(resCh, forward)
			if !final && !t.terminated.Load() {
				s.dispatch(func() {
					if s.events.OnTimeout != nil {
						s.events.OnTimeout(t)
					}
				})
			}
			return
		}
	}
}

// drainResponses forwards responses queued before the transaction terminated.
func drainResponses(ch <-chan *sip.Response, forward func(*sip.Response)) {
	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return
			}
			forward(res)
		default:
			return
		}
	}
}

func (s *SIPGo) dispatch(fn func()) {
	if err := s.post(fn); err != nil {
		s.log.Warn("protocol event dropped", slog.Any("error", err))
	}
}

func joinErrs(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}
