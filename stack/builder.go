package stack

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emiago/sipgo/sip"
	"github.com/google/uuid"

	"braces.dev/errtrace"
)

// builder constructs outbound SIP requests.
// The Via header is left to the transport layer, which stamps a fresh
// branch on every send. That keeps re-sends (digest retries) trivial.
type builder struct {
	// contact is the local contact/listening address.
	contactHost string
	contactPort int
	transport   string
}

// NewCallID generates a locally unique dialog identifier that doubles
// as the job correlation id for client-initiated operations.
func NewCallID() string {
	return uuid.NewString()
}

func newTag() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func parseTarget(target, domain string) (sip.Uri, error) {
	var uri sip.Uri
	s := target
	if !strings.HasPrefix(s, "sip:") && !strings.HasPrefix(s, "sips:") {
		if !strings.Contains(s, "@") && domain != "" {
			s += "@" + domain
		}
		s = "sip:" + s
	}
	if err := sip.ParseUri(s, &uri); err != nil {
		return sip.Uri{}, errtrace.Wrap(fmt.Errorf("parse target %q: %w", target, err))
	}
	// ParseUri accepts "sip:" with nothing behind it.
	if uri.Host == "" {
		return sip.Uri{}, errtrace.Wrap(fmt.Errorf("parse target %q: empty host", target))
	}
	return uri, nil
}

func (b *builder) contactHeader(user string) *sip.ContactHeader {
	return &sip.ContactHeader{
		Address: sip.Uri{
			User: user,
			Host: b.contactHost,
			Port: b.contactPort,
		},
		Params: sip.NewParams(),
	}
}

func (b *builder) fromHeader(user, domain string) *sip.FromHeader {
	return &sip.FromHeader{
		Address: sip.Uri{User: user, Host: domain},
		Params:  sip.HeaderParams{"tag": newTag()},
	}
}

func (b *builder) commonHeaders(req *sip.Request, callID string, seqNo uint32) {
	if callID == "" {
		callID = NewCallID()
	}
	cid := sip.CallIDHeader(callID)
	req.AppendHeader(&cid)
	req.AppendHeader(&sip.CSeqHeader{SeqNo: seqNo, MethodName: req.Method})
	maxFwd := sip.MaxForwardsHeader(70)
	req.AppendHeader(&maxFwd)
}

// Register builds a REGISTER request. Expires zero removes the binding.
func (b *builder) Register(p RegisterParams) (*sip.Request, error) {
	target, err := parseTarget(p.Registrar, "")
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	// REGISTER goes to the domain itself, the AOR lives in From/To.
	target.User = ""

	req := sip.NewRequest(sip.REGISTER, target)
	b.commonHeaders(req, p.CallID, 1)

	from := b.fromHeader(p.AOR, target.Host)
	req.AppendHeader(from)
	req.AppendHeader(&sip.ToHeader{Address: from.Address, Params: sip.HeaderParams{}})
	req.AppendHeader(b.contactHeader(p.AOR))

	expires := sip.ExpiresHeader(p.Expires)
	req.AppendHeader(&expires)
	return req, nil
}

// Invite builds an INVITE carrying the session offer body.
func (b *builder) Invite(p InviteParams) (*sip.Request, error) {
	target, err := parseTarget(p.Target, p.Domain)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	req := sip.NewRequest(sip.INVITE, target)
	b.commonHeaders(req, p.CallID, 1)

	req.AppendHeader(b.fromHeader(p.From, p.Domain))
	req.AppendHeader(&sip.ToHeader{Address: target, Params: sip.HeaderParams{}})
	req.AppendHeader(b.contactHeader(p.From))
	setBody(req, p.Offer)
	return req, nil
}

// Message builds a one-shot MESSAGE request.
func (b *builder) Message(p MessageParams) (*sip.Request, error) {
	target, err := parseTarget(p.Target, p.Domain)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	req := sip.NewRequest(sip.MESSAGE, target)
	b.commonHeaders(req, p.CallID, 1)

	req.AppendHeader(b.fromHeader(p.From, p.Domain))
	req.AppendHeader(&sip.ToHeader{Address: target, Params: sip.HeaderParams{}})
	setBody(req, p.Content)
	return req, nil
}

// Bye builds an in-dialog BYE from the original INVITE transaction and
// the final response that established the dialog.
func (b *builder) Bye(inviteReq *sip.Request, res *sip.Response) *sip.Request {
	req := sip.NewRequest(sip.BYE, dialogTarget(inviteReq, res))
	b.inDialogHeaders(req, inviteReq, res, inviteReq.CSeq().SeqNo+1)
	return req
}

// ByeUAS builds an in-dialog BYE for a dialog where the local side was
// the callee: From carries the local tag minted in the 2xx response,
// To carries the remote tag from the inbound INVITE.
func (b *builder) ByeUAS(inviteReq *sip.Request, sentRes *sip.Response) *sip.Request {
	target := inviteReq.Recipient
	if contact := inviteReq.GetHeader("Contact"); contact != nil {
		var uri sip.Uri
		v := strings.Trim(contact.Value(), "<>")
		if err := sip.ParseUri(v, &uri); err == nil {
			target = uri
		}
	}

	req := sip.NewRequest(sip.BYE, target)
	req.AppendHeader(sip.NewHeader("Call-ID", inviteReq.CallID().Value()))
	if to := sentRes.To(); to != nil {
		req.AppendHeader(&sip.FromHeader{Address: to.Address, Params: to.Params})
	}
	if from := inviteReq.From(); from != nil {
		req.AppendHeader(&sip.ToHeader{Address: from.Address, Params: from.Params})
	}
	req.AppendHeader(&sip.CSeqHeader{SeqNo: 1, MethodName: sip.BYE})
	maxFwd := sip.MaxForwardsHeader(70)
	req.AppendHeader(&maxFwd)
	return req
}

// Info builds an in-dialog INFO carrying body.
func (b *builder) Info(inviteReq *sip.Request, res *sip.Response, body Body) *sip.Request {
	req := sip.NewRequest(sip.INFO, dialogTarget(inviteReq, res))
	b.inDialogHeaders(req, inviteReq, res, inviteReq.CSeq().SeqNo+1)
	setBody(req, body)
	return req
}

// Cancel builds a CANCEL for a pending INVITE transaction.
// Per RFC 3261 9.1 it copies Request-URI, Call-ID, From, To and the
// INVITE CSeq number with the CANCEL method.
func (b *builder) Cancel(inviteReq *sip.Request) *sip.Request {
	req := sip.NewRequest(sip.CANCEL, inviteReq.Recipient)
	req.AppendHeader(sip.NewHeader("Call-ID", inviteReq.CallID().Value()))
	req.AppendHeader(inviteReq.From())
	req.AppendHeader(inviteReq.To())
	req.AppendHeader(&sip.CSeqHeader{SeqNo: inviteReq.CSeq().SeqNo, MethodName: sip.CANCEL})
	maxFwd := sip.MaxForwardsHeader(70)
	req.AppendHeader(&maxFwd)
	return req
}

// Ack builds the ACK for a 2xx INVITE response.
func (b *builder) Ack(inviteReq *sip.Request, res *sip.Response) *sip.Request {
	req := sip.NewRequest(sip.ACK, dialogTarget(inviteReq, res))
	req.AppendHeader(sip.NewHeader("Call-ID", inviteReq.CallID().Value()))
	req.AppendHeader(inviteReq.From())
	req.AppendHeader(res.To())
	req.AppendHeader(&sip.CSeqHeader{SeqNo: inviteReq.CSeq().SeqNo, MethodName: sip.ACK})
	maxFwd := sip.MaxForwardsHeader(70)
	req.AppendHeader(&maxFwd)
	return req
}

// Response builds a response to an inbound request.
func (b *builder) Response(req *sip.Request, status int, reason string, body Body) *sip.Response {
	res := sip.NewResponseFromRequest(req, status, reason, body.Content)
	if body.ContentType != "" {
		res.AppendHeader(sip.NewHeader("Content-Type", body.ContentType))
	}
	if status >= 180 && status < 300 {
		user := ""
		if to := res.To(); to != nil {
			user = to.Address.User
			// Dialog-establishing responses need a local tag.
			if _, ok := to.Params["tag"]; !ok {
				to.Params["tag"] = newTag()
			}
		}
		res.AppendHeader(b.contactHeader(user))
	}
	return res
}

// inDialogHeaders fills the dialog-identifying headers of a UAC in-dialog
// request: From as sent, To with the remote tag from the response.
func (b *builder) inDialogHeaders(req *sip.Request, inviteReq *sip.Request, res *sip.Response, seqNo uint32) {
	req.AppendHeader(sip.NewHeader("Call-ID", inviteReq.CallID().Value()))
	req.AppendHeader(inviteReq.From())
	if res != nil && res.To() != nil {
		req.AppendHeader(res.To())
	} else {
		req.AppendHeader(inviteReq.To())
	}
	req.AppendHeader(&sip.CSeqHeader{SeqNo: seqNo, MethodName: req.Method})
	maxFwd := sip.MaxForwardsHeader(70)
	req.AppendHeader(&maxFwd)
}

// dialogTarget picks the remote target for an in-dialog request:
// the peer Contact when present, the original Request-URI otherwise.
func dialogTarget(inviteReq *sip.Request, res *sip.Response) sip.Uri {
	if res != nil {
		if contact := res.GetHeader("Contact"); contact != nil {
			var uri sip.Uri
			v := strings.Trim(contact.Value(), "<>")
			if err := sip.ParseUri(v, &uri); err == nil {
				return uri
			}
		}
	}
	return inviteReq.Recipient
}

func setBody(req *sip.Request, body Body) {
	if len(body.Content) == 0 {
		return
	}
	req.SetBody(body.Content)
	if body.ContentType != "" {
		req.AppendHeader(sip.NewHeader("Content-Type", body.ContentType))
	}
	req.AppendHeader(sip.NewHeader("Content-Length", strconv.Itoa(len(body.Content))))
}
