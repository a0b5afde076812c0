package stack

import (
	"fmt"
	"strings"

	"github.com/emiago/sipgo/sip"
	"github.com/icholy/digest"

	"braces.dev/errtrace"
)

// SIP status codes the auth helper cares about.
const (
	statusUnauthorized      = 401
	statusProxyAuthRequired = 407
)

// IsChallenge reports whether the response is a digest challenge.
func IsChallenge(res *sip.Response) bool {
	code := int(res.StatusCode)
	return code == statusUnauthorized || code == statusProxyAuthRequired
}

// authorizeRequest answers a 401/407 challenge: it rebuilds the challenged
// request with a computed digest credential header and an incremented CSeq.
// The transport layer stamps a fresh Via branch on send.
func authorizeRequest(req *sip.Request, res *sip.Response, creds Credentials) (*sip.Request, error) {
	challengeHdr, credentialHdr := "WWW-Authenticate", "Authorization"
	if int(res.StatusCode) == statusProxyAuthRequired {
		challengeHdr, credentialHdr = "Proxy-Authenticate", "Proxy-Authorization"
	}

	hdr := res.GetHeader(challengeHdr)
	if hdr == nil {
		return nil, errtrace.Wrap(ErrNoChallenge)
	}

	chal, err := digest.ParseChallenge(hdr.Value())
	if err != nil {
		return nil, errtrace.Wrap(fmt.Errorf("parse challenge: %w", err))
	}

	cred, err := digest.Digest(chal, digest.Options{
		Method:   req.Method.String(),
		URI:      req.Recipient.String(),
		Username: creds.Username,
		Password: creds.Password,
	})
	if err != nil {
		return nil, errtrace.Wrap(fmt.Errorf("compute digest: %w", err))
	}

	next := resignRequest(req)
	next.AppendHeader(sip.NewHeader(credentialHdr, cred.String()))
	return next, nil
}

// resignRequest copies a request for re-sending in a new transaction:
// same dialog identity, incremented CSeq, no Via and no stale credentials.
// Dialog-identifying headers keep their typed form so the transport layer
// accessors still resolve them.
func resignRequest(req *sip.Request) *sip.Request {
	next := sip.NewRequest(req.Method, req.Recipient)
	next.AppendHeader(req.CallID())
	next.AppendHeader(req.From())
	next.AppendHeader(req.To())
	next.AppendHeader(&sip.CSeqHeader{SeqNo: req.CSeq().SeqNo + 1, MethodName: req.Method})
	for _, h := range req.Headers() {
		switch strings.ToLower(h.Name()) {
		case "via", "call-id", "from", "to", "cseq",
			"authorization", "proxy-authorization", "content-length":
			continue
		}
		next.AppendHeader(sip.NewHeader(h.Name(), h.Value()))
	}
	if body := req.Body(); len(body) > 0 {
		next.SetBody(body)
	}
	return next
}
