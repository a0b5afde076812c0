package stack

import (
	"strings"
	"testing"

	"github.com/emiago/sipgo/sip"
	"github.com/google/go-cmp/cmp"
)

func newTestBuilder() *builder {
	return &builder{contactHost: "192.0.2.10", contactPort: 5060, transport: "udp"}
}

func TestParseTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		target  string
		domain  string
		want    sip.Uri
		wantErr bool
	}{
		{
			name:   "full address",
			target: "bob@example.com",
			want:   sip.Uri{User: "bob", Host: "example.com"},
		},
		{
			name:   "bare user with domain",
			target: "bob",
			domain: "example.com",
			want:   sip.Uri{User: "bob", Host: "example.com"},
		},
		{
			name:   "bare host without domain",
			target: "example.com",
			want:   sip.Uri{Host: "example.com"},
		},
		{
			name:   "sip uri kept as is",
			target: "sip:carol@other.net",
			domain: "example.com",
			want:   sip.Uri{User: "carol", Host: "other.net"},
		},
		{
			name:    "unparsable",
			target:  "sip:",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseTarget(tt.target, tt.domain)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseTarget() err = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTarget() err = %v", err)
			}
			if got.User != tt.want.User || got.Host != tt.want.Host {
				t.Errorf("parseTarget() = %s@%s, want %s@%s",
					got.User, got.Host, tt.want.User, tt.want.Host)
			}
		})
	}
}

func TestBuilderRegister(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	req, err := b.Register(RegisterParams{
		Registrar: "sip.example.com",
		AOR:       "alice",
		Expires:   60,
		CallID:    "cid-reg",
	})
	if err != nil {
		t.Fatalf("Register() err = %v", err)
	}

	if req.Method != sip.REGISTER {
		t.Errorf("method = %s, want REGISTER", req.Method)
	}
	// The Request-URI addresses the domain, the AOR lives in From/To.
	if req.Recipient.User != "" {
		t.Errorf("recipient user = %q, want empty", req.Recipient.User)
	}
	if req.Recipient.Host != "sip.example.com" {
		t.Errorf("recipient host = %q, want sip.example.com", req.Recipient.Host)
	}
	if got := req.CallID().Value(); got != "cid-reg" {
		t.Errorf("Call-ID = %q, want cid-reg", got)
	}

	from := req.From()
	if from.Address.User != "alice" || from.Address.Host != "sip.example.com" {
		t.Errorf("From = %s@%s, want alice@sip.example.com", from.Address.User, from.Address.Host)
	}
	if tag, ok := from.Params["tag"]; !ok || tag == "" {
		t.Error("From carries no tag")
	}
	to := req.To()
	if diff := cmp.Diff(from.Address, to.Address); diff != "" {
		t.Errorf("To address differs from From (-from +to):\n%s", diff)
	}
	if _, ok := to.Params["tag"]; ok {
		t.Error("To carries a tag before the dialog exists")
	}

	if hdr := req.GetHeader("Expires"); hdr == nil || hdr.Value() != "60" {
		t.Errorf("Expires = %v, want 60", hdr)
	}
	if cseq := req.CSeq(); cseq.SeqNo != 1 || cseq.MethodName != sip.REGISTER {
		t.Errorf("CSeq = %d %s, want 1 REGISTER", cseq.SeqNo, cseq.MethodName)
	}
	if req.GetHeader("Contact") == nil {
		t.Error("missing Contact header")
	}
}

func TestBuilderCancel(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	invite, err := b.Invite(InviteParams{
		Target: "bob@example.com",
		From:   "alice",
		Domain: "example.com",
		CallID: "cid-cancel",
	})
	if err != nil {
		t.Fatalf("Invite() err = %v", err)
	}

	cancel := b.Cancel(invite)

	if cancel.Method != sip.CANCEL {
		t.Errorf("method = %s, want CANCEL", cancel.Method)
	}
	if diff := cmp.Diff(invite.Recipient.String(), cancel.Recipient.String()); diff != "" {
		t.Errorf("Request-URI differs (-invite +cancel):\n%s", diff)
	}
	if got := cancel.CallID().Value(); got != "cid-cancel" {
		t.Errorf("Call-ID = %q, want cid-cancel", got)
	}
	if got, want := cancel.From().Params["tag"], invite.From().Params["tag"]; got != want {
		t.Errorf("From tag = %q, want %q", got, want)
	}
	cseq := cancel.CSeq()
	if cseq.SeqNo != invite.CSeq().SeqNo {
		t.Errorf("CSeq number = %d, want %d", cseq.SeqNo, invite.CSeq().SeqNo)
	}
	if cseq.MethodName != sip.CANCEL {
		t.Errorf("CSeq method = %s, want CANCEL", cseq.MethodName)
	}
}

func TestBuilderAck(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	invite, err := b.Invite(InviteParams{
		Target: "bob@example.com",
		From:   "alice",
		Domain: "example.com",
		CallID: "cid-ack",
	})
	if err != nil {
		t.Fatalf("Invite() err = %v", err)
	}
	res := sip.NewResponseFromRequest(invite, 200, "OK", nil)
	res.To().Params["tag"] = "remote1"

	ack := b.Ack(invite, res)

	if ack.Method != sip.ACK {
		t.Errorf("method = %s, want ACK", ack.Method)
	}
	if got, want := ack.From().Params["tag"], invite.From().Params["tag"]; got != want {
		t.Errorf("From tag = %q, want %q", got, want)
	}
	if got := ack.To().Params["tag"]; got != "remote1" {
		t.Errorf("To tag = %q, want remote1", got)
	}
	cseq := ack.CSeq()
	if cseq.SeqNo != invite.CSeq().SeqNo || cseq.MethodName != sip.ACK {
		t.Errorf("CSeq = %d %s, want %d ACK", cseq.SeqNo, cseq.MethodName, invite.CSeq().SeqNo)
	}
}

func newInboundInvite(t *testing.T) *sip.Request {
	t.Helper()

	req := sip.NewRequest(sip.INVITE, sip.Uri{User: "alice", Host: "192.0.2.10"})
	cid := sip.CallIDHeader("cid-inbound")
	req.AppendHeader(&cid)
	req.AppendHeader(&sip.FromHeader{
		Address: sip.Uri{User: "bob", Host: "example.com"},
		Params:  sip.HeaderParams{"tag": "remote1"},
	})
	req.AppendHeader(&sip.ToHeader{
		Address: sip.Uri{User: "alice", Host: "example.com"},
		Params:  sip.HeaderParams{},
	})
	req.AppendHeader(&sip.CSeqHeader{SeqNo: 1, MethodName: sip.INVITE})
	req.AppendHeader(sip.NewHeader("Contact", "<sip:bob@198.51.100.7:5062>"))
	return req
}

func TestBuilderResponseTag(t *testing.T) {
	t.Parallel()

	t.Run("provisional below ringing", func(t *testing.T) {
		t.Parallel()

		res := newTestBuilder().Response(newInboundInvite(t), 100, "Trying", Body{})
		if _, ok := res.To().Params["tag"]; ok {
			t.Error("100 carries a local tag")
		}
		if res.GetHeader("Contact") != nil {
			t.Error("100 carries a Contact header")
		}
	})

	t.Run("ringing mints tag", func(t *testing.T) {
		t.Parallel()

		res := newTestBuilder().Response(newInboundInvite(t), 180, "Ringing", Body{})
		if tag, ok := res.To().Params["tag"]; !ok || tag == "" {
			t.Error("180 carries no local tag")
		}
		if res.GetHeader("Contact") == nil {
			t.Error("180 carries no Contact header")
		}
	})

	t.Run("existing tag kept", func(t *testing.T) {
		t.Parallel()

		req := newInboundInvite(t)
		req.To().Params["tag"] = "local1"
		res := newTestBuilder().Response(req, 200, "OK", Body{})
		if got := res.To().Params["tag"]; got != "local1" {
			t.Errorf("To tag = %q, want local1", got)
		}
	})
}

func TestBuilderByeUAS(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	invite := newInboundInvite(t)
	sentRes := b.Response(invite, 200, "OK", Body{})

	bye := b.ByeUAS(invite, sentRes)

	if bye.Method != sip.BYE {
		t.Errorf("method = %s, want BYE", bye.Method)
	}
	// Contact of the inbound INVITE becomes the remote target.
	if bye.Recipient.Host != "198.51.100.7" || bye.Recipient.Port != 5062 {
		t.Errorf("target = %s:%d, want 198.51.100.7:5062", bye.Recipient.Host, bye.Recipient.Port)
	}
	if got := bye.CallID().Value(); got != "cid-inbound" {
		t.Errorf("Call-ID = %q, want cid-inbound", got)
	}
	// From/To are swapped relative to the INVITE: the local tag minted
	// in the 2xx identifies our side.
	if got, want := bye.From().Params["tag"], sentRes.To().Params["tag"]; got != want || got == "" {
		t.Errorf("From tag = %q, want local tag %q", got, want)
	}
	if got := bye.To().Params["tag"]; got != "remote1" {
		t.Errorf("To tag = %q, want remote1", got)
	}
	if cseq := bye.CSeq(); cseq.MethodName != sip.BYE {
		t.Errorf("CSeq method = %s, want BYE", cseq.MethodName)
	}
}

func TestBuilderInDialogBye(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	invite, err := b.Invite(InviteParams{
		Target: "bob@example.com",
		From:   "alice",
		Domain: "example.com",
		CallID: "cid-bye",
	})
	if err != nil {
		t.Fatalf("Invite() err = %v", err)
	}
	res := sip.NewResponseFromRequest(invite, 200, "OK", nil)
	res.To().Params["tag"] = "remote1"
	res.AppendHeader(sip.NewHeader("Contact", "<sip:bob@198.51.100.7:5062>"))

	bye := b.Bye(invite, res)

	if bye.Recipient.Host != "198.51.100.7" {
		t.Errorf("target host = %q, want peer contact", bye.Recipient.Host)
	}
	if got := bye.To().Params["tag"]; got != "remote1" {
		t.Errorf("To tag = %q, want remote1", got)
	}
	if got, want := bye.CSeq().SeqNo, invite.CSeq().SeqNo+1; got != want {
		t.Errorf("CSeq = %d, want %d", got, want)
	}
}

func TestBuilderMessageBody(t *testing.T) {
	t.Parallel()

	b := newTestBuilder()
	req, err := b.Message(MessageParams{
		Target:  "bob@example.com",
		From:    "alice",
		Domain:  "example.com",
		Content: Body{ContentType: "text/plain", Content: []byte("hello")},
	})
	if err != nil {
		t.Fatalf("Message() err = %v", err)
	}

	if got := string(req.Body()); got != "hello" {
		t.Errorf("body = %q, want hello", got)
	}
	if hdr := req.GetHeader("Content-Type"); hdr == nil || hdr.Value() != "text/plain" {
		t.Errorf("Content-Type = %v, want text/plain", hdr)
	}
	if hdr := req.GetHeader("Content-Length"); hdr == nil || hdr.Value() != "5" {
		t.Errorf("Content-Length = %v, want 5", hdr)
	}
}

func TestNewCallIDUnique(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for range 100 {
		id := NewCallID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
	if tag := newTag(); len(tag) != 16 || strings.Contains(tag, "-") {
		t.Errorf("newTag() = %q, want 16 chars without dashes", tag)
	}
}
