package gophone

import (
	"context"
	"log/slog"

	"braces.dev/errtrace"
	"github.com/emiago/sipgo/sip"

	"github.com/ghettovoice/gophone/stack"
)

// ContentTypeText is the payload type of plain instant messages.
const ContentTypeText = "text/plain"

// startMessage emits the MESSAGE transaction of a [JobMessage]. The job
// carries no state machine: its only remaining step is the final
// response or the timeout.
func (c *Client) startMessage(ctx context.Context, j *Job, target, text string) error {
	tx, err := c.stk.Message(ctx, stack.MessageParams{
		Target:  target,
		From:    c.cfg.Username,
		Domain:  c.cfg.Domain,
		CallID:  j.id,
		Content: stack.Body{ContentType: ContentTypeText, Content: []byte(text)},
	})
	if err != nil {
		return errtrace.Wrap(err)
	}
	j.tx = tx
	return nil
}

// onMessageResponse completes a message job on its final response.
func (c *Client) onMessageResponse(ctx context.Context, j *Job, res *sip.Response) {
	status := int(res.StatusCode)
	switch {
	case status < 200:
		return
	case stack.IsChallenge(res):
		if err := c.actAuthorize(ctx, j, res); err != nil {
			c.finishMessage(ctx, j, CodeMessageForbidden, "message authentication failed")
		}
	case status < 300:
		c.finishMessage(ctx, j, CodeOK, "message delivered")
	default:
		code, text := messageStatusCode(status)
		c.finishMessage(ctx, j, code, text)
	}
}

// onMessageTimeout completes a message job whose transaction expired.
func (c *Client) onMessageTimeout(ctx context.Context, j *Job) {
	c.finishMessage(ctx, j, CodeMessageTimeout, "message timed out")
}

func (c *Client) finishMessage(ctx context.Context, j *Job, code Code, text string) {
	if j.done {
		return
	}
	j.done = true

	c.cb.message(Result{ID: j.id, Status: c.mon.Current(), Code: code, Text: text})
	c.reg.Remove(j.id)
	c.metrics.jobDone(JobMessage, code == CodeOK)

	c.log.LogAttrs(ctx, slog.LevelDebug, "message finished",
		slog.Any("job", j), slog.String("code", code.String()))
}

// onIncomingMessage answers an inbound MESSAGE and hands the payload to
// the application.
func (c *Client) onIncomingMessage(ctx context.Context, req *sip.Request, tx stack.ServerTransaction) {
	if _, err := c.stk.Respond(tx, req, 200, "OK", stack.Body{}); err != nil {
		c.log.Warn("message response failed", slog.Any("error", err))
	}

	id := ""
	if cid := req.CallID(); cid != nil {
		id = cid.Value()
	}
	from := ""
	if f := req.From(); f != nil {
		from = f.Address.String()
	}
	contentType := ContentTypeText
	if h := req.GetHeader("Content-Type"); h != nil {
		contentType = h.Value()
	}

	c.cb.incomingMessage(MessageEvent{
		ID:   id,
		From: from,
		Content: stack.Body{
			ContentType: contentType,
			Content:     req.Body(),
		},
	})
	c.log.LogAttrs(ctx, slog.LevelDebug, "incoming message",
		slog.String("from", from), slog.String("call_id", id))
}
