package msgboard

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validValues() FieldValues {
	return FieldValues{
		"recipient_class": "user",
		"recipient_key":   "42",
		"sender":          "7",
		"message":         "{}",
	}
}

func waitPending(t *testing.T, p *Pending) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := p.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "request did not resolve")
	return err
}

func TestComposer_Spec(t *testing.T) {
	c := NewMessageComposer(newFakeChannel(), &fakeNotifier{}, "7", testLogger())

	spec := c.Spec()

	require.Len(t, spec.Fields, 4)
	require.NotNil(t, spec.Callback)

	class, _ := spec.Field("recipient_class")
	assert.Equal(t, "user", class.Value)
	assert.Equal(t, ValidateNonEmpty, class.Validation)

	key, _ := spec.Field("recipient_key")
	assert.Nil(t, key.Value)
	assert.Equal(t, ValidateNumber, key.Validation)

	sender, _ := spec.Field("sender")
	assert.Equal(t, "7", sender.Value)
	assert.Equal(t, "From", sender.Title)

	msg, _ := spec.Field("message")
	assert.Equal(t, map[string]any{}, msg.Value)
	assert.Equal(t, 200, msg.Height)
}

func TestComposer_Spec_NoAccount(t *testing.T) {
	c := NewMessageComposer(newFakeChannel(), &fakeNotifier{}, "", testLogger())

	sender, _ := c.Spec().Field("sender")
	assert.Nil(t, sender.Value)
}

func TestComposer_Submit_InvalidJSON(t *testing.T) {
	ch := newFakeChannel()
	n := &fakeNotifier{}
	c := NewMessageComposer(ch, n, "7", testLogger())

	values := validValues()
	values["message"] = "{not valid json"

	p, err := c.Submit(context.Background(), values)

	assert.Nil(t, p)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "err = %v, want *ValidationError", err)
	assert.Equal(t, "message", verr.Field)

	assert.Empty(t, ch.sent(), "nothing must be sent")
	successes, errs := n.snapshot()
	assert.Empty(t, successes)
	require.Len(t, errs, 1)
	assert.True(t, strings.HasPrefix(errs[0], "invalid message: "), errs[0])
}

func TestComposer_Submit_EmptyMessageIsInvalid(t *testing.T) {
	ch := newFakeChannel()
	n := &fakeNotifier{}
	c := NewMessageComposer(ch, n, "", testLogger())

	values := validValues()
	values["message"] = ""

	_, err := c.Submit(context.Background(), values)

	require.Error(t, err)
	assert.Empty(t, ch.sent())
}

func TestComposer_Submit_SendsExactPayload(t *testing.T) {
	ch := newFakeChannel()
	n := &fakeNotifier{}
	c := NewMessageComposer(ch, n, "7", testLogger())

	p, err := c.Submit(context.Background(), validValues())
	require.NoError(t, err)
	require.NoError(t, waitPending(t, p))

	sent := ch.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "send_message", sent[0].method)
	assert.Equal(t, OutboundMessage{
		RecipientClass: "user",
		RecipientKey:   "42",
		Sender:         "7",
		Message:        "{}",
	}, sent[0].sentValue)

	raw, err := json.Marshal(sent[0].params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"recipient_class":"user","recipient_key":"42","sender":"7","message":"{}"}`, string(raw))

	successes, errs := n.snapshot()
	assert.Equal(t, []string{"Message sent!"}, successes)
	assert.Empty(t, errs)
}

func TestComposer_Submit_MessageTextIsSentVerbatim(t *testing.T) {
	ch := newFakeChannel()
	c := NewMessageComposer(ch, &fakeNotifier{}, "", testLogger())

	values := validValues()
	values["message"] = "{ \"text\" : \"hi\",\n \"n\": 1 }"

	p, err := c.Submit(context.Background(), values)
	require.NoError(t, err)
	require.NoError(t, waitPending(t, p))

	assert.Equal(t, values["message"], ch.sent()[0].sentValue.Message)
}

func TestComposer_Submit_RemoteFailure(t *testing.T) {
	ch := newFakeChannel()
	ch.respond = func(string, any) (json.RawMessage, error) {
		return nil, &remoteError{code: 404, msg: "not found"}
	}
	n := &fakeNotifier{}
	c := NewMessageComposer(ch, n, "7", testLogger())

	p, err := c.Submit(context.Background(), validValues())
	require.NoError(t, err, "remote failures are not validation failures")

	var coded CodedError
	require.True(t, errors.As(waitPending(t, p), &coded))
	assert.Equal(t, 404, coded.Code())
	assert.Equal(t, 404, p.Err().(CodedError).Code())

	successes, errs := n.snapshot()
	assert.Empty(t, successes)
	assert.Equal(t, []string{"Error 404: not found"}, errs)
}

func TestComposer_Submit_TransportFailure(t *testing.T) {
	ch := newFakeChannel()
	ch.respond = func(string, any) (json.RawMessage, error) { return nil, errBoom }
	n := &fakeNotifier{}
	c := NewMessageComposer(ch, n, "7", testLogger())

	p, err := c.Submit(context.Background(), validValues())
	require.NoError(t, err)
	assert.ErrorIs(t, waitPending(t, p), errBoom)

	_, errs := n.snapshot()
	assert.Equal(t, []string{"Error: boom"}, errs)
}

func TestComposer_Submit_OutlivesCallerContext(t *testing.T) {
	release := make(chan struct{})
	ch := newFakeChannel()
	ch.respond = func(string, any) (json.RawMessage, error) {
		<-release
		return json.RawMessage(`"ok"`), nil
	}
	c := NewMessageComposer(ch, &fakeNotifier{}, "7", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	p, err := c.Submit(ctx, validValues())
	require.NoError(t, err)
	cancel()
	close(release)

	require.NoError(t, waitPending(t, p))
	assert.True(t, ch.sent()[0].ctxAlive)
}

func TestComposer_Submit_Independent(t *testing.T) {
	ch := newFakeChannel()
	n := &fakeNotifier{}
	c := NewMessageComposer(ch, n, "7", testLogger())

	for i := 0; i < 3; i++ {
		_, err := c.Submit(context.Background(), validValues())
		require.NoError(t, err)
	}
	c.Wait()

	assert.Len(t, ch.sent(), 3)
	successes, _ := n.snapshot()
	assert.Len(t, successes, 3)
}

func TestComposer_Callback(t *testing.T) {
	ch := newFakeChannel()
	c := NewMessageComposer(ch, &fakeNotifier{}, "7", testLogger())
	cb := c.Callback()

	bad := validValues()
	bad["message"] = "[1,"
	v := cb(context.Background(), bad)
	assert.False(t, v.Accepted)
	var verr *ValidationError
	assert.True(t, errors.As(v.Reason, &verr))

	v = cb(context.Background(), validValues())
	assert.True(t, v.Accepted)
	c.Wait()
	assert.Len(t, ch.sent(), 1)
}

func TestPending_ErrBeforeDone(t *testing.T) {
	p := newPending()
	assert.NoError(t, p.Err())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.Canceled)

	p.finish(errBoom)
	assert.ErrorIs(t, p.Err(), errBoom)
}
