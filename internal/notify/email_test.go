package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/jadpai-enrollment/internal/config"
	"github.com/iliyamo/jadpai-enrollment/internal/queue"
)

type captured struct {
	from string
	to   []string
	msg  string
	err  error
}

func (c *captured) Send(from string, to []string, msg []byte) error {
	c.from, c.to, c.msg = from, to, string(msg)
	return c.err
}

func TestRender_Confirmed(t *testing.T) {
	msg, ok, err := Render(queue.StatusChangedEvent{Recipient: "a@x.com", Name: "Ana", EventName: "Hike", Status: "confirmed"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a@x.com", msg.To)
	assert.Equal(t, "Your Enrollment is Confirmed for Hike!", msg.Subject)
	assert.Contains(t, msg.HTML, "Hi Ana,")
	assert.Contains(t, msg.HTML, "<strong>Hike</strong>")
}

func TestRender_RejectedEscapesHTML(t *testing.T) {
	msg, ok, err := Render(queue.StatusChangedEvent{Recipient: "a@x.com", Name: "<script>", EventName: "A & B", Status: "rejected"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Update on Your Enrollment for A & B", msg.Subject)
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
	assert.Contains(t, msg.HTML, "A &amp; B")
}

func TestRender_PendingIsSkipped(t *testing.T) {
	_, ok, err := Render(queue.StatusChangedEvent{Status: "pending"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMailer_Handle(t *testing.T) {
	c := &captured{}
	m := NewMailerWithSender(`"JadPai" <events@x.com>`, c, nil)

	err := m.Handle(context.Background(), queue.StatusChangedEvent{
		EnrollmentID: 1, Recipient: "a@x.com", Name: "Ana", EventName: "Hike", Status: "confirmed",
	})
	require.NoError(t, err)
	assert.Equal(t, "events@x.com", c.from)
	assert.Equal(t, []string{"a@x.com"}, c.to)
	assert.Contains(t, c.msg, "From: \"JadPai\" <events@x.com>\r\n")
	assert.Contains(t, c.msg, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, c.msg, "Great news!")
}

func TestMailer_HandleSkipsAndFails(t *testing.T) {
	c := &captured{err: errors.New("535 auth failed")}
	m := NewMailerWithSender("events@x.com", c, nil)

	require.NoError(t, m.Handle(context.Background(), queue.StatusChangedEvent{Status: "pending", Recipient: "a@x.com"}))
	assert.Empty(t, c.msg)

	err := m.Handle(context.Background(), queue.StatusChangedEvent{Status: "rejected", Recipient: "a@x.com"})
	assert.ErrorIs(t, err, c.err)

	err = m.Handle(context.Background(), queue.StatusChangedEvent{Status: "rejected"})
	assert.Error(t, err)
}

func TestSenderAddress(t *testing.T) {
	assert.Equal(t, `"JadPai" <me@gmail.com>`, senderAddress(config.SMTPConfig{User: "me@gmail.com"}))
	assert.Equal(t, "ops@x.com", senderAddress(config.SMTPConfig{User: "me@gmail.com", From: "ops@x.com"}))
}

func TestMailer_Throttle(t *testing.T) {
	c := &captured{}
	m := NewMailerWithSender("events@x.com", c, nil).Throttle(60)
	ev := queue.StatusChangedEvent{Status: "confirmed", Recipient: "a@x.com", EventName: "Hike"}

	require.NoError(t, m.Handle(context.Background(), ev))
	assert.NotEmpty(t, c.msg)

	// The only token is spent; the next send would wait a second.
	c.msg = ""
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, m.Handle(ctx, ev))
	assert.Empty(t, c.msg)

	assert.Nil(t, m.Throttle(0).limiter)
}
