package job

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to      []string
	subject string
}

type fakeMailer struct {
	sent   []sentMail
	failTo string
}

func (m *fakeMailer) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 1 && to[0] == m.failTo {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return nil
}

func TestNotificationConsumer_SendsOneMailPerRecipient(t *testing.T) {
	mailer := &fakeMailer{failTo: "bad@example.com"}
	c := NewNotificationConsumer(mailer)

	sent := c.handleMessage(context.Background(), &sarama.ConsumerMessage{
		Key:   []byte("announcement:1"),
		Value: []byte(`{"to":["a@example.com","bad@example.com","b@example.com"],"subject":"Water cut","body":"Sunday"}`),
	})

	assert.Equal(t, 2, sent)
	require.Len(t, mailer.sent, 2)
	assert.Equal(t, []string{"a@example.com"}, mailer.sent[0].to)
	assert.Equal(t, []string{"b@example.com"}, mailer.sent[1].to)
	assert.Equal(t, "Water cut", mailer.sent[0].subject)
}

func TestNotificationConsumer_SkipsBadPayloads(t *testing.T) {
	mailer := &fakeMailer{}
	c := NewNotificationConsumer(mailer)

	assert.Equal(t, 0, c.handleMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte("not json")}))
	assert.Equal(t, 0, c.handleMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte(`{"to":[],"subject":"s"}`)}))
	assert.Empty(t, mailer.sent)
}

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string              { return "member" }
func (s *fakeSession) GenerationID() int32           { return 1 }
func (s *fakeSession) Commit()                       {}

func (s *fakeSession) MarkOffset(topic string, partition int32, offset int64, metadata string) {}

func (s *fakeSession) ResetOffset(topic string, partition int32, offset int64, metadata string) {}

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	s.marked = append(s.marked, msg.Offset)
}

func (s *fakeSession) Context() context.Context { return s.ctx }

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "society.notification" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func TestNotificationConsumer_ConsumeClaimMarksEveryMessage(t *testing.T) {
	mailer := &fakeMailer{}
	c := NewNotificationConsumer(mailer)

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 2)}
	claim.messages <- &sarama.ConsumerMessage{Offset: 7, Value: []byte("broken")}
	claim.messages <- &sarama.ConsumerMessage{Offset: 8, Value: []byte(`{"to":["a@example.com"],"subject":"s","body":"b"}`)}
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, c.ConsumeClaim(session, claim))

	assert.Equal(t, []int64{7, 8}, session.marked)
	assert.Len(t, mailer.sent, 1)
}
