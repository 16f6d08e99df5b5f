package mq

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducer_SendMessage(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"subject":"hi"}` {
			return errors.New("unexpected payload")
		}
		return nil
	})
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerFromSync(sp)
	require.NoError(t, p.SendMessage("society.notification", "k1", `{"subject":"hi"}`))
	assert.ErrorIs(t, p.SendMessage("society.notification", "k2", "x"), sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestNewProducerConfig(t *testing.T) {
	cfg := newProducerConfig()
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Return.Successes)
}
