package session

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clusterpb "github.com/9triver/clusterrpc/internal/proto/cluster"
)

func TestLogDroppedRelays_TellAfterStop(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	f := newFixture(t)
	unsubscribe := LogDroppedRelays(f.system)
	defer unsubscribe()

	h := f.spawn()
	require.NoError(t, h.Stop())
	h.Tell(clusterpb.NewPayload("rule", []byte("late")))

	assert.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.WarnLevel && e.Message == "Relay dropped, session closed" {
				return e.Data["kind"] == "rule"
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestLogDroppedRelays_RequestIsNotLogged(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	f := newFixture(t)
	unsubscribe := LogDroppedRelays(f.system)
	defer unsubscribe()

	h := f.spawn()
	require.NoError(t, h.Stop())
	err := h.Relay(context.Background(), clusterpb.NewPayload("rule", nil))
	assert.ErrorIs(t, err, ErrSessionClosed)

	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, "Relay dropped, session closed", e.Message)
	}
}
