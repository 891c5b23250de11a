package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/cadence/internal/logging"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		user   string
		want   string
	}{
		{"default prefix", "", "u-1", "cadence.u-1.day.completed"},
		{"custom prefix", "fit", "u-1", "fit.u-1.day.completed"},
		{"dots in user id", "", "a.b", "cadence.a_b.day.completed"},
		{"wildcards in user id", "", "*>", "cadence.__.day.completed"},
		{"empty user id", "", "", "cadence._.day.completed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(DayCompleted, tt.user, "p-1")
			assert.Equal(t, tt.want, Subject(tt.prefix, e))
		})
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	server := startTestNATSServer(t)

	sub, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 4)
	_, err = sub.ChanSubscribe("cadence.u-1.>", msgs)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	pub, err := Connect(server.ClientURL())
	require.NoError(t, err)
	defer pub.Close()
	assert.Equal(t, "CONNECTED", pub.Status())

	e := New(DayMissed, "u-1", "p-9", "2026-03-02")
	pub.Publish(context.Background(), e)

	select {
	case msg := <-msgs:
		assert.Equal(t, "cadence.u-1.day.missed", msg.Subject)
		var got Event
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, e.ID, got.ID)
		assert.Equal(t, "p-9", got.PlanID)
		assert.Equal(t, []string{"2026-03-02"}, got.Dates)
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}
}

func TestNATSPublisher_ClosedConnectionIsLogged(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	nc.Close()

	logger := logging.NewTestLogger()
	pub := NewNATSPublisher(nc, WithLogger(logger.Logger))

	assert.NotPanics(t, func() {
		pub.Publish(context.Background(), New(PlanGenerated, "u-1", "p-1"))
	})
	logger.AssertLogged(t, zapcore.WarnLevel, "publish event failed")
	assert.Equal(t, "CLOSED", pub.Status())
	assert.NoError(t, pub.Close(), "borrowed connections are not drained")
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect("")
	assert.ErrorIs(t, err, ErrNoURL)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Publish(context.Background(), New(PlanGenerated, "u", "p"))
	r.Publish(context.Background(), New(DayEdited, "u", "p", "2026-01-01"))
	assert.Equal(t, []string{PlanGenerated, DayEdited}, r.Types())
	r.Reset()
	assert.Empty(t, r.Events())
	Noop{}.Publish(context.Background(), Event{})
}
