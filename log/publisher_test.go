package log_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/helmschema/log"
)

func TestPublisherFanOut(t *testing.T) {
	t.Parallel()

	pub := log.NewPublisher()

	subA := pub.Subscribe()
	subB := pub.Subscribe()

	n, err := pub.Write([]byte("warning-1"))
	require.NoError(t, err)
	assert.Equal(t, len("warning-1"), n)

	assert.Equal(t, "warning-1", string(<-subA.C()))
	assert.Equal(t, "warning-1", string(<-subB.C()))
}

func TestPublisherDropsOldestWhenFull(t *testing.T) {
	t.Parallel()

	pub := log.NewPublisher()
	sub := pub.Subscribe()

	// Overfill well past the buffer; Write must never block.
	for i := range 200 {
		_, err := pub.Write([]byte{byte(i)})
		require.NoError(t, err)
	}

	require.NoError(t, pub.Close())

	var got [][]byte
	for entry := range sub.C() {
		got = append(got, entry)
	}

	require.NotEmpty(t, got)
	assert.Less(t, len(got), 200)

	// The newest entry survives.
	assert.Equal(t, byte(199), got[len(got)-1][0])
}

func TestPublisherCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	pub := log.NewPublisher()
	sub := pub.Subscribe()

	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close())

	_, open := <-sub.C()
	assert.False(t, open)

	// Writes after close are discarded without error.
	_, err := pub.Write([]byte("late"))
	require.NoError(t, err)

	// Subscribing after close yields an already-closed channel.
	late := pub.Subscribe()
	_, open = <-late.C()
	assert.False(t, open)
}

func TestPublisherAsSlogSink(t *testing.T) {
	t.Parallel()

	pub := log.NewPublisher()
	sub := pub.Subscribe()

	handler := log.NewHandler(pub, slog.LevelWarn, log.FormatText)
	slog.New(handler).Warn("resource schema unavailable", slog.String("kind", "Relic"))

	require.NoError(t, pub.Close())

	var all []byte
	for entry := range sub.C() {
		all = append(all, entry...)
	}

	assert.Contains(t, string(all), "resource schema unavailable")
	assert.Contains(t, string(all), "kind=Relic")
}
