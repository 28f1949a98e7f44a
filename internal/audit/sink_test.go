package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgate/internal/gateway"
	"netgate/internal/logger"
)

type failingSink struct {
	calls int
}

func (s *failingSink) Record(ctx context.Context, decision gateway.Decision) error {
	s.calls++
	return fmt.Errorf("sink unavailable")
}

func TestCompositeFansOut(t *testing.T) {
	memoryA := NewMemoryStore(10)
	memoryB := NewMemoryStore(10)

	c := NewComposite(logger.NopLogger())
	c.Add("a", memoryA)
	c.Add("b", memoryB)

	require.NoError(t, c.Record(context.Background(), gateway.Decision{ID: "d1"}))

	gotA, _ := memoryA.Recent(context.Background(), 10)
	gotB, _ := memoryB.Recent(context.Background(), 10)
	assert.Len(t, gotA, 1)
	assert.Len(t, gotB, 1)
}

func TestCompositeSwallowsSinkFailures(t *testing.T) {
	failing := &failingSink{}
	memory := NewMemoryStore(10)

	c := NewComposite(logger.NopLogger())
	c.Add("failing", failing)
	c.Add("memory", memory)

	err := c.Record(context.Background(), gateway.Decision{ID: "d1"})
	require.NoError(t, err, "a sink failure must not surface")

	assert.Equal(t, 1, failing.calls)
	got, _ := memory.Recent(context.Background(), 10)
	assert.Len(t, got, 1, "remaining sinks still receive the decision")
}

func TestCompositeIgnoresNilSink(t *testing.T) {
	c := NewComposite(logger.NopLogger())
	c.Add("nil", nil)
	require.NoError(t, c.Record(context.Background(), gateway.Decision{ID: "d1"}))
}

func TestLogSink(t *testing.T) {
	s := NewLogSink(logger.NopLogger())
	require.NoError(t, s.Record(context.Background(), gateway.Decision{ID: "d1"}))
}
