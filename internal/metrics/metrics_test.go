package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/duet/internal/ir"
)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector("test")

	c.RecordMessage(ir.RealmA, DirectionOut, ir.KindPropertySet)
	c.RecordMessage(ir.RealmA, DirectionOut, ir.KindPropertySet)
	c.RecordMessage(ir.RealmB, DirectionIn, ir.KindEventBatch)
	c.RecordValidationFailure(ir.RealmB)
	c.RecordFlush(ir.RealmA, 2)
	c.RecordFlush(ir.RealmA, 1)
	c.RecordInstances(ir.RealmA, 1)
	c.RecordInstances(ir.RealmA, 1)
	c.RecordInstances(ir.RealmA, -1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.syncMessages.WithLabelValues("a", "out", "property_set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.syncMessages.WithLabelValues("b", "in", "event_batch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.validationFailures.WithLabelValues("b")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.flushBatches.WithLabelValues("a")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.eventPayloads.WithLabelValues("a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.instances.WithLabelValues("a")))
}

func TestCollector_Hops(t *testing.T) {
	c := NewCollector("")

	c.RecordHops(ir.RealmA, 0)
	c.RecordHops(ir.RealmA, 2)
	c.RecordHopWarning(ir.RealmA)

	assert.Equal(t, 1, testutil.CollectAndCount(c.syncHops))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.hopWarnings.WithLabelValues("a")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.RecordMessage(ir.RealmA, DirectionOut, ir.KindPropertySet)
	c.RecordValidationFailure(ir.RealmA)
	c.RecordFlush(ir.RealmA, 1)
	c.RecordHandlerFailure(ir.RealmA)
	c.RecordHops(ir.RealmA, 1)
	c.RecordHopWarning(ir.RealmA)
	c.RecordInstances(ir.RealmA, 1)
}

func TestCollector_WriteSummary(t *testing.T) {
	c := NewCollector("duet")
	c.RecordMessage(ir.RealmB, DirectionOut, ir.KindEventBatch)
	c.RecordHops(ir.RealmB, 1)

	var buf bytes.Buffer
	require.NoError(t, c.WriteSummary(&buf))
	out := buf.String()

	assert.Contains(t, out, `duet_sync_messages_total{direction="out",kind="event_batch",realm="b"} 1`)
	assert.Contains(t, out, `duet_sync_hops{realm="b"} count=1 sum=1`)

	n, err := testutil.GatherAndCount(c.Registry(), "duet_sync_messages_total", "duet_sync_hops")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
