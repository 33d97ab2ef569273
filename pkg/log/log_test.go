package log

import (
	"bytes"
	"testing"

	"github.com/cuemby/poolfs/pkg/events"
	"github.com/stretchr/testify/assert"
)

func TestInitAndWithPoolID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	WithPoolID("pool-1").Info().Msg("hello")
	assert.Contains(t, buf.String(), `"pool_id":"pool-1"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestZerologSinkEmit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	sink := NewZerologSink("repair")
	sink.Emit(events.Event{Kind: events.KindRepairApplied, PoolID: "pool-9", Message: "a primary was promoted"})

	out := buf.String()
	assert.Contains(t, out, `"component":"repair"`)
	assert.Contains(t, out, `"pool_id":"pool-9"`)
	assert.Contains(t, out, "a primary was promoted")
}
