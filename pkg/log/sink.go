package log

import "github.com/cuemby/poolfs/pkg/events"

// ZerologSink adapts the ambient zerolog logger onto events.Sink, so
// cmd/poolctl can wire ordinary structured logging into engine
// operations without the engine package importing zerolog or pkg/log
// directly (§9's "Global logger" design note).
type ZerologSink struct {
	component string
}

// NewZerologSink returns a Sink that logs every event through
// log.WithComponent(component).
func NewZerologSink(component string) ZerologSink {
	return ZerologSink{component: component}
}

func (s ZerologSink) Emit(e events.Event) {
	logger := WithComponent(s.component)
	evt := logger.Info()
	if e.PoolID != "" {
		evt = evt.Str("pool_id", e.PoolID)
	}
	for k, v := range e.Metadata {
		evt = evt.Str(k, v)
	}
	evt.Str("kind", string(e.Kind)).Msg(e.Message)
}
