/*
Package events defines the pool engine's injected event sink.

The engine never logs directly (§9's "Global logger" design note): every
long-running operation — detection, repair, integrity checking,
rebalancing — reports progress by calling Sink.Emit with a structured
Event. Callers plug in whatever they want: NoopSink for silence, a Broker
for in-process pub/sub, or an adapter onto a real logger such as
log.NewZerologSink.
*/
package events
