// Package voicelive bridges a browser client to the Azure VoiceLive realtime
// voice API with avatar video rendering. It owns the per-connection session
// state machine, translates realtime service events into client-facing events,
// and injects retrieved knowledge-base context without blocking the realtime
// event loop.
package voicelive
