// Package provider publishes subject state from the bridge to the outside
// world.
//
// A Source is created lazily by the registry the first time a subject is
// registered after Initialize, and closed on Shutdown. Every Source carries a
// fresh source ID so consumers can tell one bridge session from the next.
//
// Two implementations are provided:
//
//   - NATSSource publishes JSON envelopes on NATS core subjects and, when a
//     bucket is configured, mirrors static data into a JetStream KV bucket so
//     late subscribers can recover schemas.
//   - Recorder keeps envelopes in memory. The registry tests and the
//     simulator's dry-run mode use it.
//
// Subject layout:
//
//	<prefix>.<provider>.static.<kind>.<token>
//	<prefix>.<provider>.frame.<kind>.<token>
//	<prefix>.<provider>.removed.<kind>.<token>
//	<prefix>.<provider>.source
//
// where token is subject.Token(name).
package provider
