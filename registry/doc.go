// Package registry tracks the named subjects streamed by one bridge process
// and owns its connection lifecycle.
//
// A Registry moves through three states:
//
//	NotInitialized --Initialize--> NotConnected --first registration--> Connected
//	      ^                                                                 |
//	      +----------------------------- Shutdown --------------------------+
//
// Every operation runs under a single mutex. The only I/O performed under it
// is the one-time process bootstrap (see Bootstrap) and the lazy creation of
// the publishing source; frames are handed to the source without waiting on
// the network.
//
// Subjects are keyed by kind and interned name. A subject's schema is fixed
// when it is registered, explicitly or by its first update
// (auto-registration). Updates whose values do not fit the schema are
// rejected, counted and reported through the event hook, and leave the
// subject unchanged.
//
// Basic usage:
//
//	reg := registry.New(
//	    registry.WithFactory(provider.NewNATSFactory(client)),
//	    registry.WithLogger(logger),
//	)
//	if err := reg.Initialize("sim"); err != nil { ... }
//	defer reg.Shutdown()
//
//	name := reg.InternName("Forklift_01")
//	reg.RegisterTransformSubject(name)
//	reg.UpdateTransformSubject(name, tr)
package registry
