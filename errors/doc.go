// Package errors provides the error taxonomy shared by every livebridge package.
//
// # Classification
//
// Every error falls into one of three classes:
//
//   - Transient: the operation may succeed later (no source yet, connection lost)
//   - Invalid: the caller passed bad data (null argument, count mismatch)
//   - Fatal: the caller misused the API (mixing update modes on one object)
//
// Classification follows errors.Is chains, so wrapped sentinels keep their class.
//
// # Bridge taxonomy
//
// The bridge's own failures map onto four categories:
//
//	contract    ErrInvalidArgument        null or malformed boundary argument
//	state       ErrNotInitialized         update or registration before Initialize
//	data        ErrPropertyCountMismatch  values do not match the registered schema
//	            ErrSchemaMismatch         names or registration conflict
//	API misuse  ErrModeMismatch           object switched update families
//
// None of these cross the foreign-function boundary as panics. The registry
// logs and counts data errors and returns nothing, while the Go API surfaces
// them as returned errors for callers that want them.
//
// # Wrapping
//
// All wrapping follows one format:
//
//	"component.method: action failed: %w"
//
//	errors.Wrap(err, "Registry", "Initialize", "establish source")
//	errors.WrapTransient(err, "NATSSource", "Publish", "publish frame")
//	errors.WrapInvalid(err, "Loader", "Load", "parse config")
//	errors.WrapFatal(err, "Server", "Start", "listen")
package errors
