// Package core provides the business logic of the import pipeline.
//
// It holds all domain logic independent of transport and storage, so web
// handlers, the importctl CLI and tests use it unchanged.
//
// # Architecture
//
//   - Template registry: column schemas per entity type, registered at init
//     time with [Register], and downloadable templates via [GenerateTemplate].
//   - Parser: [ParseFile] turns CSV and XLSX uploads into [ParsedData];
//     [ValidateRow] and [ValidateParsed] produce row findings.
//   - Service: the job state machine (create, validate, execute, cancel)
//     over a [DataBackend], with a background runner per execution.
//
// # Job Lifecycle
//
//	queued → validating → validated → processing → completed
//
// Any non-terminal job may move to failed or cancelled. Every transition is
// a compare-and-set in the backend, so concurrent requests cannot move a job
// backwards; the loser receives a [KindConflict] error.
//
// Execution runs in a goroutine bounded by an [ExecutionLimiter]. It inserts
// valid rows in batches and completes the job in one backend transaction. A
// cancelled or failed run deletes everything it inserted.
//
// # Error Handling
//
// Service methods return [*ImportError] carrying an [ErrorKind] so the web
// layer can pick a status code. [MapError] turns any error into a
// [UserMessage] with a support code (IMP, FILE, VAL, DB, REQ).
package core
