// Package repo contains the DuelRepository implementations.
//
// PostgresRepository is the production store. Every state transition runs
// in one transaction that locks the duel row with SELECT ... FOR UPDATE,
// calls the supplied domain closure and writes the result back, so the
// status and turn checks made inside the closure cannot race.
//
// MemoryRepository keeps the same contract behind a mutex. It backs
// APP_STORE=memory and the usecase and handler tests.
package repo
