// Package history keeps an audit ledger of scan runs in SQLite: one row per
// run with its counts, plus one row per item the run added to the
// collection. Nothing here is read back to skip remote work; the ledger only
// answers "what did past runs do".
package history
