// Package postgres provides PostgreSQL implementations of the store
// interfaces. All stores operate through store.DBTX so they work with both
// *sql.DB and *sql.Tx.
package postgres
