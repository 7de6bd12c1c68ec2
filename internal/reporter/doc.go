// Package reporter renders a completed results store as a JUnit XML
// document, the format CI systems consume. It reads a *store.Store only
// through GetContext and the Results scan cursor, never querying the
// database directly.
package reporter
