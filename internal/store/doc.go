// Package store persists story records in SQLite and is the single source of
// truth for pipeline state. All status changes flow through UpdateStatus,
// which enforces the lifecycle ordering and the artifact invariant: an
// artifact path is recorded exactly when its stage has completed.
package store
