// Package services holds the failure taxonomy and context plumbing shared by
// every collaborator client and pipeline stage. Errors cross package
// boundaries wrapped with a sentinel marker so the pipelines can classify a
// failure (retryable, operator-required, terminal) without knowing which
// collaborator produced it.
package services
