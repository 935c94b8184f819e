package stage

import (
	"context"

	"storyreel/internal/store"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *store.Story) error
	Execute(context.Context, *store.Story) error
	HealthCheck(context.Context) Health
}
