package stage

import (
	"fmt"
	"os"
	"strings"

	"storyreel/internal/services"
)

// ReadArtifact loads a prior stage's output file. On a missing or empty file
// it returns a services.ErrInvalidInput suitable for stage Execute methods,
// since a stage should never run ahead of its inputs.
func ReadArtifact(operation, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(
			services.ErrInvalidInput, "stage", operation,
			"required artifact path is empty; rerun the earlier stage", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(
			services.ErrInvalidInput, "stage", operation,
			fmt.Sprintf("required artifact %s is unreadable; rerun the earlier stage", path), err)
	}
	if len(data) == 0 {
		return nil, services.Wrap(
			services.ErrInvalidInput, "stage", operation,
			fmt.Sprintf("required artifact %s is empty; rerun the earlier stage", path), nil)
	}
	return data, nil
}
