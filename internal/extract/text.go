package extract

import (
	"context"
	"fmt"
	"os"
)

// FileText is a TextFunc that returns the whole file as text, regardless of
// field. It serves plain-text documents and tests; production deployments
// plug in a layout-aware engine instead.
func FileText(_ context.Context, path, _ string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	return string(data), nil
}
