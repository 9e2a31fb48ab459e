// Package input provides the dataset input modules.
// Input modules produce the immutable tables every view and section reads from.
package input

import (
	"context"

	"github.com/TheUndivideProject/Prototype-1/internal/table"
)

// Module represents an input module that produces a table from a source.
type Module interface {
	// Load returns the source table. The context can cancel a long parse.
	Load(ctx context.Context) (*table.Table, error)
}
