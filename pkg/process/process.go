// Package process holds the post-capture processing step. It is a pluggable
// collaborator invoked with the path of every successfully captured photo.
package process

import (
	"go.uber.org/zap"

	"hq-shutter-pi/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

// Processor transforms a captured photo and returns the path of the result.
type Processor interface {
	Apply(path string) (string, error)
}

// Passthrough returns the input unchanged. Grain, filters and other effects
// would slot in here as real Processor implementations.
type Passthrough struct{}

func (Passthrough) Apply(path string) (string, error) {
	logger.Debugf("post-processing pass-through: %s", path)
	return path, nil
}
