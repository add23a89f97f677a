package camera

import (
	"go.uber.org/zap"

	"hq-shutter-pi/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}
