package logging

import (
	"go.uber.org/zap"
)

// L is the process-wide logger. It defaults to a no-op so packages can
// log during tests without calling Init.
var L = zap.NewNop().Sugar()

func Init() error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	L = logger.Sugar()
	return nil
}

func Sync() {
	_ = L.Sync()
}
