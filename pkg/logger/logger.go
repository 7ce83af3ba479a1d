package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log   *zap.Logger
	Sugar *zap.SugaredLogger
)

// Init initializes the global logger. The level is read from LOG_LEVEL
// (debug, info, warn, error) and defaults to info.
func Init() {
	level := zapcore.InfoLevel
	if l, err := zapcore.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		level = l
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	Log = zap.New(core, zap.AddCaller())
	Sugar = Log.Sugar()
}
