package logsvc

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mwanzohq/mwanzo/core"
)

type ZapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

var _ core.Logger = (*ZapLogger)(nil)

// NewZapLogger builds the app logger: human-readable in development,
// JSON in deployed environments.
func NewZapLogger(conf *core.Config) (*ZapLogger, error) {
	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	if conf.Debug {
		lvl = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	var cfg zap.Config
	if strings.ToLower(conf.Env) == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]interface{}{"app": conf.AppName, "build": conf.Build}

	base, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: base.Sugar(), level: lvl}, nil
}

func (l *ZapLogger) Enable(enabled bool) {
	if enabled {
		l.level.SetLevel(zap.DebugLevel)
	} else {
		l.level.SetLevel(zapcore.FatalLevel + 1)
	}
}

func (l *ZapLogger) Sync() { _ = l.sugar.Sync() }

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.sugar.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.sugar.Warnw(msg, args...) }

func (l *ZapLogger) Error(msg string, err error, args ...interface{}) {
	if err != nil {
		args = append(args, "error", err)
	}
	l.sugar.Errorw(msg, args...)
}

func (l *ZapLogger) Fatal(msg string, args ...interface{}) {
	l.sugar.Fatalw(msg, args...)
}
