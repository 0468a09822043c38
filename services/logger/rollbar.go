package logsvc

import (
	"github.com/rollbar/rollbar-go"
	rollbarerrs "github.com/rollbar/rollbar-go/errors"

	"github.com/mwanzohq/mwanzo/core"
	"github.com/mwanzohq/mwanzo/core/account"
)

// RollbarLogger wraps another Logger and mirrors warnings and errors to
// Rollbar. Local output always goes through the wrapped logger.
type RollbarLogger struct {
	inner core.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(inner core.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(rollbarerrs.StackTracer)
	return &RollbarLogger{inner: inner}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
	l.inner.Enable(enabled)
}

// prepare picks an acting account out of args, if any, and attaches it
// to the Rollbar report.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		if usr, ok := arg.(account.User); ok {
			if !usrSet { // only set one User
				rollbar.SetPerson(usr.ID, usr.FullName(), usr.Email)
				usrSet = true
			}
			continue
		}
		newArgs = append(newArgs, arg)
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.inner.Debug(msg, args...)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.inner.Info(msg, args...)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.inner.Warn(msg, args...)
}

func (l RollbarLogger) Error(msg string, err error, args ...interface{}) {
	rbArgs := l.prepare(msg, args)
	if err != nil {
		rbArgs = append(rbArgs, err)
	}
	rollbar.Error(rbArgs...)
	l.inner.Error(msg, err, args...)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.inner.Fatal(msg, args...)
}
