package logx

import "github.com/robfig/cron/v3"

type cronLogger struct{}

// CronLogger routes the scheduler's own messages through logx. Its info
// messages fire on every tick, so they are logged at debug level.
func CronLogger() cron.Logger { return cronLogger{} }

func (cronLogger) Info(msg string, keysAndValues ...any) {
	Debugf("cron: %s %s", msg, kv(keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	Errorf("cron: %s: %v %s", msg, err, kv(keysAndValues))
}
