package logfields

import "go.uber.org/zap"

func Event(val string) zap.Field {
	return zap.String("event", val)
}

func DryRun(val bool) zap.Field {
	return zap.Bool("dry_run", val)
}
