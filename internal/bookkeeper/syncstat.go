package bookkeeper

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

type syncStat struct {
	StartTime time.Time
	EndTime   time.Time
	Seen      uint
	Filtered  uint
	Skipped   uint
	InSync    uint
	Actions   uint
	Failures  uint
}

func (s *syncStat) LogFields() []zap.Field {
	return []zap.Field{
		zap.Duration("sync_duration", s.EndTime.Sub(s.StartTime)),
		zap.Uint("pr_sync.seen", s.Seen),
		zap.Uint("pr_sync.filtered", s.Filtered),
		zap.Uint("pr_sync.skipped", s.Skipped),
		zap.Uint("pr_sync.in_sync", s.InSync),
		zap.Uint("pr_sync.actions", s.Actions),
		zap.Uint("pr_sync.failures", s.Failures),
	}
}

func fmtProgress(i, total int) string {
	return fmt.Sprintf("%d/%d", i, total)
}
