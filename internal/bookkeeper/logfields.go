package bookkeeper

import (
	"go.uber.org/zap"

	"github.com/simplesurance/prkeeper/internal/logfields"
)

var (
	logEventPassStarted  = logfields.Event("pass_started")
	logEventPassFinished = logfields.Event("pass_finished")
	logEventPRSkipped    = logfields.Event("pull_request_skipped")
	logEventPRInSync     = logfields.Event("pull_request_in_sync")
	logEventPROutOfSync  = logfields.Event("pull_request_out_of_sync")

	logReasonFiltered          = logFieldReason("filtered")
	logReasonMergeabilityUnset = logFieldReason("mergeability_unknown")
	logReasonMerged            = logFieldReason("merged")
)

func logFieldReason(reason string) zap.Field {
	return zap.String("reason", reason)
}

func logFieldProgress(i, total int) zap.Field {
	return zap.String("progress", fmtProgress(i, total))
}
