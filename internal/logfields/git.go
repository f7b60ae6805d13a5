package logfields

import "go.uber.org/zap"

func PullRequest(val int) zap.Field {
	return zap.Int("github.pull_request", val)
}

func Repository(val string) zap.Field {
	return zap.String("git.repository", val)
}

func RepositoryOwner(val string) zap.Field {
	return zap.String("github.repository_owner", val)
}

func Label(val string) zap.Field {
	return zap.String("github.label", val)
}

func CommentID(val int64) zap.Field {
	return zap.Int64("github.comment_id", val)
}

func Section(val string) zap.Field {
	return zap.String("metadata.section", val)
}
