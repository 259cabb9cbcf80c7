package core

import "time"

// Review sources.
const (
	SourceStaged      = "staged"
	SourcePullRequest = "pull_request"
	SourceAPI         = "api"
)

// Review statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Review represents a single code review stored in the history.
type Review struct {
	ID            int64     `db:"id" json:"id"`
	SessionID     string    `db:"session_id" json:"session_id"`
	Source        string    `db:"source" json:"source"`
	RepoFullName  string    `db:"repo_full_name" json:"repo_full_name,omitempty"`
	PRNumber      int       `db:"pr_number" json:"pr_number,omitempty"`
	HeadSHA       string    `db:"head_sha" json:"head_sha,omitempty"`
	Provider      string    `db:"provider" json:"provider"`
	Model         string    `db:"model" json:"model"`
	Status        string    `db:"status" json:"status"`
	ReviewContent string    `db:"review_content" json:"review_content"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
