package dynamo

// DynamoDB attribute names used in expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID    = "user_id"
	fieldEnable    = "enable"
	fieldRole      = "role"
	fieldReaded    = "readed"
	fieldVersion   = "version"
	fieldUpdatedAt = "updated_at"
	fieldStatus    = "status"
)

const statusIndex = "status-submitted_at-index"
