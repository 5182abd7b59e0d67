package probe

// Role distinguishes a channel's current primary URL from its alternate
// source URLs within a probe batch.
type Role string

const (
	RolePrimary   Role = "primary"
	RoleAlternate Role = "alternate"
)

// Task is one URL check scheduled for a batch. Tasks are ephemeral: built
// per refresh pass and discarded after their results are applied.
type Task struct {
	ChannelID string
	URL       string
	Role      Role
	// Position is the URL's index in the channel's sources list; it makes
	// alternate selection deterministic regardless of completion order.
	Position int
}

// TaskResult pairs a task with its probe result.
type TaskResult struct {
	Task   Task
	Result Result
}
