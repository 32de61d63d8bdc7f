package topic

// Standard MQTT wildcards.
const (
	// Wildcard matches exactly one level.
	Wildcard = "+"

	// MultiWildcard matches the current level and everything below it.
	// It must be the last level of a filter.
	MultiWildcard = "#"
)
