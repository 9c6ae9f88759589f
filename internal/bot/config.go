package bot

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Maximum number of due items fetched when a review session starts
	DueQueueLimit int
	// Show the source label and page under each answer
	ShowSource bool
	// Long polling timeout in seconds
	UpdateTimeout int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() BotConfig {
	return BotConfig{
		DueQueueLimit: 100,
		ShowSource:    true,
		UpdateTimeout: 60,
	}
}
