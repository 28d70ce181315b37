package publisher

// Publisher fans newly ingested deals out to the dashboard feed.
// Publishing is best-effort; a failure never affects the deal row.
type Publisher interface {
	// Publish publishes a message to a stream
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
