package dynamo

// Config holds naming configuration for a Connection.
type Config struct {
	// TablePrefix is prepended to every collection name to form the
	// DynamoDB table name.
	// Default: "" (collection names are table names)
	TablePrefix string

	// KeyAttribute is the item attribute backing the identity field.
	// Tables are expected to use it as their partition key.
	// Default: "id"
	KeyAttribute string
}

// DefaultConfig returns the default naming configuration.
func DefaultConfig() Config {
	return Config{
		KeyAttribute: "id",
	}
}

// validate ensures config values are usable.
func (c *Config) validate() {
	if c.KeyAttribute == "" {
		c.KeyAttribute = "id"
	}
}
