package dynamo

import (
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/jacentio/loam/entity"
)

// Connection is a configured DynamoDB handle from which queries are built.
type Connection struct {
	client *dynamodb.Client
	config Config
}

// New creates a Connection around a DynamoDB client.
func New(client *dynamodb.Client, config Config) *Connection {
	config.validate()
	return &Connection{client: client, config: config}
}

// Query starts a new, unscoped query on this connection.
func (c *Connection) Query() entity.Builder {
	return &Builder{conn: c}
}

// Client returns the underlying DynamoDB client.
func (c *Connection) Client() *dynamodb.Client {
	return c.client
}

// Config returns the connection's naming configuration.
func (c *Connection) Config() Config {
	return c.config
}

// TableName maps a collection name to its DynamoDB table name.
func (c *Connection) TableName(collection string) string {
	return c.config.TablePrefix + collection
}

// Resolver resolves named connections for the entity layer. The empty name
// resolves the default connection.
type Resolver struct {
	mu    sync.RWMutex
	def   *Connection
	conns map[string]*Connection
}

// NewResolver creates a Resolver with a default connection.
func NewResolver(def *Connection) *Resolver {
	return &Resolver{
		def:   def,
		conns: make(map[string]*Connection),
	}
}

// Register adds a named connection.
func (r *Resolver) Register(name string, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[name] = conn
}

// Resolve returns the connection for a name, or the default for "".
func (r *Resolver) Resolve(name string) (entity.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		return r.def, nil
	}
	if conn, ok := r.conns[name]; ok {
		return conn, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, name)
}
