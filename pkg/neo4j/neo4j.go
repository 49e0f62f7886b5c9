package neo4j

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Config holds the graph store connection settings, read from NEO4J_* variables.
type Config struct {
	URI            string        `envconfig:"NEO4J_URI" default:"bolt://localhost:7687"`
	User           string        `envconfig:"NEO4J_USER" default:"neo4j"`
	Password       string        `envconfig:"NEO4J_PASSWORD" default:"nakari-dev"`
	Database       string        `envconfig:"NEO4J_DATABASE"`
	MaxPoolSize    int           `envconfig:"NEO4J_MAX_POOL_SIZE" default:"50"`
	AcquireTimeout time.Duration `envconfig:"NEO4J_ACQUIRE_TIMEOUT" default:"30s"`
}

// New builds a pooled driver. No connection is opened until the first session
// runs or VerifyConnectivity is called.
func (c *Config) New() (neo4j.DriverWithContext, error) {
	auth := neo4j.NoAuth()
	if c.User != "" {
		auth = neo4j.BasicAuth(c.User, c.Password, "")
	}

	return neo4j.NewDriverWithContext(c.URI, auth, func(cfg *neo4j.Config) {
		if c.MaxPoolSize > 0 {
			cfg.MaxConnectionPoolSize = c.MaxPoolSize
		}
		if c.AcquireTimeout > 0 {
			cfg.ConnectionAcquisitionTimeout = c.AcquireTimeout
		}
	})
}
