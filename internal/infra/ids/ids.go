package ids

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator mints snowflake row ids for clicks, conversions and the
// other persisted entities.
type Generator struct {
	node *snowflake.Node
}

// New builds a generator for the given node id (0-1023). Each running
// instance needs its own node id to keep ids unique across replicas.
func New(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("ids: create snowflake node: %w", err)
	}
	return &Generator{node: node}, nil
}

// Next returns the next id.
func (g *Generator) Next() int64 {
	return g.node.Generate().Int64()
}
