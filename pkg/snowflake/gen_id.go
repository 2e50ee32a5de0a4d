// Package snowflake hands out the numeric serials printed on invoices.
package snowflake

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/sonyflake"
)

// epoch is the zero point of every serial. Changing it would let new serials collide with
// old ones.
var epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

type Generator struct {
	node *sonyflake.Sonyflake
}

// NewGenerator creates a generator for one process. machineID must be unique among the
// processes writing invoices.
func NewGenerator(machineID uint16) (*Generator, error) {
	sf := sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: epoch,
		MachineID: func() (uint16, error) { return machineID, nil },
	})
	if sf == nil {
		return nil, errors.New("failed to create serial generator")
	}
	return &Generator{node: sf}, nil
}

// GetID returns the next serial.
func (g *Generator) GetID() (uint64, error) {
	id, err := g.node.NextID()
	if err != nil {
		return 0, fmt.Errorf("failed to generate serial: %w", err)
	}
	return id, nil
}
