package inmemdb

import (
	"sync"

	"github.com/trezcool/metricampus/core/schedule"
)

type (
	// DB is an in-memory database, for tests and offline rendering.
	DB struct {
		block *blockTable
	}

	blockTable struct {
		sync.RWMutex
		table map[string]*schedule.ClassBlock
	}
)

func Open() *DB {
	return &DB{
		block: &blockTable{table: make(map[string]*schedule.ClassBlock)},
	}
}
