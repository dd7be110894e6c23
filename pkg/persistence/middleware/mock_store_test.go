package middleware_test

import (
	"context"
	"errors"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

// failingStore fails every Save, to exercise error paths.
type failingStore struct {
	*memory.Store
}

var errDisk = errors.New("disk full")

func (failingStore) Save(context.Context, string, *domain.Checkpoint) error {
	return errDisk
}

var _ ports.CheckpointStore = failingStore{}
