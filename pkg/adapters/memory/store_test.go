package memory_test

import (
	"testing"

	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	tests.RunCheckpointStoreContract(t, memory.NewStore())
}
