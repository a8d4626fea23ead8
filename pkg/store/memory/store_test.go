package memory_test

import (
	"testing"

	"github.com/adrianliechti/forge/pkg/store/memory"
	"github.com/adrianliechti/forge/pkg/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, memory.New())
}
