package memory_test

import (
	"testing"

	"medwise-api/internal/store/memory"
	"medwise-api/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, memory.New())
}
