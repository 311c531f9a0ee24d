package mcpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openveritas/veritas/pkg/orchestrator"
)

func TestNewRegistersAllTools(t *testing.T) {
	orch := &orchestrator.Orchestrator{}
	s := New(orch, "veritas", "test")
	assert.NotNil(t, s)
}
