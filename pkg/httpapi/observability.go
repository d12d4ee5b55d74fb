package httpapi

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/agentops-dev/substrate/pkg/kernel"
)

// moduleStatus is one entry of §6.4's GET /modules/status snapshot.
type moduleStatus struct {
	ModuleID   string `json:"module_id"`
	Definition string `json:"definition"`
	Status     string `json:"status"`
}

func (s *Server) handleModulesStatus(c *gin.Context) {
	kernels := s.kernels.Kernels()

	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, string(name))
	}
	sort.Strings(names)

	modules := make([]moduleStatus, 0, len(names))
	for _, name := range names {
		k := kernels[kernel.Name(name)]
		modules = append(modules, moduleStatus{
			ModuleID:   name,
			Definition: kernelDefinition(k),
			Status:     string(k.State),
		})
	}

	c.JSON(http.StatusOK, gin.H{"count": len(modules), "modules": modules})
}

// kernelDefinition extracts a short human-readable description from a
// kernel's content, if its manifest carries one, otherwise falls back to
// its name.
func kernelDefinition(k kernel.Kernel) string {
	if desc, ok := k.Content["description"].(string); ok && desc != "" {
		return desc
	}
	return string(k.Name)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
