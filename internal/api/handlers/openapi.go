package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/platformbuilds/delivery-hours/internal/version"
)

// resolveOpenAPIPath returns a readable path to openapi.yaml. It honors
// DELIVERY_OPENAPI_PATH, then tries locations relative to the packages
// tests run from.
func resolveOpenAPIPath() string {
	if p := os.Getenv("DELIVERY_OPENAPI_PATH"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	candidates := []string{
		"api/openapi.yaml",
		filepath.FromSlash("../../api/openapi.yaml"),
		filepath.FromSlash("../../../api/openapi.yaml"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "api/openapi.yaml"
}

// OpenAPIPath is where the YAML document is served from.
func OpenAPIPath() string { return resolveOpenAPIPath() }

// GetOpenAPISpec serves api/openapi.yaml as JSON with info.version set to
// the running build.
func GetOpenAPISpec(c *gin.Context) {
	data, err := os.ReadFile(resolveOpenAPIPath())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load openapi.yaml"})
		return
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to parse openapi.yaml"})
		return
	}
	if info, ok := doc["info"].(map[string]any); ok && version.Version != "dev" {
		info["version"] = version.Version
	}
	c.JSON(http.StatusOK, doc)
}
