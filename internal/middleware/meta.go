package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey    = "response_meta"
	snapshotVersionKey = "snapshot_version"
	snapshotLoadedKey  = "snapshot_loaded_at"
)

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetSnapshot records which snapshot answered the request so clients can
// tell when the data underneath them changed.
func SetSnapshot(c *gin.Context, version string, loadedAt time.Time) {
	meta := ensureMeta(c)
	meta[snapshotVersionKey] = version
	meta[snapshotLoadedKey] = loadedAt.UTC().Format(time.RFC3339)
}

// ExtractMeta returns the metadata map stored on the context.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	newMeta := make(map[string]interface{})
	c.Set(responseMetaKey, newMeta)
	return newMeta
}
