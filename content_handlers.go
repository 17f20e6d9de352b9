package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/v1/content — all five collections in one payload, the way
// clients load them: one fetch-all, enabled flags returned verbatim.
func GetContent(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, store.Snapshot())
	}
}
