package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GET /api/v1/blacklist
// Returns every blacklisted counterparty, newest first.
func (h *APIHandler) handleListBlacklist(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not connected"})
		return
	}

	entries, err := h.store.ListBlacklisted(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch blacklist", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"blacklist": entries,
		"count":     len(entries),
	})
}

// POST /api/v1/blacklist { "steam_id": 76561198000000001, "reason": "..." }
// Takes effect on the next matching round; rounds already in flight keep
// their candidate list.
func (h *APIHandler) handleAddBlacklisted(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not connected"})
		return
	}

	var req struct {
		SteamID uint64 `json:"steam_id" binding:"required"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. Expected: {steam_id, reason}"})
		return
	}

	if err := h.store.AddBlacklisted(c.Request.Context(), req.SteamID, req.Reason); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to blacklist", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":   "blacklisted",
		"steam_id": req.SteamID,
	})
}

// DELETE /api/v1/blacklist/:steamid
func (h *APIHandler) handleRemoveBlacklisted(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Database not connected"})
		return
	}

	steamID, err := strconv.ParseUint(c.Param("steamid"), 10, 64)
	if err != nil || steamID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid steam id"})
		return
	}

	removed, err := h.store.RemoveBlacklisted(c.Request.Context(), steamID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unblacklist", "details": err.Error()})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not blacklisted"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "removed",
		"steam_id": steamID,
	})
}
