package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"room-reservation-backend/internal/model"
)

// subscriptionRequest carries the browser push credentials plus the rooms
// the client wants availability alerts for.
type subscriptionRequest struct {
	Endpoint        string  `json:"endpoint" binding:"required"`
	P256DH          string  `json:"p256dh" binding:"required"`
	Auth            string  `json:"auth" binding:"required"`
	SubscribedRooms []int64 `json:"subscribed_rooms"`
}

type subscriptionResponse struct {
	Endpoint        string  `json:"endpoint"`
	SubscribedRooms []int64 `json:"subscribed_rooms"`
}

func newSubscriptionResponse(sub *model.PushSubscription) subscriptionResponse {
	roomIDs := make([]int64, 0, len(sub.Rooms))
	for _, room := range sub.Rooms {
		roomIDs = append(roomIDs, room.ID)
	}
	return subscriptionResponse{Endpoint: sub.Endpoint, SubscribedRooms: roomIDs}
}

// PutSubscription handles PUT /api/subscriptions: the credentials are
// upserted and the watched room set replaced in one transaction, so a
// re-put atomically swaps the rooms a client is alerted about.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.store.DB().Transaction(func(tx *gorm.DB) error {
		var rooms []model.Room
		if len(req.SubscribedRooms) > 0 {
			if err := tx.Find(&rooms, req.SubscribedRooms).Error; err != nil {
				return err
			}
		}

		sub := model.PushSubscription{
			Endpoint: req.Endpoint,
			P256DH:   req.P256DH,
			Auth:     req.Auth,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&sub).Error; err != nil {
			return err
		}

		return tx.Model(&sub).Association("Rooms").Replace(&rooms)
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to store subscription"})
		return
	}

	c.Status(http.StatusCreated)
}

// DeleteSubscription handles DELETE /api/subscriptions. Deleting an
// endpoint that was never registered is not an error.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.DB().Delete(&model.PushSubscription{Endpoint: req.Endpoint}).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete subscription"})
		return
	}

	c.Status(http.StatusNoContent)
}

// endpointQuery pulls the endpoint parameter out of the raw query string.
// Push endpoints are stored and looked up byte for byte, so the value must
// not go through URL decoding.
func endpointQuery(c *gin.Context) (string, bool) {
	for _, pair := range strings.Split(c.Request.URL.RawQuery, "&") {
		if value, found := strings.CutPrefix(pair, "endpoint="); found {
			return value, value != ""
		}
	}
	return "", false
}

// GetSubscription handles GET /api/subscriptions?endpoint=...
func (h *Handler) GetSubscription(c *gin.Context) {
	endpoint, ok := endpointQuery(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	var sub model.PushSubscription
	err := h.store.DB().Preload("Rooms").First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve subscription"})
		return
	}

	c.JSON(http.StatusOK, newSubscriptionResponse(&sub))
}
