// Package api exposes the record server over HTTP: account endpoints,
// record fetch/push and the websocket notification channel.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/taskvault/taskvault/internal/common"
	"github.com/taskvault/taskvault/internal/logging"
	"github.com/taskvault/taskvault/internal/server/auth"
	"github.com/taskvault/taskvault/internal/server/hub"
	"github.com/taskvault/taskvault/internal/server/models"
	"github.com/taskvault/taskvault/internal/server/services"
)

const ownerKey = "owner"

// wireRecord is the JSON shape records travel in. Metadata is passed
// through untouched; the server has no business reading device metadata.
type wireRecord struct {
	RecordId        string          `json:"record_id"`
	Collection      string          `json:"collection"`
	EncryptedData   []byte          `json:"encrypted_data"`
	Nonce           []byte          `json:"nonce"`
	Metadata        json.RawMessage `json:"metadata"`
	ServerUpdatedAt int64           `json:"server_updated_at"`
}

func toStored(w wireRecord) *models.StoredRecord {
	return &models.StoredRecord{
		RecordId:      w.RecordId,
		Collection:    w.Collection,
		EncryptedData: w.EncryptedData,
		Nonce:         w.Nonce,
		Metadata:      w.Metadata,
	}
}

func toWire(rec *models.StoredRecord) wireRecord {
	return wireRecord{
		RecordId:        rec.RecordId,
		Collection:      rec.Collection,
		EncryptedData:   rec.EncryptedData,
		Nonce:           rec.Nonce,
		Metadata:        rec.Metadata,
		ServerUpdatedAt: rec.ServerUpdatedAt,
	}
}

// Handler holds the services the HTTP layer dispatches to.
type Handler struct {
	users   *services.UserService
	records *services.RecordService
	hub     *hub.Hub
	secret  []byte
	logger  logging.Logger
}

func NewHandler(users *services.UserService, records *services.RecordService, h *hub.Hub, secret []byte, logger logging.Logger) *Handler {
	return &Handler{users: users, records: records, hub: h, secret: secret, logger: logger}
}

// NewRouter wires all routes. Account endpoints are public; records and
// the notification channel require a bearer token.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api/user/register", h.Register)
	r.GET("/api/user/salt", h.Salt)
	r.POST("/api/user/login", h.Login)

	authed := r.Group("/", h.authRequired)
	authed.GET("/api/records", h.FetchRecords)
	authed.POST("/api/records", h.PushRecords)
	authed.GET("/ws", h.Notifications)

	return r
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// authRequired resolves the bearer token to an owner id and aborts with
// 401 when it cannot.
func (h *Handler) authRequired(c *gin.Context) {
	header := c.GetHeader(common.AccessTokenHeaderName)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	userID, err := auth.GetUserIDFromToken(token, h.secret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Set(ownerKey, userID)
	c.Next()
}

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Salt     []byte `json:"salt"`
		Verifier []byte `json:"verifier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.users.Register(c.Request.Context(), req.Username, req.Salt, req.Verifier); err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Salt(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	salt, err := h.users.GetSalt(c.Request.Context(), username)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"salt": salt})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Verifier []byte `json:"verifier"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.users.Login(c.Request.Context(), req.Username, req.Verifier)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

func (h *Handler) FetchRecords(c *gin.Context) {
	owner := c.GetString(ownerKey)
	collection := c.Query("collection")

	since := int64(0)
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a unix-millisecond integer"})
			return
		}
		since = parsed
	}

	recs, err := h.records.Fetch(c.Request.Context(), owner, collection, since)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	out := make([]wireRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toWire(rec))
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

func (h *Handler) PushRecords(c *gin.Context) {
	owner := c.GetString(ownerKey)

	var req struct {
		Records []wireRecord `json:"records"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stored := make([]*models.StoredRecord, 0, len(req.Records))
	for _, w := range req.Records {
		stored = append(stored, toStored(w))
	}

	ack, err := h.records.Push(c.Request.Context(), owner, stored)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ack": ack})
}

// Notifications upgrades to a websocket bound to the authenticated owner's
// broadcast channel and blocks for the connection's lifetime.
func (h *Handler) Notifications(c *gin.Context) {
	owner := c.GetString(ownerKey)

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn(c.Request.Context(), "websocket upgrade failed", "owner", owner, "error", err)
		return
	}

	h.hub.Serve(c.Request.Context(), owner, conn)
	h.logger.Debug(c.Request.Context(), "notification client disconnected",
		"owner", owner, "remaining", h.hub.ConnCount(owner))
}
