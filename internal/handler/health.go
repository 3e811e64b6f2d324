package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

type HealthHandler struct {
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	amqpConn    *amqp.Connection
}

func NewHealthHandler(dbPool *pgxpool.Pool, redisClient *redis.Client, amqpConn *amqp.Connection) *HealthHandler {
	return &HealthHandler{dbPool: dbPool, redisClient: redisClient, amqpConn: amqpConn}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports every dependency, failing if any is unreachable.
func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := map[string]string{
		"postgres": "connected",
		"redis":    "connected",
		"rabbitmq": "connected",
	}
	ready := true
	if err := h.dbPool.Ping(ctx); err != nil {
		checks["postgres"], ready = "unavailable", false
	}
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		checks["redis"], ready = "unavailable", false
	}
	if h.amqpConn.IsClosed() {
		checks["rabbitmq"], ready = "unavailable", false
	}

	resp := gin.H{"status": "ok"}
	for name, state := range checks {
		resp[name] = state
	}
	if !ready {
		resp["status"] = "error"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
