package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/contactkeval/option-chain/internal/cache"
	"github.com/contactkeval/option-chain/internal/chain"
	"github.com/contactkeval/option-chain/internal/logger"
	"github.com/contactkeval/option-chain/internal/market"
	"github.com/contactkeval/option-chain/internal/metrics"
)

const msgInternal = "internal server error"

// ChainGenerator is what the handler needs from *chain.Generator.
type ChainGenerator interface {
	Normalize(req chain.Request) (chain.Request, error)
	Generate(ctx context.Context, req chain.Request) (*chain.Snapshot, error)
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type chainResponse struct {
	Success bool `json:"success"`
	*chain.Snapshot
}

// ChainHandler serves option chains and market state.
type ChainHandler struct {
	gen     ChainGenerator
	cache   cache.Cache
	metrics *metrics.Metrics
	clock   market.Clock
}

// NewChainHandler wires a handler. A nil cache disables caching.
func NewChainHandler(gen ChainGenerator, c cache.Cache, m *metrics.Metrics, clock market.Clock) *ChainHandler {
	if c == nil {
		c = cache.Noop{}
	}
	if clock == nil {
		clock = market.SystemClock
	}
	return &ChainHandler{gen: gen, cache: c, metrics: m, clock: clock}
}

// RegisterRoutes binds the handler's endpoints.
func (h *ChainHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/option-chain", h.GetOptionChain)
	r.GET("/market-status", h.GetMarketStatus)
}

// GetOptionChain handles GET /option-chain?symbol=&strikeGap=&daysToExpiry=.
func (h *ChainHandler) GetOptionChain(c *gin.Context) {
	req, err := parseChainRequest(c)
	if err == nil {
		req, err = h.gen.Normalize(req)
	}
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	key := req.CacheKey()
	if body, err := h.cache.Get(ctx, key); err == nil {
		h.metrics.ObserveCache("hit")
		c.Header("X-Cache", "HIT")
		h.respond(c, http.StatusOK, body)
		return
	} else if !errors.Is(err, cache.ErrMiss) {
		h.metrics.ObserveCache("error")
		logger.WithFields(logger.Fields{"request_id": c.GetString(RequestIDKey), "key": key}).
			WithError(err).Warn("cache read failed")
	} else {
		h.metrics.ObserveCache("miss")
	}

	snap, err := h.gen.Generate(ctx, req)
	switch {
	case errors.Is(err, chain.ErrValidation):
		h.fail(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, chain.ErrNotFound):
		h.fail(c, http.StatusNotFound, fmt.Sprintf("no price available for symbol %s", req.Symbol))
		return
	case err != nil:
		logger.WithFields(logger.Fields{
			"request_id": c.GetString(RequestIDKey),
			"symbol":     req.Symbol,
		}).WithError(err).Error("chain generation failed")
		h.fail(c, http.StatusInternalServerError, msgInternal)
		return
	}

	body, err := json.Marshal(chainResponse{Success: true, Snapshot: snap})
	if err != nil {
		logger.Errorf("encode chain %s: %v", req.Symbol, err)
		h.fail(c, http.StatusInternalServerError, msgInternal)
		return
	}
	if err := h.cache.Set(ctx, key, body); err != nil {
		logger.WithFields(logger.Fields{"request_id": c.GetString(RequestIDKey), "key": key}).
			WithError(err).Warn("cache write failed")
	}
	c.Header("X-Cache", "MISS")
	h.respond(c, http.StatusOK, body)
}

// GetMarketStatus handles GET /market-status.
func (h *ChainHandler) GetMarketStatus(c *gin.Context) {
	now := h.clock()
	status := market.IsOpen(now)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"open":      status.Open,
		"reason":    status.Reason,
		"nextOpen":  market.NextOpen(now).Format(time.RFC3339),
		"timestamp": now.UnixMilli(),
	})
}

func (h *ChainHandler) respond(c *gin.Context, status int, body []byte) {
	h.metrics.ObserveChainRequest(strconv.Itoa(status))
	c.Data(status, "application/json; charset=utf-8", body)
}

func (h *ChainHandler) fail(c *gin.Context, status int, msg string) {
	h.metrics.ObserveChainRequest(strconv.Itoa(status))
	c.JSON(status, errorBody{Error: msg})
}

// parseChainRequest reads the query. Absent numeric parameters stay zero
// (generator defaults); present ones must be positive integers.
func parseChainRequest(c *gin.Context) (chain.Request, error) {
	req := chain.Request{Symbol: strings.TrimSpace(c.Query("symbol"))}
	if req.Symbol == "" {
		return req, fmt.Errorf("%w: symbol is required", chain.ErrValidation)
	}

	var err error
	if req.StrikeGap, err = positiveInt(c, "strikeGap"); err != nil {
		return req, err
	}
	if req.DaysToExpiry, err = positiveInt(c, "daysToExpiry"); err != nil {
		return req, err
	}
	return req, nil
}

func positiveInt(c *gin.Context, name string) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", chain.ErrValidation, name)
	}
	return v, nil
}
