package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	PublicCachePrefix     = "hellorun:public-cache:"
	defaultPublicCacheTTL = 15 * time.Second
	defaultCacheMaxBody   = 1 << 20
)

// PublicCacheOptions configures PublicCache.
type PublicCacheOptions struct {
	TTL          time.Duration
	MaxBodyBytes int
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	BodyBase64  string `json:"body_base64"`
	Body        []byte `json:"-"`
}

type cacheBodyWriter struct {
	gin.ResponseWriter
	body         []byte
	maxBodyBytes int
	overflow     bool
}

func (w *cacheBodyWriter) Write(data []byte) (int, error) {
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *cacheBodyWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *cacheBodyWriter) capture(data []byte) {
	if w.overflow || len(data) == 0 {
		return
	}
	remaining := w.maxBodyBytes - len(w.body)
	if len(data) > remaining {
		w.overflow = true
		w.body = nil
		return
	}
	w.body = append(w.body, data...)
}

// PublicCache stores successful anonymous GET responses in redis for a short TTL.
// Requests carrying a timestamp query (ts, _t, t) bypass the cache.
func PublicCache(rdb *redis.Client, opts PublicCacheOptions) gin.HandlerFunc {
	if opts.TTL <= 0 {
		opts.TTL = defaultPublicCacheTTL
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultCacheMaxBody
	}
	ttlSeconds := int(opts.TTL / time.Second)

	return func(c *gin.Context) {
		if rdb == nil || c.Request.Method != http.MethodGet || hasBypassTimestamp(c) {
			c.Next()
			return
		}
		if IsAuthenticated(c) {
			c.Next()
			setPrivateCacheHeader(c.Writer, c.Writer.Status())
			return
		}

		ctx := c.Request.Context()
		cacheKey := PublicCachePrefix + c.Request.URL.RequestURI()
		if payload, ok := readCachedResponse(ctx, rdb, cacheKey); ok {
			c.Header("x-hellorun-cache", "hit")
			setCacheHeader(c.Writer, payload.Status, ttlSeconds)
			c.Data(payload.Status, payload.ContentType, payload.Body)
			c.Abort()
			return
		}

		buffer := &cacheBodyWriter{ResponseWriter: c.Writer, maxBodyBytes: opts.MaxBodyBytes}
		c.Writer = buffer
		c.Next()

		status := c.Writer.Status()
		if !isCacheableResponse(status, c.Writer.Header()) || buffer.overflow || len(buffer.body) == 0 {
			return
		}
		setCacheHeader(c.Writer, status, ttlSeconds)

		raw, err := json.Marshal(cachedResponse{
			Status:      status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			BodyBase64:  base64.StdEncoding.EncodeToString(buffer.body),
		})
		if err != nil {
			return
		}
		_ = rdb.Set(ctx, cacheKey, raw, opts.TTL).Err()
	}
}

// PublicCachePurger drops every cached public response.
type PublicCachePurger struct {
	rdb *redis.Client
}

func NewPublicCachePurger(rdb *redis.Client) *PublicCachePurger {
	return &PublicCachePurger{rdb: rdb}
}

func (p *PublicCachePurger) PurgePublic(ctx context.Context) error {
	_, err := PurgePublicCache(ctx, p.rdb)
	return err
}

// PurgePublicCache deletes all keys under PublicCachePrefix and returns how many were removed.
func PurgePublicCache(ctx context.Context, rdb *redis.Client) (int64, error) {
	if rdb == nil {
		return 0, nil
	}
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, PublicCachePrefix+"*", 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func readCachedResponse(ctx context.Context, rdb *redis.Client, cacheKey string) (cachedResponse, bool) {
	raw, err := rdb.Get(ctx, cacheKey).Bytes()
	if err != nil || len(raw) == 0 {
		return cachedResponse{}, false
	}
	var payload cachedResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return cachedResponse{}, false
	}
	body, err := base64.StdEncoding.DecodeString(payload.BodyBase64)
	if err != nil {
		return cachedResponse{}, false
	}
	if payload.Status <= 0 {
		payload.Status = http.StatusOK
	}
	if payload.ContentType == "" {
		payload.ContentType = "application/json; charset=utf-8"
	}
	payload.Body = body
	return payload, true
}

func hasBypassTimestamp(c *gin.Context) bool {
	query := c.Request.URL.Query()
	for _, key := range []string{"ts", "_t", "t"} {
		if strings.TrimSpace(query.Get(key)) != "" {
			return true
		}
	}
	return false
}

func isCacheableResponse(status int, headers http.Header) bool {
	if status != http.StatusOK {
		return false
	}
	cacheControl := strings.ToLower(headers.Get("Cache-Control"))
	return !strings.Contains(cacheControl, "no-cache") &&
		!strings.Contains(cacheControl, "no-store") &&
		!strings.Contains(cacheControl, "private")
}

func setPrivateCacheHeader(w gin.ResponseWriter, status int) {
	if status != http.StatusOK {
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=0, no-cache, no-store, must-revalidate")
}

func setCacheHeader(w gin.ResponseWriter, status, ttlSeconds int) {
	if status != http.StatusOK || w.Header().Get("Cache-Control") != "" {
		return
	}
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(ttlSeconds))
}
