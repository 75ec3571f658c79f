package middleware

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	// Lifetime of the in-progress lock; a crashed handler frees the key after
	// this long instead of wedging the request id forever.
	provisionalLockTTL = 60 * time.Second
	// Allowed client/server clock skew for Mz-Request-At (in UTC).
	maxClockSkew = 10 * time.Minute

	// HeaderReplayed marks a response served from the idempotency store
	// rather than a fresh handler run.
	HeaderReplayed = "Mz-Idempotent-Replay"
)

type idempEntry struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code"`
	Body        []byte    `json:"body"`
	BodySHA256  string    `json:"body_sha256"`
	RequestID   string    `json:"request_id"`
	RequestAtMS int64     `json:"request_at_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

type respRecorder struct {
	w    http.ResponseWriter
	buf  *bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }
func (r *respRecorder) Write(b []byte) (int, error) {
	if r.buf != nil {
		r.buf.Write(b)
	}
	return r.w.Write(b)
}
func (r *respRecorder) WriteHeader(statusCode int) { r.code = statusCode; r.w.WriteHeader(statusCode) }

// requireHeaders validates the three idempotency headers. On failure it writes
// the 400 itself and returns done=true.
func requireHeaders(c echo.Context) (reqID, farmerID string, reqAt time.Time, done bool) {
	req := c.Request()

	reqID = strings.TrimSpace(req.Header.Get("Mz-Request-Id"))
	if reqID == "" {
		_ = c.JSON(http.StatusBadRequest, map[string]string{"error": "missing Mz-Request-Id"})
		return "", "", time.Time{}, true
	}
	if !validReqID(reqID) {
		_ = c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid Mz-Request-Id format"})
		return "", "", time.Time{}, true
	}

	reqAt, err := parseMzRequestAt(req.Header.Get("Mz-Request-At"))
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		return "", "", time.Time{}, true
	}
	now := nowUTC()
	if reqAt.Before(now.Add(-maxClockSkew)) || reqAt.After(now.Add(maxClockSkew)) {
		_ = c.JSON(http.StatusBadRequest, map[string]string{"error": "Mz-Request-At too skewed"})
		return "", "", time.Time{}, true
	}

	farmerID = strings.TrimSpace(req.Header.Get("Mz-Farmer-Id"))
	if farmerID == "" {
		_ = c.JSON(http.StatusBadRequest, map[string]string{"error": "missing Mz-Farmer-Id"})
		return "", "", time.Time{}, true
	}
	if !reHex32.MatchString(farmerID) {
		_ = c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid Mz-Farmer-Id"})
		return "", "", time.Time{}, true
	}
	return reqID, farmerID, reqAt, false
}

// IdempotencyMiddleware deduplicates mutating requests. The key is
// method + route + Mz-Farmer-Id + Mz-Request-Id; a finished request replays
// its stored response for ttl, an unfinished one answers 409.
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration) echo.MiddlewareFunc {
	store := replayStore{rdb: rdb}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			method := req.Method

			switch method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			reqID, farmerID, reqAt, done := requireHeaders(c)
			if done {
				return nil
			}

			// buffer the body so the handler can still read it
			var body []byte
			if req.Body != nil {
				body, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewBuffer(body))
			bhash := bodyHash(body)

			key := buildKey(method, c.Path(), farmerID, reqID)
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()

			reserved, err := store.reserve(ctx, key, idempEntry{
				InProgress:  true,
				BodySHA256:  bhash,
				RequestID:   reqID,
				RequestAtMS: reqAt.UnixMilli(),
				CreatedAt:   nowUTC(),
			})
			if err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "idempotency store unavailable"})
			}
			if !reserved {
				cur, errLoad := store.load(ctx, key)
				if errLoad != nil {
					log.Printf("idempotency: loading %s: %v", key, errLoad)
				}
				if cur.BodySHA256 != "" && cur.BodySHA256 != bhash {
					return c.JSON(http.StatusConflict, map[string]string{"error": "Mz-Request-Id reused with different body"})
				}
				if !cur.InProgress && cur.Code != 0 && len(cur.Body) > 0 {
					c.Response().Header().Set(HeaderReplayed, "true")
					return c.Blob(cur.Code, echo.MIMEApplicationJSON, cur.Body)
				}
				return c.JSON(http.StatusConflict, map[string]string{"error": "request is already in progress"})
			}

			rec := &respRecorder{w: c.Response().Writer, buf: &bytes.Buffer{}, code: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				c.Error(err)
			}

			final := idempEntry{
				InProgress:  false,
				Code:        rec.code,
				Body:        rec.buf.Bytes(),
				BodySHA256:  bhash,
				RequestID:   reqID,
				RequestAtMS: reqAt.UnixMilli(),
				CreatedAt:   nowUTC(),
			}
			// detached context: the response is already sent, the record must
			// still be written even if the client went away
			_ = store.finish(context.Background(), key, final, ttl)
			return nil
		}
	}
}
