package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	testReqID  = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testFarmer = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func setupEcho(rdb *redis.Client, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(IdempotencyMiddleware(rdb, ttl))
	e.POST("/loans", handler)
	e.GET("/loans", handler)
	return e
}

func goodHeaders() map[string]string {
	return map[string]string{
		"Mz-Request-Id": testReqID,
		"Mz-Request-At": time.Now().UTC().Format(time.RFC3339),
		"Mz-Farmer-Id":  testFarmer,
	}
}

func serve(t *testing.T, e *echo.Echo, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newRedisTB(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func createdHandler(c echo.Context) error {
	return c.JSON(http.StatusCreated, map[string]any{"ok": true})
}

func TestIdempotency_BypassesReads(t *testing.T) {
	e := setupEcho(newRedisTB(t), 30*time.Second, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "get ok"})
	})
	// no headers at all
	rec := serve(t, e, http.MethodGet, "/loans", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET must bypass, got %d", rec.Code)
	}
}

func TestIdempotency_HeaderValidation(t *testing.T) {
	e := setupEcho(newRedisTB(t), 30*time.Second, createdHandler)

	cases := []struct {
		name   string
		mutate func(h map[string]string)
	}{
		{"missing request id", func(h map[string]string) { delete(h, "Mz-Request-Id") }},
		{"bad request id", func(h map[string]string) { h["Mz-Request-Id"] = "NOT-VALID" }},
		{"bad request at", func(h map[string]string) { h["Mz-Request-At"] = "not-a-time" }},
		{"skewed request at", func(h map[string]string) {
			h["Mz-Request-At"] = time.Now().UTC().Add(-maxClockSkew - time.Minute).Format(time.RFC3339)
		}},
		{"missing farmer id", func(h map[string]string) { delete(h, "Mz-Farmer-Id") }},
		{"bad farmer id", func(h map[string]string) { h["Mz-Farmer-Id"] = "not32hex" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := goodHeaders()
			tc.mutate(h)
			rec := serve(t, e, http.MethodPost, "/loans", bytes.NewReader([]byte(`{"x":1}`)), h)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d (%s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestIdempotency_ReplaysFinishedResponse(t *testing.T) {
	e := setupEcho(newRedisTB(t), 2*time.Minute, createdHandler)
	h := goodHeaders()
	body := []byte(`{"principal_usdc":1000}`)

	rec1 := serve(t, e, http.MethodPost, "/loans", bytes.NewReader(body), h)
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first request: want 201, got %d (%s)", rec1.Code, rec1.Body.String())
	}
	if rec1.Header().Get(HeaderReplayed) != "" {
		t.Fatal("first response must not be marked replayed")
	}

	rec2 := serve(t, e, http.MethodPost, "/loans", bytes.NewReader(body), h)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay: want 201, got %d (%s)", rec2.Code, rec2.Body.String())
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body mismatch: %q vs %q", rec1.Body.String(), rec2.Body.String())
	}
	if rec2.Header().Get(HeaderReplayed) != "true" {
		t.Fatal("replayed response must carry the replay marker")
	}
}

func TestIdempotency_ConflictWhileInProgress(t *testing.T) {
	rdb := newRedisTB(t)
	e := setupEcho(rdb, 2*time.Minute, createdHandler)
	body := []byte(`{"x":1}`)

	store := replayStore{rdb: rdb}
	key := buildKey(http.MethodPost, "/loans", testFarmer, testReqID)
	ok, err := store.reserve(context.Background(), key, idempEntry{
		InProgress:  true,
		BodySHA256:  bodyHash(body),
		RequestID:   testReqID,
		RequestAtMS: time.Now().UnixMilli(),
		CreatedAt:   nowUTC(),
	})
	if err != nil || !ok {
		t.Fatalf("seed reserve: ok=%v err=%v", ok, err)
	}

	rec := serve(t, e, http.MethodPost, "/loans", bytes.NewReader(body), goodHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("in progress: want 409, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestIdempotency_ConflictOnBodyMismatch(t *testing.T) {
	rdb := newRedisTB(t)
	e := setupEcho(rdb, 2*time.Minute, createdHandler)

	store := replayStore{rdb: rdb}
	key := buildKey(http.MethodPost, "/loans", testFarmer, testReqID)
	err := store.finish(context.Background(), key, idempEntry{
		Code:       http.StatusCreated,
		Body:       []byte(`{"ok":true}`),
		BodySHA256: bodyHash([]byte(`{"x":1}`)),
		RequestID:  testReqID,
		CreatedAt:  nowUTC(),
	}, 5*time.Minute)
	if err != nil {
		t.Fatalf("seed finish: %v", err)
	}

	rec := serve(t, e, http.MethodPost, "/loans", bytes.NewReader([]byte(`{"x":2}`)), goodHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("body mismatch: want 409, got %d", rec.Code)
	}
}

func TestIdempotency_StoreUnavailable(t *testing.T) {
	// closed port: SetNX fails fast
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	e := setupEcho(rdb, time.Minute, createdHandler)

	rec := serve(t, e, http.MethodPost, "/loans", bytes.NewReader([]byte(`{}`)), goodHeaders())
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store down: want 503, got %d", rec.Code)
	}
}
