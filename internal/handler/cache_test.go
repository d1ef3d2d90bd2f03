package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRouteCache_GetSet(t *testing.T) {
	cache := NewRouteCache(WithCacheTTL(time.Minute), WithCacheSize(8))

	key := HashRequest("user-a", []byte(`{"prompt": "hello"}`))
	if _, found := cache.Get(key); found {
		t.Error("Get() on empty cache found an entry")
	}

	cache.Set(key, []byte(`{"success": true}`))
	resp, found := cache.Get(key)
	if !found {
		t.Fatal("Get() after Set() not found")
	}
	if string(resp) != `{"success": true}` {
		t.Errorf("cached response = %s", resp)
	}

	hits, misses, size := cache.Stats()
	if hits != 1 || misses != 1 || size != 1 {
		t.Errorf("Stats() = %d/%d/%d, want 1/1/1", hits, misses, size)
	}
}

func TestRouteCache_Expiry(t *testing.T) {
	cache := NewRouteCache(WithCacheTTL(20*time.Millisecond), WithCacheSize(8))

	key := HashRequest("user-a", []byte("body"))
	cache.Set(key, []byte("resp"))
	if _, found := cache.Get(key); !found {
		t.Fatal("entry missing before TTL")
	}

	time.Sleep(40 * time.Millisecond)
	if _, found := cache.Get(key); found {
		t.Error("entry still present after TTL")
	}
}

func TestRouteCache_SizeBound(t *testing.T) {
	cache := NewRouteCache(WithCacheTTL(time.Minute), WithCacheSize(2))

	cache.Set("a", []byte("1"))
	cache.Set("b", []byte("2"))
	cache.Set("c", []byte("3"))

	_, _, size := cache.Stats()
	if size > 2 {
		t.Errorf("size = %d, want at most 2", size)
	}
}

func TestHashRequest_Deterministic(t *testing.T) {
	a := HashRequest("alice", []byte(`{"prompt": "x"}`))
	b := HashRequest("alice", []byte(`{"prompt": "x"}`))
	c := HashRequest("alice", []byte(`{"prompt": "y"}`))
	d := HashRequest("bob", []byte(`{"prompt": "x"}`))

	if a != b {
		t.Error("same identity and body hashed differently")
	}
	if a == c {
		t.Error("different bodies hashed identically")
	}
	if a == d {
		t.Error("different identities hashed identically for the same body")
	}
}

func TestCacheMiddleware(t *testing.T) {
	cache := NewRouteCache(WithCacheTTL(time.Minute), WithCacheSize(8))

	var handlerCalls int32
	engine := gin.New()
	engine.Use(CacheMiddleware(cache, nil))
	engine.POST("/model/route", func(c *gin.Context) {
		atomic.AddInt32(&handlerCalls, 1)
		c.JSON(http.StatusOK, gin.H{"success": true, "data": "fresh"})
	})

	body := `{"tier": 1, "provider": "openai", "prompt": "hi", "userId": "u"}`
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/model/route", strings.NewReader(body))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("call %d status = %d", i+1, w.Code)
		}
		if !strings.Contains(w.Body.String(), "fresh") {
			t.Fatalf("call %d body = %s", i+1, w.Body.String())
		}
	}

	if got := atomic.LoadInt32(&handlerCalls); got != 1 {
		t.Errorf("handler ran %d times, want 1 (subsequent calls cached)", got)
	}
}

func TestCacheMiddleware_PartitionsByIdentity(t *testing.T) {
	cache := NewRouteCache(WithCacheTTL(time.Minute), WithCacheSize(8))

	var handlerCalls int32
	engine := gin.New()
	engine.Use(JWTAuthMiddleware(testJWTSecret))
	engine.Use(CacheMiddleware(cache, nil))
	engine.POST("/model/route", func(c *gin.Context) {
		atomic.AddInt32(&handlerCalls, 1)
		c.JSON(http.StatusOK, gin.H{"served_for": authIdentity(c, "")})
	})

	body := `{"tier": 2, "provider": "openai", "prompt": "hi"}`
	send := func(token string) string {
		req := httptest.NewRequest(http.MethodPost, "/model/route", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		return w.Body.String()
	}

	aliceToken := signToken(t, "alice", 2)
	bobToken := signToken(t, "bob", 2)

	if got := send(aliceToken); !strings.Contains(got, "alice") {
		t.Errorf("alice response = %s", got)
	}
	if got := send(bobToken); !strings.Contains(got, "bob") {
		t.Errorf("bob response = %s, identical body must not serve alice's entry", got)
	}
	if got := send(aliceToken); !strings.Contains(got, "alice") {
		t.Errorf("alice repeat response = %s", got)
	}

	// Two distinct entries were built, the third call was a hit.
	if got := atomic.LoadInt32(&handlerCalls); got != 2 {
		t.Errorf("handler ran %d times, want 2", got)
	}
}

func TestCacheMiddleware_SkipsErrorResponses(t *testing.T) {
	cache := NewRouteCache(WithCacheTTL(time.Minute), WithCacheSize(8))

	var handlerCalls int32
	engine := gin.New()
	engine.Use(CacheMiddleware(cache, nil))
	engine.POST("/model/route", func(c *gin.Context) {
		atomic.AddInt32(&handlerCalls, 1)
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false})
	})

	body := `{"tier": 1}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/model/route", strings.NewReader(body))
		engine.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := atomic.LoadInt32(&handlerCalls); got != 2 {
		t.Errorf("handler ran %d times, want 2 (errors never cached)", got)
	}
}

func TestCacheMiddleware_IgnoresOtherPaths(t *testing.T) {
	cache := NewRouteCache(WithCacheTTL(time.Minute), WithCacheSize(8))

	var handlerCalls int32
	engine := gin.New()
	engine.Use(CacheMiddleware(cache, nil))
	engine.POST("/model/plan", func(c *gin.Context) {
		atomic.AddInt32(&handlerCalls, 1)
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/model/plan", strings.NewReader(`{"query": "x"}`))
		engine.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := atomic.LoadInt32(&handlerCalls); got != 2 {
		t.Errorf("handler ran %d times, want 2 (plan endpoint never cached)", got)
	}
}
