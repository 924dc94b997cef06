package gateway

import (
	"crypto/md5"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// CacheEntry 缓存条目
type CacheEntry struct {
	Data        []byte
	ContentType string
	ExpiresAt   time.Time
	ETag        string
}

// MemoryCache 内存缓存，过期条目在读写时淘汰
type MemoryCache struct {
	entries    map[string]*CacheEntry
	mutex      sync.Mutex
	MaxEntries int
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]*CacheEntry),
		MaxEntries: maxEntries,
	}
}

// Get 获取未过期的缓存条目
func (mc *MemoryCache) Get(key string, now time.Time) *CacheEntry {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	entry, ok := mc.entries[key]
	if !ok {
		return nil
	}
	if now.After(entry.ExpiresAt) {
		delete(mc.entries, key)
		return nil
	}
	return entry
}

// Set 设置缓存条目，超过上限时先淘汰过期条目再淘汰最早过期的
func (mc *MemoryCache) Set(key string, entry *CacheEntry, now time.Time) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if len(mc.entries) >= mc.MaxEntries {
		var oldestKey string
		for k, e := range mc.entries {
			if now.After(e.ExpiresAt) {
				delete(mc.entries, k)
				continue
			}
			if oldestKey == "" || e.ExpiresAt.Before(mc.entries[oldestKey].ExpiresAt) {
				oldestKey = k
			}
		}
		if len(mc.entries) >= mc.MaxEntries && oldestKey != "" {
			delete(mc.entries, oldestKey)
		}
	}

	mc.entries[key] = entry
}

// Len 条目数量
func (mc *MemoryCache) Len() int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	return len(mc.entries)
}

// CacheMiddleware 缓存排行榜这类读多写少的GET响应
type CacheMiddleware struct {
	cache *MemoryCache

	// 路径前缀对应的缓存时间
	CacheTTL map[string]time.Duration
}

// NewCacheMiddleware 创建缓存中间件
func NewCacheMiddleware() *CacheMiddleware {
	return &CacheMiddleware{
		cache: NewMemoryCache(1000),
		CacheTTL: map[string]time.Duration{
			"/stats/leaderboard": 30 * time.Second,
			"/stats/rank/":       30 * time.Second,
			"/stats/history/":    time.Minute,
		},
	}
}

// Middleware 缓存中间件
func (cm *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ttl, ok := cm.ttlFor(r.URL.Path)
		if r.Method != http.MethodGet || !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := r.URL.RequestURI()
		now := time.Now()
		if entry := cm.cache.Get(key, now); entry != nil {
			w.Header().Set("ETag", entry.ETag)
			if r.Header.Get("If-None-Match") == entry.ETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("Content-Type", entry.ContentType)
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			w.Write(entry.Data)
			return
		}

		recorder := &cacheResponseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode == http.StatusOK && len(recorder.body) > 0 {
			cm.cache.Set(key, &CacheEntry{
				Data:        recorder.body,
				ContentType: w.Header().Get("Content-Type"),
				ExpiresAt:   now.Add(ttl),
				ETag:        fmt.Sprintf(`"%x"`, md5.Sum(recorder.body)),
			}, now)
		}
	})
}

// ttlFor 路径对应的缓存时间
func (cm *CacheMiddleware) ttlFor(path string) (time.Duration, bool) {
	for prefix, ttl := range cm.CacheTTL {
		if strings.HasPrefix(path, prefix) {
			return ttl, true
		}
	}
	return 0, false
}

// cacheResponseRecorder 记录状态码和响应体
type cacheResponseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

// WriteHeader 记录状态码
func (crr *cacheResponseRecorder) WriteHeader(code int) {
	crr.statusCode = code
	crr.ResponseWriter.WriteHeader(code)
}

// Write 记录响应体
func (crr *cacheResponseRecorder) Write(data []byte) (int, error) {
	crr.body = append(crr.body, data...)
	return crr.ResponseWriter.Write(data)
}
