package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"method", "endpoint"},
	)

	// XPAwarded 按动作统计发放的 XP
	XPAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xp_awarded_total",
			Help: "Total XP awarded, by action",
		},
		[]string{"action"},
	)

	BadgesEarned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_earned_total",
			Help: "Total badges granted, by badge name",
		},
		[]string{"badge"},
	)

	// CASConflicts 进度写入时版本冲突次数
	CASConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progression_cas_conflicts_total",
			Help: "Optimistic concurrency conflicts while saving progression",
		},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Redis cache lookups, by cache and result",
		},
		[]string{"cache", "result"},
	)
)

var once sync.Once

// Init 注册所有指标，可重复调用
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			XPAwarded,
			BadgesEarned,
			CASConflicts,
			CacheLookups,
		)
	})
}

// CacheHit / CacheMiss 记录缓存命中情况
func CacheHit(cache string) {
	CacheLookups.WithLabelValues(cache, "hit").Inc()
}

func CacheMiss(cache string) {
	CacheLookups.WithLabelValues(cache, "miss").Inc()
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
