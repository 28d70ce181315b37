package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, 0, config.RedisDB)
	assert.Equal(t, 1, config.RedisStreamCount)
	assert.Equal(t, "localhost:11211", config.MemcacheAddr)
	assert.Equal(t, 60*time.Second, config.CrawlInterval)
	assert.Equal(t, int64(4), config.MaxConcurrentCrawls)
	assert.Equal(t, 5, config.NotifyMaxAttempts)
	assert.Contains(t, config.JackpotKeywords, "가격오류")
	assert.Contains(t, config.WatchKeywords, "맥캘란")

	// Test with environment variables
	os.Setenv("REDIS_ADDR", "redis.example.com:6379")
	os.Setenv("DATABASE_DSN", "postgres://u:p@db.example.com:5432/deals?sslmode=disable")
	os.Setenv("CRAWL_INTERVAL_SECONDS", "30")
	os.Setenv("MAX_CONCURRENT_CRAWLS", "2")
	os.Setenv("FMKOREA_URL", "https://example.com/fmkorea")
	os.Setenv("WATCH_KEYWORDS", "위스키, 와인 ,")

	config = LoadConfig()
	assert.Equal(t, "redis.example.com:6379", config.RedisAddr)
	assert.Equal(t, "postgres://u:p@db.example.com:5432/deals?sslmode=disable", config.DatabaseDSN)
	assert.Equal(t, 30*time.Second, config.CrawlInterval)
	assert.Equal(t, int64(2), config.MaxConcurrentCrawls)
	assert.Equal(t, "https://example.com/fmkorea", config.FMKoreaURL)
	assert.Equal(t, []string{"위스키", "와인"}, config.WatchKeywords)

	// Clean up
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("DATABASE_DSN")
	os.Unsetenv("CRAWL_INTERVAL_SECONDS")
	os.Unsetenv("MAX_CONCURRENT_CRAWLS")
	os.Unsetenv("FMKOREA_URL")
	os.Unsetenv("WATCH_KEYWORDS")
}

func TestValidate(t *testing.T) {
	config := LoadConfig()
	assert.NoError(t, config.Validate())

	config.MaxConcurrentCrawls = 0
	assert.Error(t, config.Validate())

	config = LoadConfig()
	config.PpomURL = "not a url"
	assert.Error(t, config.Validate())

	config = LoadConfig()
	config.Environment = "staging"
	assert.Error(t, config.Validate())
}
