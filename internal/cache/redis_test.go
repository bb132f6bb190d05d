package cache

import (
	"testing"
	"time"

	"github.com/Domenick1991/skyseat/config"
	"github.com/stretchr/testify/assert"
)

func TestScheduleKey(t *testing.T) {
	assert.Equal(t, "cache:schedule:15", scheduleKey(15))
}

func TestNewRedisCache(t *testing.T) {
	c := NewRedisCache(config.RedisConfig{Addr: "localhost:6379"}, time.Minute)
	assert.NotNil(t, c)
	assert.Equal(t, time.Minute, c.scheduleTTL)
	assert.NoError(t, c.Close())
}
