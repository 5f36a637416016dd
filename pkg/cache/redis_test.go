package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyhub-api/pkg/config"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "studyhub:papers:list:abc", Key("papers", "list", "abc"))
	assert.Equal(t, "studyhub:", Key())
}

func TestDigest(t *testing.T) {
	a := Digest("4|final|apex|dbms||50")
	assert.Len(t, a, 40)
	assert.Equal(t, a, Digest("4|final|apex|dbms||50"))
	assert.NotEqual(t, a, Digest("4|final|apex|dbms||51"))
}

func TestOptions(t *testing.T) {
	opts, err := Options(config.RedisConfig{Host: "cache", Port: 6380, Password: "pw", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = Options(config.RedisConfig{URL: "redis://:secret@redis.internal:6379/3", Host: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = Options(config.RedisConfig{URL: "http://not-redis"})
	assert.Error(t, err)
}
