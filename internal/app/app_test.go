package app

import (
	"testing"
	"time"

	"github.com/hellorun/server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginAllowList(t *testing.T) {
	list := originAllowList{"https://hellorun.test", "*.hellorun.app", "localhost:*"}

	assert.True(t, list.allows("https://hellorun.test"))
	assert.True(t, list.allows("https://HelloRun.test"))
	assert.True(t, list.allows("https://admin.hellorun.app"))
	assert.True(t, list.allows("http://localhost:5173"))
	assert.False(t, list.allows("https://hellorun.app.evil.test"))
	assert.False(t, list.allows("https://evil.test"))
	assert.False(t, list.allows("http://127.0.0.1:5173"))
}

func TestCorsConfig(t *testing.T) {
	dev := corsConfig(&config.AppConfig{Env: "development", AllowedOrigins: []string{"https://hellorun.test"}})
	assert.True(t, dev.AllowOriginFunc("https://anything.test"))

	prod := corsConfig(&config.AppConfig{Env: "production", AllowedOrigins: []string{"https://hellorun.test"}})
	assert.True(t, prod.AllowOriginFunc("https://hellorun.test"))
	assert.False(t, prod.AllowOriginFunc("https://anything.test"))
	assert.Contains(t, prod.AllowHeaders, "x-idempotence")
}

func TestParseTimezoneLocation(t *testing.T) {
	loc, err := parseTimezoneLocation("+08:00")
	require.NoError(t, err)
	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 8*3600, offset)

	loc, err = parseTimezoneLocation("-03:30")
	require.NoError(t, err)
	_, offset = time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, -(3*3600 + 30*60), offset)

	loc, err = parseTimezoneLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = parseTimezoneLocation("+25:00")
	assert.Error(t, err)
	_, err = parseTimezoneLocation("Mars/Olympus")
	assert.Error(t, err)
}
