package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepulse/internal/uptime"
)

func TestPrintResult(t *testing.T) {
	anchor := time.Date(2024, 3, 4, 21, 0, 0, 0, time.UTC)
	res := uptime.Result{
		StoreID:  "s1",
		Anchor:   anchor,
		Observed: true,
		LastHour: uptime.Totals{Uptime: time.Hour, Business: time.Hour},
		LastDay:  uptime.Totals{Uptime: 6 * time.Hour, Downtime: time.Hour, Business: 8 * time.Hour},
	}

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, res, time.UTC))
	out := buf.String()

	assert.Contains(t, out, "store s1 anchored at 2024-03-04T21:00:00Z")
	assert.Contains(t, out, "last day")
	assert.Contains(t, out, "6.00")
	assert.Contains(t, out, "1.00")
}

func TestPrintResult_NoObservations(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, uptime.Result{StoreID: "ghost"}, time.UTC))
	assert.Contains(t, buf.String(), "store ghost has no observations")
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/storepulse.yaml")
	configPath = ""
	assert.Equal(t, "/etc/storepulse.yaml", resolveConfigPath())

	configPath = "custom.yaml"
	defer func() { configPath = "" }()
	assert.Equal(t, "custom.yaml", resolveConfigPath())
}
