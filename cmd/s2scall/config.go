package main

import (
	"os"
	"strconv"
)

type config struct {
	serverWSURL    string
	directoryURL   string
	metricsAddr    string
	micSampleRate  int
	playSampleRate int
}

func loadConfig() config {
	return config{
		serverWSURL:    envStr("S2S_WS_URL", "ws://localhost:8000/call"),
		directoryURL:   envStr("S2S_HTTP_URL", "http://localhost:8000"),
		metricsAddr:    envStr("METRICS_ADDR", ""),
		micSampleRate:  envInt("MIC_SAMPLE_RATE", 16000),
		playSampleRate: envInt("PLAYBACK_SAMPLE_RATE", 24000),
	}
}

func envStr(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}
