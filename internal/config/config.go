package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	DatabaseURL string
	// ChunkSizeRows is the row window used by the chunked loader.
	ChunkSizeRows int
	// EncodingBufferBytes bounds the encoding conversion buffer.
	EncodingBufferBytes int
	// MaxInMemoryBytes is the normalized-file size above which the loader
	// switches from whole-file to chunked processing.
	MaxInMemoryBytes int64
	// SerproMotivosURL overrides the default SERPRO endpoint when set.
	SerproMotivosURL string
	// Debug enables periodic memory diagnostics.
	Debug bool
}

func New() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	cfg := &Config{
		DatabaseURL:         databaseURL,
		ChunkSizeRows:       1_000_000,
		EncodingBufferBytes: 4 * 1024 * 1024,
		MaxInMemoryBytes:    512 * 1024 * 1024,
		SerproMotivosURL:    os.Getenv("SERPRO_MOTIVOS_URL"),
		Debug:               os.Getenv("DEBUG") == "true",
	}

	var err error
	cfg.ChunkSizeRows, err = getEnvAsInt("CHUNK_SIZE_ROWS", cfg.ChunkSizeRows)
	if err != nil {
		return nil, err
	}

	cfg.EncodingBufferBytes, err = getEnvAsInt("ENCODING_BUFFER_BYTES", cfg.EncodingBufferBytes)
	if err != nil {
		return nil, err
	}

	cfg.MaxInMemoryBytes, err = getEnvAsInt64("MAX_IN_MEMORY_BYTES", cfg.MaxInMemoryBytes)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}

	return value, nil
}

func getEnvAsInt64(key string, defaultValue int64) (int64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}

	return value, nil
}
