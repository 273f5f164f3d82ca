package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	StaticDir    string
	TickInterval time.Duration
	BoardSize    int
	CellSize     int
	FoodReward   int
	GinMode      string
}

func Default() Config {
	return Config{
		Port:         "3000",
		StaticDir:    "./public",
		TickInterval: 100 * time.Millisecond,
		BoardSize:    400,
		CellSize:     20,
		FoodReward:   10,
	}
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded:", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Default()

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	cfg.GinMode = os.Getenv("GIN_MODE")

	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("parse TICK_INTERVAL: %w", err)
		}
		cfg.TickInterval = d
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"BOARD_SIZE", &cfg.BoardSize},
		{"CELL_SIZE", &cfg.CellSize},
		{"FOOD_REWARD", &cfg.FoodReward},
	}
	for _, it := range ints {
		v := os.Getenv(it.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parse %s: %w", it.key, err)
		}
		*it.dst = n
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}
	if c.CellSize <= 0 {
		return errors.New("cell size must be positive")
	}
	if c.BoardSize <= 0 || c.BoardSize%c.CellSize != 0 {
		return fmt.Errorf("board size %d must be a positive multiple of cell size %d", c.BoardSize, c.CellSize)
	}
	if c.BoardSize/c.CellSize < 2 {
		return errors.New("board needs at least 2 cells per axis")
	}
	if c.FoodReward < 0 {
		return errors.New("food reward must not be negative")
	}
	return nil
}
