package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"rams/internal/model"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Addr          string
	DBPath        string
	StaticDir     string
	LogLevel      logrus.Level
	PlayerName    string
	BotDelay      time.Duration
	WalletDelay   time.Duration
	ExtendedRules bool
	MinBet        int64
	MaxBet        int64
	BotStake      int64
	Seed          int64
}

// Load reads the configuration from the environment. A .env file in the
// working directory, when present, fills in variables that are not set.
func Load() (Config, error) {
	_ = godotenv.Load()

	c := Config{
		Addr:       getenv("ADDR", ":8080"),
		DBPath:     getenv("DB_PATH", "./rams.db"),
		StaticDir:  getenv("STATIC_DIR", "./static"),
		PlayerName: getenv("PLAYER_NAME", "You"),
	}

	level, err := logrus.ParseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return c, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	c.LogLevel = level

	botDelay, err := intEnv("BOT_DELAY_MS", 800)
	if err != nil {
		return c, err
	}
	c.BotDelay = time.Duration(botDelay) * time.Millisecond

	walletDelay, err := intEnv("WALLET_DELAY_MS", 2000)
	if err != nil {
		return c, err
	}
	c.WalletDelay = time.Duration(walletDelay) * time.Millisecond

	if c.ExtendedRules, err = boolEnv("EXTENDED_RULES", true); err != nil {
		return c, err
	}
	preset := model.ClassicPreset()
	if c.MinBet, err = intEnv("MIN_BET", preset.MinBet); err != nil {
		return c, err
	}
	if c.MaxBet, err = intEnv("MAX_BET", preset.MaxBet); err != nil {
		return c, err
	}
	if c.MinBet <= 0 || c.MinBet > c.MaxBet {
		return c, fmt.Errorf("bet bounds [%d, %d] are invalid", c.MinBet, c.MaxBet)
	}
	if c.BotStake, err = intEnv("BOT_STAKE", preset.BotStake); err != nil {
		return c, err
	}
	if c.Seed, err = intEnv("SEED", 0); err != nil {
		return c, err
	}
	return c, nil
}

// Rules returns the classic rules with the configured overrides applied.
func (c Config) Rules() model.Rules {
	r := model.ClassicPreset()
	r.MinBet = c.MinBet
	r.MaxBet = c.MaxBet
	r.BotStake = c.BotStake
	r.ExtendedRules = c.ExtendedRules
	return r
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
