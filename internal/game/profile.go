package game

import (
	"context"
	"strconv"

	"rams/internal/model"
	"rams/internal/ports"

	"github.com/sirupsen/logrus"
)

const (
	KeyBalance       = "userBalance"
	KeyWalletAddress = "walletAddress"
	KeySoundEnabled  = "soundEnabled"
	KeyVolume        = "volume"
)

func DefaultProfile() model.Profile {
	return model.Profile{
		Balance:      1000,
		SoundEnabled: true,
		Volume:       0.7,
	}
}

// LoadProfile reads the profile from kv. Missing or malformed values keep
// their defaults; read failures are logged and never returned.
func LoadProfile(ctx context.Context, kv ports.KeyValueStore, log logrus.FieldLogger) model.Profile {
	p := DefaultProfile()
	if kv == nil {
		return p
	}
	read := func(key string) (string, bool) {
		v, ok, err := kv.Get(ctx, key)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("profile read failed, using default")
			return "", false
		}
		return v, ok
	}

	if v, ok := read(KeyBalance); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			p.Balance = int64(f)
		} else {
			log.WithField("value", v).Warn("malformed balance, using default")
		}
	}
	if v, ok := read(KeyWalletAddress); ok {
		p.WalletAddress = v
	}
	if v, ok := read(KeySoundEnabled); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			p.SoundEnabled = b
		}
	}
	if v, ok := read(KeyVolume); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			p.Volume = f
		}
	}
	return p
}

func formatBalance(b int64) string {
	return strconv.FormatInt(b, 10)
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
