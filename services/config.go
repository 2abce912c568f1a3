// services/config.go
package services

import (
	"log"
	"os"
	"strconv"
)

// RewardConfig collects the tunable business constants. It is loaded once at
// startup and injected into the engines explicitly, no global mutable state.
type RewardConfig struct {
	// WelcomeBonus is the fixed one-time credit granted at registration,
	// also the base for the level-1 registration referral bonus.
	WelcomeBonus int64

	// RegistrationBonusPercent is applied to WelcomeBonus (not the deposit)
	// for the referrer's one-time first-deposit bonus.
	RegistrationBonusPercent float64

	// Per-deposit commission percentages for the three ancestry levels.
	ReferralLevel1Percent float64
	ReferralLevel2Percent float64
	ReferralLevel3Percent float64

	// SuperAdminPhone identifies the bootstrap administrator account.
	SuperAdminPhone string
}

// LoadRewardConfig reads the reward constants from the environment, falling
// back to the platform defaults (300-unit welcome bonus, 24% registration
// bonus, 5/3/2 deposit commissions).
func LoadRewardConfig() RewardConfig {
	cfg := RewardConfig{
		WelcomeBonus:             envInt64("WELCOME_BONUS", 300),
		RegistrationBonusPercent: envFloat("REGISTRATION_BONUS_PERCENT", 24),
		ReferralLevel1Percent:    envFloat("REFERRAL_LEVEL1_PERCENT", 5),
		ReferralLevel2Percent:    envFloat("REFERRAL_LEVEL2_PERCENT", 3),
		ReferralLevel3Percent:    envFloat("REFERRAL_LEVEL3_PERCENT", 2),
		SuperAdminPhone:          os.Getenv("SUPER_ADMIN_PHONE"),
	}
	return cfg
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("⚠️ invalid %s=%q, using default %d", key, raw, fallback)
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("⚠️ invalid %s=%q, using default %v", key, raw, fallback)
		return fallback
	}
	return v
}
