package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// RuleEnvPrefix prefixes rule threshold overrides, e.g.
// SNOWPACK_RULE_SLAB_WIND_MPH=30.
const RuleEnvPrefix = "SNOWPACK_RULE_"

type ruleThresholds struct {
	MinSnowpackIn      float64 `koanf:"min_snowpack_in"`
	RainOnSnowIn       float64 `koanf:"rain_on_snow_in"`
	CrustMaxTempF      float64 `koanf:"crust_max_temp_f"`
	FreezeMinTempF     float64 `koanf:"freeze_min_temp_f"`
	ThawMaxTempF       float64 `koanf:"thaw_max_temp_f"`
	SlabWindMph        float64 `koanf:"slab_wind_mph"`
	WindRecentSnowDays int     `koanf:"wind_recent_snow_days"`
	SlabSnowfallIn     float64 `koanf:"slab_snowfall_in"`
	StrongSunBake      int     `koanf:"strong_sun_bake"`
}

// LoadRuleThresholds layers rule thresholds, lowest precedence first:
//  1. compiled defaults
//  2. the YAML file at path, if path is set
//  3. SNOWPACK_RULE_* environment variables
func LoadRuleThresholds(path string) (domain.Thresholds, error) {
	d := domain.DefaultThresholds()
	th := ruleThresholds(d)

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return domain.Thresholds{}, fmt.Errorf("load rules config %s: %w", path, err)
		}
	}

	envProvider := env.Provider(RuleEnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, RuleEnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return domain.Thresholds{}, fmt.Errorf("load rule env overrides: %w", err)
	}

	if err := k.UnmarshalWithConf("", &th, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return domain.Thresholds{}, fmt.Errorf("decode rule thresholds: %w", err)
	}

	if th.WindRecentSnowDays < 1 {
		return domain.Thresholds{}, errors.New("wind_recent_snow_days must be at least 1")
	}
	if th.StrongSunBake < 0 || th.StrongSunBake > 100 {
		return domain.Thresholds{}, errors.New("strong_sun_bake must be within 0..100")
	}
	return domain.Thresholds(th), nil
}
