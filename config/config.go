package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用配置
type AppConfig struct {
	Host     string     `mapstructure:"host"`
	Port     int        `mapstructure:"port"`
	LogLevel string     `mapstructure:"log_level"`
	Game     GameConfig `mapstructure:"game"`
}

// GameConfig 游戏规则相关配置，均有默认值
type GameConfig struct {
	MinPlayers           int           `mapstructure:"min_players"`
	MaxPlayers           int           `mapstructure:"max_players"`
	RoleRevealSeconds    int           `mapstructure:"role_reveal_seconds"`
	WordSelectionSeconds int           `mapstructure:"word_selection_seconds"`
	DayPhaseSeconds      int           `mapstructure:"day_phase_seconds"`
	WerewolfGuessSeconds int           `mapstructure:"werewolf_guess_seconds"`
	WordOptionCount      int           `mapstructure:"word_option_count"`
	WordFetchTimeout     time.Duration `mapstructure:"word_fetch_timeout"`
}

// InitConfig 加载配置：默认值 < 配置文件 < 环境变量
func InitConfig() (*AppConfig, error) {
	v := viper.New()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("game.min_players", 3)
	v.SetDefault("game.max_players", 10)
	v.SetDefault("game.role_reveal_seconds", 8)
	v.SetDefault("game.word_selection_seconds", 30)
	v.SetDefault("game.day_phase_seconds", 240)
	v.SetDefault("game.werewolf_guess_seconds", 30)
	v.SetDefault("game.word_option_count", 5)
	v.SetDefault("game.word_fetch_timeout", 3*time.Second)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("puppywolf")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 配置文件可以不存在，缺失时完全依赖默认值和环境变量
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
