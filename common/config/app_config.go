package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/janryu/janryu/common/log"
)

// Conf is the process-wide configuration, populated once by Load.
var Conf *Configuration

type Configuration struct {
	AppName      string       `mapstructure:"appName"`
	Log          LogConf      `mapstructure:"log"`
	Ws           WsConf       `mapstructure:"ws"`
	HttpPort     int          `mapstructure:"httpPort"`
	MetricPort   int          `mapstructure:"metricPort"`
	Auth         AuthConf     `mapstructure:"auth"`
	Rules        RulesConf    `mapstructure:"rules"`
	Timers       TimerConf    `mapstructure:"timers"`
	Replay       ReplayConf   `mapstructure:"replay"`
	Relay        RelayConf    `mapstructure:"relay"`
	DatabaseConf DatabaseConf `mapstructure:"database"`
	March        MarchConf    `mapstructure:"march"`
}

type LogConf struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

type WsConf struct {
	Addr            string `mapstructure:"addr"`
	MaxFrameBytes   int64  `mapstructure:"maxFrameBytes"`
	MaxStringBytes  int    `mapstructure:"maxStringBytes"`
	MaxArrayLen     int    `mapstructure:"maxArrayLen"`
	MaxObjectKeys   int    `mapstructure:"maxObjectKeys"`
	MaxDepth        int    `mapstructure:"maxDepth"`
	DecodeStrikes   int    `mapstructure:"decodeStrikes"`
	RatePerSecond   int    `mapstructure:"ratePerSecond"`
	RateBurst       int    `mapstructure:"rateBurst"`
	GraceSeconds    int    `mapstructure:"graceSeconds"`
	MaxConnsPerGame int    `mapstructure:"maxConnsPerGame"`
}

type AuthConf struct {
	TicketSecret string `mapstructure:"ticketSecret"`
	JwtSecret    string `mapstructure:"jwtSecret"`
	JwtExpire    int    `mapstructure:"jwtExpire"` // seconds
}

// RulesConf carries the table rules the engine reads at game start.
type RulesConf struct {
	InitialScore       int    `mapstructure:"initialScore"`
	TargetScore        int    `mapstructure:"targetScore"`
	GameLength         string `mapstructure:"gameLength"` // east | hanchan
	Enchousen          bool   `mapstructure:"enchousen"`
	MaxRonWinners      int    `mapstructure:"maxRonWinners"`
	KanDoraImmediately bool   `mapstructure:"kanDoraImmediately"`
	NumAIPlayers       int    `mapstructure:"numAIPlayers"`
}

type TimerConf struct {
	TurnSeconds         int `mapstructure:"turnSeconds"`
	BankSeconds         int `mapstructure:"bankSeconds"`
	MeldDecisionSeconds int `mapstructure:"meldDecisionSeconds"`
	RoundAdvanceSeconds int `mapstructure:"roundAdvanceSeconds"`
	RoundBonusSeconds   int `mapstructure:"roundBonusSeconds"`
	MaxBankSeconds      int `mapstructure:"maxBankSeconds"`
}

type ReplayConf struct {
	Dir string `mapstructure:"dir"`
}

type RelayConf struct {
	NatsURL string `mapstructure:"natsURL"`
}

type DatabaseConf struct {
	MongoConf MongoConf `mapstructure:"mongo"`
	RedisConf RedisConf `mapstructure:"redis"`
}

type MongoConf struct {
	Url         string `mapstructure:"url"`
	Db          string `mapstructure:"db"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	MinPoolSize int    `mapstructure:"minPoolSize"`
	MaxPoolSize int    `mapstructure:"maxPoolSize"`
}

type RedisConf struct {
	Addr         string   `mapstructure:"addr"`
	ClusterAddrs []string `mapstructure:"clusterAddrs"`
	Password     string   `mapstructure:"password"`
	PoolSize     int      `mapstructure:"poolSize"`
	MinIdleConns int      `mapstructure:"minIdleConns"`
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
}

type MarchConf struct {
	Enabled   bool   `mapstructure:"enabled"`
	PoolID    string `mapstructure:"poolID"`
	BatchSize int    `mapstructure:"batchSize"`
	Interval  int64  `mapstructure:"interval"` // milliseconds
}

// Load reads the config file into Conf. Environment variables override file
// values (dots become underscores, e.g. WS_ADDR).
func Load(configFile string) error {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", configFile, err)
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()

	// Only the log level is safe to change at runtime; everything else is
	// read once at game or room start.
	v.WatchConfig()
	v.OnConfigChange(func(in fsnotify.Event) {
		var next Configuration
		if err := v.Unmarshal(&next); err != nil {
			return
		}
		if Conf != nil && next.Log.Level != Conf.Log.Level {
			Conf.Log.Level = next.Log.Level
			log.SetLevel(next.Log.Level)
		}
	})

	Conf = &cfg
	return nil
}

func (c *Configuration) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "janryu"
	}
	if c.Ws.Addr == "" {
		c.Ws.Addr = ":8090"
	}
	if c.HttpPort == 0 {
		c.HttpPort = 8080
	}
	if c.Ws.MaxFrameBytes == 0 {
		c.Ws.MaxFrameBytes = 4096
	}
	if c.Ws.MaxStringBytes == 0 {
		c.Ws.MaxStringBytes = 1024
	}
	if c.Ws.MaxArrayLen == 0 {
		c.Ws.MaxArrayLen = 64
	}
	if c.Ws.MaxObjectKeys == 0 {
		c.Ws.MaxObjectKeys = 64
	}
	if c.Ws.MaxDepth == 0 {
		c.Ws.MaxDepth = 8
	}
	if c.Ws.DecodeStrikes == 0 {
		c.Ws.DecodeStrikes = 5
	}
	if c.Ws.RatePerSecond == 0 {
		c.Ws.RatePerSecond = 10
	}
	if c.Ws.RateBurst == 0 {
		c.Ws.RateBurst = 2
	}
	if c.Ws.GraceSeconds == 0 {
		c.Ws.GraceSeconds = 30
	}
	if c.Ws.MaxConnsPerGame == 0 {
		// Four seats plus headroom for reconnects racing their
		// predecessor's teardown.
		c.Ws.MaxConnsPerGame = 8
	}
	if c.Rules.InitialScore == 0 {
		c.Rules.InitialScore = 25000
	}
	if c.Rules.TargetScore == 0 {
		c.Rules.TargetScore = 30000
	}
	if c.Rules.GameLength == "" {
		c.Rules.GameLength = "hanchan"
	}
	if c.Rules.MaxRonWinners == 0 {
		c.Rules.MaxRonWinners = 2
	}
	if c.Timers.TurnSeconds == 0 {
		c.Timers.TurnSeconds = 5
	}
	if c.Timers.BankSeconds == 0 {
		c.Timers.BankSeconds = 20
	}
	if c.Timers.MeldDecisionSeconds == 0 {
		c.Timers.MeldDecisionSeconds = 8
	}
	if c.Timers.RoundAdvanceSeconds == 0 {
		c.Timers.RoundAdvanceSeconds = 20
	}
	if c.Timers.MaxBankSeconds == 0 {
		c.Timers.MaxBankSeconds = 60
	}
	if c.Replay.Dir == "" {
		c.Replay.Dir = "replays"
	}
}

// TurnBase returns the free portion of the turn timer.
func (t TimerConf) TurnBase() time.Duration {
	return time.Duration(t.TurnSeconds) * time.Second
}

// Bank returns the initial reserve of the turn timer.
func (t TimerConf) Bank() time.Duration {
	return time.Duration(t.BankSeconds) * time.Second
}

func (t TimerConf) MeldDecision() time.Duration {
	return time.Duration(t.MeldDecisionSeconds) * time.Second
}

func (t TimerConf) RoundAdvance() time.Duration {
	return time.Duration(t.RoundAdvanceSeconds) * time.Second
}

func (t TimerConf) RoundBonus() time.Duration {
	return time.Duration(t.RoundBonusSeconds) * time.Second
}

// MaxBank caps what round bonuses can grow the reserve to.
func (t TimerConf) MaxBank() time.Duration {
	return time.Duration(t.MaxBankSeconds) * time.Second
}
