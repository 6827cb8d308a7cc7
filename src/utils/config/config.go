package config

import (
	"bytes"
	"errors"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "INDEXER_"

// Config stores global configuration
type Config struct {
	// Is development mode on
	IsDevelopment bool

	// REST API address. API used for monitoring etc.
	RESTListenAddress string

	// Maximum time the indexer will be closing before stop is forced.
	StopTimeout time.Duration

	// Logging level
	LogLevel string

	Database Database
	Ledger   Ledger
	Syncer   Syncer
	Mirror   Mirror
	Anchor   Anchor
	Redis    Redis
}

func setDefaults() {
	viper.SetDefault("IsDevelopment", "false")
	viper.SetDefault("RESTListenAddress", ":7777")
	viper.SetDefault("LogLevel", "DEBUG")
	viper.SetDefault("StopTimeout", "30s")

	setDatabaseDefaults()
	setLedgerDefaults()
	setSyncerDefaults()
	setMirrorDefaults()
	setAnchorDefaults()
	setRedisDefaults()
}

func Default() (config *Config) {
	config, _ = Load("")
	return
}

// Visits every field and registers upper snake case ENV name for it
// Works with embedded structs
func BindEnv(path []string, val reflect.Value) {
	if val.Kind() != reflect.Struct {
		key := strings.ToLower(strings.Join(path, "."))
		env := ENV_PREFIX + strcase.ToScreamingSnake(strings.Join(path, "_"))
		err := viper.BindEnv(key, env)
		if err != nil {
			panic(err)
		}
		return
	}

	// Iterates over struct fields
	for i := 0; i < val.NumField(); i++ {
		newPath := make([]string, len(path))
		copy(newPath, path)
		newPath = append(newPath, val.Type().Field(i).Name)
		BindEnv(newPath, val.Field(i))
	}
}

func decoderConfig(c *mapstructure.DecoderConfig) {
	c.WeaklyTypedInput = true
	c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// Load configuration from file and env
func Load(filename string) (config *Config, err error) {
	// Variables from .env are visible through the environment, real environment takes precedence
	_ = godotenv.Load()

	viper.SetConfigType("json")

	setDefaults()

	BindEnv([]string{}, reflect.ValueOf(Config{}))

	// Empty filename means we use default values
	if filename != "" {
		var content []byte
		/* #nosec */
		content, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}

		err = viper.ReadConfig(bytes.NewBuffer(content))
		if err != nil {
			return nil, err
		}
	}

	config = new(Config)
	err = viper.Unmarshal(config, decoderConfig)
	if err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return
}

func (self *Config) validate() error {
	if self.Syncer.BatchSize <= 0 {
		return errors.New("Syncer.BatchSize must be positive")
	}
	if self.Syncer.PollInterval <= 0 {
		return errors.New("Syncer.PollInterval must be positive")
	}
	return nil
}
