package shared

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const EnvPrefix = "RESTAURANTS"

// Config keys shared by viper, env vars (RESTAURANTS_<KEY>) and flags.
const (
	KeyConfig          = "config"
	KeyHost            = "host"
	KeyPort            = "port"
	KeyStore           = "store"
	KeyContract        = "contract"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyMetrics         = "metrics"
	KeyShutdownTimeout = "shutdown_timeout"
	KeyServerURL       = "server_url"
	KeyTimeout         = "timeout"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

var validate = newValidator()

// newValidator reports fields by their config key rather than Go name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	Store           string        `mapstructure:"store" validate:"oneof=memory sqlite"`
	Contract        string        `mapstructure:"contract" validate:"omitempty,file"`
	LogLevel        string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"oneof=json text"`
	Metrics         bool          `mapstructure:"metrics"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type ClientConfig struct {
	ServerURL string        `mapstructure:"server_url" validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// NewServerViper returns a viper instance with server defaults and
// environment binding. Callers bind their flags on top of it.
func NewServerViper() *viper.Viper {
	v := newViper()
	v.SetDefault(KeyHost, "")
	v.SetDefault(KeyPort, 3000)
	v.SetDefault(KeyStore, StoreMemory)
	v.SetDefault(KeyContract, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyMetrics, true)
	v.SetDefault(KeyShutdownTimeout, 10*time.Second)
	return v
}

func NewClientViper() *viper.Viper {
	v := newViper()
	v.SetDefault(KeyServerURL, "http://localhost:3000")
	v.SetDefault(KeyTimeout, 20*time.Second)
	return v
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyConfig, "")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func LoadServerConfig(v *viper.Viper) (*ServerConfig, error) {
	var c ServerConfig
	if err := load(v, &c); err != nil {
		return nil, err
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.LogFormat = strings.ToLower(c.LogFormat)
	c.Store = strings.ToLower(c.Store)
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", describe(err))
	}
	return &c, nil
}

func LoadClientConfig(v *viper.Viper) (*ClientConfig, error) {
	var c ClientConfig
	if err := load(v, &c); err != nil {
		return nil, err
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", describe(err))
	}
	return &c, nil
}

func load(v *viper.Viper, out any) error {
	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// describe flattens validator errors into "key: rule" pairs.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: failed %s (got %v)", fe.Field(), rule, fe.Value()))
	}
	return errors.New(strings.Join(parts, "; "))
}
