// Package redis provides Redis connection options.
package redis

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/persona-assistant/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// PasswordEnv 未通过配置提供密码时读取的环境变量。
const PasswordEnv = "REDIS_PASSWORD"

// Options defines configuration options for Redis.
type Options struct {
	Host         string        `json:"host" mapstructure:"host"`
	Port         int           `json:"port" mapstructure:"port"`
	Password     string        `json:"-" mapstructure:"password"`
	Database     int           `json:"database" mapstructure:"database"`
	MaxRetries   int           `json:"max-retries" mapstructure:"max-retries"`
	PoolSize     int           `json:"pool-size" mapstructure:"pool-size"`
	DialTimeout  time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`
	ReadTimeout  time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Host:         "127.0.0.1",
		Port:         6379,
		MaxRetries:   3,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns host:port.
func (o *Options) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// String returns a representation with the password redacted.
func (o *Options) String() string {
	password := ""
	if o.Password != "" {
		password = "[REDACTED]"
	}
	return fmt.Sprintf("Redis{addr=%s, password=%s, database=%d}", o.Addr(), password, o.Database)
}

// AddFlags adds flags for Redis options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "redis."
	fs.StringVar(&o.Host, p+"host", o.Host, "Redis host.")
	fs.IntVar(&o.Port, p+"port", o.Port, "Redis port.")
	fs.IntVar(&o.Database, p+"database", o.Database, "Redis database.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Redis max retries.")
	fs.IntVar(&o.PoolSize, p+"pool-size", o.PoolSize, "Redis pool size.")
	fs.DurationVar(&o.DialTimeout, p+"dial-timeout", o.DialTimeout, "Redis dial timeout.")
	fs.DurationVar(&o.ReadTimeout, p+"read-timeout", o.ReadTimeout, "Redis read timeout.")
	fs.DurationVar(&o.WriteTimeout, p+"write-timeout", o.WriteTimeout, "Redis write timeout.")
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Host == "" {
		errs = append(errs, fmt.Errorf("redis host is required"))
	}
	if o.Port <= 0 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("redis port %d out of range", o.Port))
	}
	if o.Database < 0 {
		errs = append(errs, fmt.Errorf("redis database must not be negative"))
	}
	return errs
}

// Complete 从环境变量补全密码。
func (o *Options) Complete() error {
	if o.Password == "" {
		o.Password = os.Getenv(PasswordEnv)
	}
	return nil
}
