package container

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/serroba/shortlinks/internal/messaging"
	"go.uber.org/zap/zapcore"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Options configures both binaries. The server reads them from flags and
// SERVICE_* environment variables through humacli.
type Options struct {
	Port        int    `default:"8888" help:"Port to listen on" short:"p" validate:"min=1,max=65535"`
	BaseURL     string `help:"Public base URL of short links, defaults to http://localhost:<port>" validate:"omitempty,url"`
	AliasLength int    `default:"6" help:"Length of generated aliases" validate:"min=4,max=32"`

	Storage     string `default:"memory" help:"Table store backend: memory, redis or postgres" short:"s" validate:"oneof=memory redis postgres"`
	RedisAddr   string `help:"Redis address, enables redis streams and the shared rate limit store" short:"r" validate:"required_if=Storage redis,omitempty,hostname_port"`
	PostgresDSN string `help:"PostgreSQL connection string" validate:"required_if=Storage postgres"`
	KeyPrefix   string `default:"shortlinks" help:"Prefix of every redis key"`
	LinksTable  string `default:"links" help:"Table holding short links" validate:"required,alphanum"`
	ClicksTable string `default:"clicks" help:"Table holding click events" validate:"required,alphanum"`
	UsersTable  string `default:"users" help:"Table holding accounts" validate:"required,alphanum"`
	TokensTable string `default:"refreshtokens" help:"Table holding refresh tokens" validate:"required,alphanum"`

	JWTSecret         string `help:"Secret signing access tokens" validate:"required,min=16"`
	JWTRefreshSecret  string `help:"Secret signing refresh tokens" validate:"required,min=16,nefield=JWTSecret"`
	AccessTTLMinutes  int    `default:"15" help:"Access token lifetime in minutes" validate:"min=1"`
	RefreshTTLHours   int    `default:"168" help:"Refresh token lifetime in hours" validate:"min=1"`
	BcryptCost        int    `default:"12" help:"bcrypt cost for password hashes" validate:"min=4,max=31"`
	CookieSecure      bool   `help:"Mark session cookies Secure"`
	CookieDomain      string `help:"Domain attribute of session cookies" validate:"omitempty,fqdn|hostname"`
	AuthRatePerMinute int    `default:"30" help:"Token bucket refill rate of auth endpoints per client" validate:"min=1"`
	AuthBurst         int    `default:"10" help:"Token bucket size of auth endpoints per client" validate:"min=1"`

	GeoURL       string `help:"Base URL of an ip-api compatible geolocation service, empty disables lookups" validate:"omitempty,url"`
	GeoTimeoutMS int    `default:"2000" help:"Geolocation request timeout in milliseconds" validate:"min=1"`

	ConsumerGroup      string `default:"shortlinks-analytics" help:"Redis streams consumer group"`
	ConsumerMaxRetries int    `default:"3" help:"Retries of a failing analytics handler before the event is dropped" validate:"min=0,max=20"`
	ConsumerRetryMS    int    `default:"100" help:"First retry backoff in milliseconds, doubled on every attempt" validate:"min=0"`
	LogFormat          string `default:"console" help:"Log encoding: console or json" validate:"oneof=console json"`
	LogLevel           string `default:"info" help:"Minimum log level" validate:"loglevel"`
}

// PublicBaseURL returns the prefix of every short URL.
func (o *Options) PublicBaseURL() string {
	if o.BaseURL != "" {
		return o.BaseURL
	}

	return fmt.Sprintf("http://localhost:%d", o.Port)
}

func (o *Options) AccessTTL() time.Duration {
	return time.Duration(o.AccessTTLMinutes) * time.Minute
}

func (o *Options) RefreshTTL() time.Duration {
	return time.Duration(o.RefreshTTLHours) * time.Hour
}

func (o *Options) GeoTimeout() time.Duration {
	return time.Duration(o.GeoTimeoutMS) * time.Millisecond
}

// ConsumerRetry returns the retry options of the analytics consumers. Zero
// keeps the defaults.
func (o *Options) ConsumerRetry() []messaging.GroupOption {
	if o.ConsumerRetryMS == 0 {
		return nil
	}

	return []messaging.GroupOption{
		messaging.WithRetry(o.ConsumerMaxRetries, time.Duration(o.ConsumerRetryMS)*time.Millisecond),
	}
}

// Tables lists every configured table name.
func (o *Options) Tables() []string {
	return []string{o.LinksTable, o.ClicksTable, o.UsersTable, o.TokensTable}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	_, err := zapcore.ParseLevel(fl.Field().String())

	return err == nil
}

// Validate checks the options of the HTTP server.
func (o *Options) Validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	return nil
}
