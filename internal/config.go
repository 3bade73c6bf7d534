package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	HttpPort int    `env:"HTTP_PORT,default=8000"`
	GrpcPort int    `env:"GRPC_PORT,default=9000"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH"`

	JwtSecret         string        `env:"JWT_SECRET"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AuthEnabled       bool          `env:"AUTH_ENABLED,default=true"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=2s"`
	PersistTimeout       time.Duration `env:"PERSIST_TIMEOUT,default=5s"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=3s"`
	EventBufferSize      int           `env:"EVENT_BUFFER_SIZE,default=1024"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=10s"`
	RoomShards           int           `env:"ROOM_SHARDS,default=32"`
	SendRatePerSecond    float64       `env:"SEND_RATE_PER_SECOND,default=10"`
	SendBurst            int           `env:"SEND_BURST,default=20"`
	MaxBodyLength        int           `env:"MAX_BODY_LENGTH,default=4096"`
	MaxAttachments       int           `env:"MAX_ATTACHMENTS,default=10"`

	CensoredDir          string `env:"CENSORED_DIR"`
	CensoredWords        string `env:"CENSORED_WORDS"`
	CharacterReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`

	NatsURL           string `env:"NATS_URL"`
	NatsSubjectPrefix string `env:"NATS_SUBJECT_PREFIX,default=chat"`
	NatsStream        string `env:"NATS_STREAM,default=PAIR_CHAT"`
}

// LoadConfig reads the environment, after loading a .env file when one exists.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if c.AuthEnabled && c.JwtSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_ENABLED is true")
	}
	if _, err := CharacterRune(c.CharacterReplacement); err != nil {
		return err
	}
	if c.PersistTimeout <= 0 || c.DeliveryTimeout <= 0 {
		return fmt.Errorf("PERSIST_TIMEOUT and DELIVERY_TIMEOUT must be positive")
	}
	return nil
}

func (c Config) HttpAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HttpPort)
}

func (c Config) GrpcAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GrpcPort)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
