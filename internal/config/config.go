package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string            `yaml:"env" env:"FLEXLAB_ENV" env-default:"prod"`
	Testbed     TestbedConfig     `yaml:"testbed"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Journal     JournalConfig     `yaml:"journal"`
	HTTP        HTTPConfig        `yaml:"http"`
	Storage     StorageConfig     `yaml:"storage"`
	Log         LogConfig         `yaml:"log"`
}

type TestbedConfig struct {
	Host           string        `yaml:"host" env:"FLEXLAB_HOST" env-default:"128.3.20.130"`
	Port           int           `yaml:"port" env:"FLEXLAB_PORT" env-default:"22"`
	Timeout        time.Duration `yaml:"timeout" env:"FLEXLAB_TIMEOUT" env-default:"30s"`
	PrivateKeyPath string        `yaml:"private_key" env:"FLEXLAB_PRIVATE_KEY"`
	HostKeyPolicy  string        `yaml:"host_key_policy" env:"FLEXLAB_HOST_KEY_POLICY" env-default:"tofu"`
	KnownHostsPath string        `yaml:"known_hosts" env:"FLEXLAB_KNOWN_HOSTS"`
}

type CredentialsConfig struct {
	// Path of the user/password file. Empty means ~/.flexlab.cfg.
	Path string `yaml:"path" env:"FLEXLAB_CREDENTIALS"`
}

type JournalConfig struct {
	Enabled bool          `yaml:"enabled" env:"FLEXLAB_JOURNAL_ENABLED" env-default:"false"`
	Path    string        `yaml:"path" env:"FLEXLAB_JOURNAL_PATH" env-default:"/var/lib/flexlab/journal.db"`
	MaxAge  time.Duration `yaml:"max_age" env-default:"168h"`
}

type HTTPConfig struct {
	Address      string        `yaml:"address" env:"FLEXLAB_HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"60s"`
}

type StorageConfig struct {
	Endpoint  string `yaml:"endpoint" env:"FLEXLAB_S3_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"FLEXLAB_S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"FLEXLAB_S3_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"FLEXLAB_S3_BUCKET"`
	Secure    bool   `yaml:"secure" env:"FLEXLAB_S3_SECURE" env-default:"false"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"FLEXLAB_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"FLEXLAB_LOG_FORMAT" env-default:"text"`
}

// MustLoad reads the config from configPath, CONFIG_PATH or
// config/config.yaml. When no file exists at the default location the
// config is built from the environment alone; an explicitly named file
// that does not exist is fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func Load(configPath string) (*Config, error) {
	explicit := true
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = "config/config.yaml"
		explicit = false
	}

	var cfg Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if explicit {
			return nil, &FileError{Path: configPath, Err: err}
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, &FileError{Path: "environment", Err: err}
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, &FileError{Path: configPath, Err: err}
	}

	return &cfg, nil
}

type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return "failed to read config " + e.Path + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}
