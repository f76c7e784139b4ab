package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the server and CLI need at startup.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Predictor PredictorConfig `yaml:"predictor"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SlowRequest    time.Duration `yaml:"slow_request"`
}

// PredictorConfig locates the model artifacts and the external predictor script.
type PredictorConfig struct {
	ModelPath        string   `yaml:"model_path"`
	ScalerPath       string   `yaml:"scaler_path"`
	FeatureNamesPath string   `yaml:"feature_names_path"`
	Script           string   `yaml:"script"`
	WorkDir          string   `yaml:"work_dir"`
	Interpreters     []string `yaml:"interpreters"`

	// Timeout bounds each interpreter attempt; 0 disables it. The server's
	// request timeout still bounds the whole chain.
	Timeout time.Duration `yaml:"timeout"`
}

// DatabaseConfig is optional; without a URL recommendation rules live in memory.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default mirrors the layout the predictor script expects.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "3000",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   90 * time.Second,
			IdleTimeout:    60 * time.Second,
			RequestTimeout: 75 * time.Second,
			SlowRequest:    2 * time.Second,
		},
		Predictor: PredictorConfig{
			ModelPath:        "ml/heart_disease_model.pkl",
			ScalerPath:       "ml/scaler.pkl",
			FeatureNamesPath: "ml/feature_names.json",
			Script:           "ml/predict.py",
			Interpreters:     []string{"python3", "python"},
			Timeout:          30 * time.Second,
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}

// Load builds the config from defaults, an optional YAML file, an optional
// .env file in the working directory and finally the process environment.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORT")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Predictor.ModelPath, "MODEL_PATH")
	setString(&c.Predictor.ScalerPath, "SCALER_PATH")
	setString(&c.Predictor.FeatureNamesPath, "FEATURE_NAMES_PATH")
	setString(&c.Predictor.Script, "PREDICTOR_SCRIPT")
	setString(&c.Predictor.WorkDir, "PREDICTOR_WORKDIR")

	if v := os.Getenv("PREDICTOR_INTERPRETERS"); v != "" {
		var interpreters []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				interpreters = append(interpreters, s)
			}
		}
		c.Predictor.Interpreters = interpreters
	}

	if v := os.Getenv("PREDICTOR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PREDICTOR_TIMEOUT %q: %w", v, err)
		}
		c.Predictor.Timeout = d
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if len(c.Predictor.Interpreters) == 0 {
		return errors.New("at least one predictor interpreter is required")
	}
	for i, name := range c.Predictor.Interpreters {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("predictor interpreter %d is empty", i)
		}
	}
	if c.Predictor.Script == "" {
		return errors.New("predictor script is required")
	}
	if c.Predictor.Timeout < 0 {
		return fmt.Errorf("predictor timeout must not be negative, got %s", c.Predictor.Timeout)
	}
	return nil
}
