package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/meals"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/mosque"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/pipeline"
)

//go:embed config.yml
var embeddedConfig []byte

// JWTConfig is what the auth middleware needs to verify access tokens.
type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

type Listener struct {
	Port      string `mapstructure:"port"`
	CertFile  string `mapstructure:"certFile"`
	KeyFile   string `mapstructure:"keyFile"`
	EnableTLS bool   `mapstructure:"enableTLS"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		ExternalAPI Listener `mapstructure:"externalAPI"`
		Pprof       Listener `mapstructure:"pprof"`
		Prometheus  Listener `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	// Storage selects the itinerary store: "postgres", "mongo" or "memory".
	Storage struct {
		Driver string `mapstructure:"driver"`
		Mongo  struct {
			URI      string `mapstructure:"uri"`
			Database string `mapstructure:"database"`
		} `mapstructure:"mongo"`
	} `mapstructure:"storage"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
		// requests per minute per client on itinerary generation
		GenerateRateLimit int      `mapstructure:"generate_rate_limit"`
		AllowedOrigins    []string `mapstructure:"allowed_origins"`
	} `mapstructure:"server"`
	JWT       JWTConfig        `mapstructure:"jwt"`
	Pipeline  pipeline.Config  `mapstructure:"pipeline"`
	Meals     meals.MealPolicy `mapstructure:"meals"`
	Mosque    mosque.Policy    `mapstructure:"mosque"`
	Itinerary struct {
		DraftTTL      time.Duration `mapstructure:"draft_ttl"`
		SweepInterval time.Duration `mapstructure:"sweep_interval"`
	} `mapstructure:"itinerary"`
	Maps struct {
		APIKey            string        `mapstructure:"api_key"`
		RequestsPerSecond int           `mapstructure:"requests_per_second"`
		WalkMaxMeters     int           `mapstructure:"walk_max_meters"`
		RestaurantRadius  uint          `mapstructure:"restaurant_radius"`
		RestaurantTTL     time.Duration `mapstructure:"restaurant_ttl"`
		DirectionsTimeout time.Duration `mapstructure:"directions_timeout"`
	} `mapstructure:"maps"`
	Currency struct {
		RatesURL string        `mapstructure:"rates_url"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"currency"`
	LLM struct {
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"llm"`
}

// envBindings maps secrets onto the environment variables operators set.
var envBindings = map[string]string{
	"jwt.secret_key":                 "JWT_SECRET_KEY",
	"maps.api_key":                   "GOOGLE_MAPS_API_KEY",
	"llm.api_key":                    "GOOGLE_GEMINI_API_KEY",
	"repositories.postgres.password": "POSTGRES_PASSWORD",
	"storage.mongo.uri":              "MONGO_URI",
	"storage.driver":                 "STORAGE_DRIVER",
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
