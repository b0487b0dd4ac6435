package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/career-planner/internal/limits"
)

const (
	app       = "career-planner"
	envPrefix = "CAREER"
)

type Config struct {
	AI      AIConfig      `mapstructure:"ai"`
	Index   IndexConfig   `mapstructure:"index"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Store   StoreConfig   `mapstructure:"store"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Limits  limits.Limits `mapstructure:"limits"`
}

type AIConfig struct {
	Provider string       `mapstructure:"provider"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey              string  `mapstructure:"api-key"`
	APIKeyFile          string  `mapstructure:"api-key-file"`
	Model               string  `mapstructure:"model"`
	EmbeddingModel      string  `mapstructure:"embedding-model"`
	EmbeddingDimensions int     `mapstructure:"embedding-dimensions"`
	RequestsPerSecond   float64 `mapstructure:"requests-per-second"`
	MaxLogLength        int     `mapstructure:"max-log-length"`
	ThinkingBudget      int     `mapstructure:"thinking-budget"`
}

type IndexConfig struct {
	VacanciesDir string `mapstructure:"vacancies-dir"`
	CoursesDir   string `mapstructure:"courses-dir"`
}

type CatalogConfig struct {
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	File     FileConfig     `mapstructure:"file"`
}

type PostgresConfig struct {
	DSN     string `mapstructure:"dsn"`
	DSNFile string `mapstructure:"dsn-file"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// FileConfig points at JSON array dumps of both catalogs.
type FileConfig struct {
	Vacancies string `mapstructure:"vacancies"`
	Courses   string `mapstructure:"courses"`
}

type StoreConfig struct {
	Driver string       `mapstructure:"driver"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type CacheConfig struct {
	RedisURL     string        `mapstructure:"redis-url"`
	RedisURLFile string        `mapstructure:"redis-url-file"`
	TTL          time.Duration `mapstructure:"ttl"`
	MaxEntries   int           `mapstructure:"max-entries"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "career-planner matches profiles to vacancies and courses and builds learning trajectories",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("index.vacancies-dir", "data/index/vacancies")
	viper.SetDefault("index.courses-dir", "data/index/courses")
	viper.SetDefault("catalog.driver", "file")
	viper.SetDefault("catalog.file.vacancies", "data/vacancies.json")
	viper.SetDefault("catalog.file.courses", "data/courses.json")
	viper.SetDefault("catalog.mongo.database", "career")
	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.sqlite.path", app+".db")
	viper.SetDefault("store.mongo.database", "career")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is career-planner.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// An explicit config file must parse; the default one is optional.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}
	config.Limits = config.Limits.WithDefaults()

	return config, nil
}
