package cmd

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/skillprobe/interviewer/internal/llm/ollama"
	"github.com/skillprobe/interviewer/internal/secrets"
	"github.com/skillprobe/interviewer/internal/seeds"
)

const (
	app = "interviewer"

	defaultFollowupCap = 1
	defaultMaxSteps    = 500
)

type Config struct {
	SeedFile  string           `mapstructure:"seed-file"`
	Ollama    *OllamaConfig    `mapstructure:"ollama"`
	Interview *InterviewConfig `mapstructure:"interview"`
}

type OllamaConfig struct {
	Host           string  `mapstructure:"host"`
	Model          string  `mapstructure:"model"`
	Temperature    float64 `mapstructure:"temperature"`
	TopP           float64 `mapstructure:"top-p"`
	NumCtx         int     `mapstructure:"num-ctx"`
	NumPredict     int     `mapstructure:"num-predict"`
	EvalNumPredict int     `mapstructure:"eval-num-predict"`
	MaxRetries     int     `mapstructure:"max-retries"`
	TokenFile      string  `mapstructure:"token-file"`
}

type InterviewConfig struct {
	FollowupCap int `mapstructure:"followup-cap"`
	MaxSteps    int `mapstructure:"max-steps"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interviewer is a cli that runs technical interviews against a local Ollama model",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBindings := map[string]string{
		"ollama.host":             "OLLAMA_HOST",
		"ollama.model":            "OLLAMA_MODEL",
		"ollama.temperature":      "OLLAMA_TEMPERATURE",
		"ollama.top-p":            "OLLAMA_TOP_P",
		"ollama.num-ctx":          "OLLAMA_NUM_CTX",
		"ollama.num-predict":      "OLLAMA_NUM_PREDICT",
		"ollama.eval-num-predict": "EVAL_NUM_PREDICT",
		"ollama.token-file":       "OLLAMA_TOKEN_FILE",
		"interview.followup-cap":  "MAX_FOLLOWUPS_PER_Q",
		"interview.max-steps":     "MAX_TOTAL_STEPS",
		"seed-file":               "QUESTION_SEED_PATH",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		// An explicitly requested config file must parse.
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app + ".yaml")

	// The default config file is optional.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}
	if config.Ollama == nil {
		config.Ollama = &OllamaConfig{}
	}
	if config.Interview == nil {
		config.Interview = &InterviewConfig{}
	}
	return config, nil
}

// floatSetting reads a viper key that may come from a yaml number, a flag or
// a raw env string. Garbage falls back to the default.
func floatSetting(key string, def float64) float64 {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// intSetting is floatSetting for integer tunables.
func intSetting(key string, def int) int {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// buildGenerator assembles the Ollama client from config, env and defaults.
func buildGenerator(config *Config, logger *zap.Logger) (*ollama.Client, error) {
	var token string
	if file := strings.TrimSpace(config.Ollama.TokenFile); file != "" {
		var err error
		token, err = secrets.Load(secrets.Source{
			Name: "ollama token",
			File: file,
		})
		if err != nil {
			return nil, err
		}
	}

	return ollama.New(&ollama.Config{
		Host:        viper.GetString("ollama.host"),
		Model:       viper.GetString("ollama.model"),
		Temperature: floatSetting("ollama.temperature", 0),
		TopP:        floatSetting("ollama.top-p", 0),
		NumCtx:      intSetting("ollama.num-ctx", 0),
		NumPredict:  intSetting("ollama.num-predict", 0),
		MaxRetries:  intSetting("ollama.max-retries", 2),
		Token:       token,
	}, logger)
}

func loadSeeds(logger *zap.Logger) *seeds.Store {
	path := viper.GetString("seed-file")
	if path == "" {
		path = seeds.DefaultPath
	}
	return seeds.Load(path, logger)
}

func evalMaxTokens() int {
	return intSetting("ollama.eval-num-predict", 0)
}

func followupCap() int {
	limit := intSetting("interview.followup-cap", defaultFollowupCap)
	if limit < 0 {
		limit = 0
	}
	return limit
}

func maxSteps() int {
	steps := intSetting("interview.max-steps", defaultMaxSteps)
	if steps <= 0 {
		steps = defaultMaxSteps
	}
	return steps
}
