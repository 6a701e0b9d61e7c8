package env

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"socflow/internal/application/port/output"
)

const (
	KeyDBPath            = "SOCFLOW_DB_PATH"
	KeyCatalogPath       = "SOCFLOW_CATALOG_PATH"
	KeyHTTPAddr          = "SOCFLOW_HTTP_ADDR"
	KeyLookupLimit       = "SOCFLOW_LOOKUP_LIMIT"
	KeyMaxSlotAttempts   = "SOCFLOW_MAX_SLOT_ATTEMPTS"
	KeyIntentThreshold   = "SOCFLOW_INTENT_THRESHOLD"
	KeyLLMProvider       = "SOCFLOW_LLM_PROVIDER"
	KeyLLMIntentFallback = "SOCFLOW_LLM_INTENT_FALLBACK"
	KeyLogDir            = "SOCFLOW_LOG_DIR"
	KeyLogLevel          = "SOCFLOW_LOG_LEVEL"
	KeyOrganizationID    = "SOCFLOW_ORGANIZATION_ID"
	KeyOpenRouterAPIKey  = "OPENROUTER_API_KEY"
	KeyOpenRouterModel   = "OPENROUTER_MODEL_NAME"
	KeyOllamaServerURL   = "OLLAMA_SERVER_URL"
	KeyOllamaModel       = "OLLAMA_MODEL"
)

var _ output.ConfigPort = (*EnvService)(nil)

type EnvService struct {
	v *viper.Viper
}

// NewEnvService loads .env and .env.<APP_ENV> into the process environment and
// serves typed values from it.
func NewEnvService() *EnvService {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Info: no .env file with secrets found (this is OK for CI/CD)")
	}

	envFile := fmt.Sprintf(".env.%s", appEnv)
	if err := godotenv.Overload(envFile); err != nil {
		log.Printf("Info: could not load %s: %v", envFile, err)
	}

	return newEnvService()
}

func newEnvService() *EnvService {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDBPath, "socflow.db")
	v.SetDefault(KeyHTTPAddr, ":8088")
	v.SetDefault(KeyLookupLimit, 5)
	v.SetDefault(KeyMaxSlotAttempts, 0)
	v.SetDefault(KeyIntentThreshold, 0.7)
	v.SetDefault(KeyLLMProvider, "none")
	v.SetDefault(KeyLLMIntentFallback, false)
	v.SetDefault(KeyLogDir, "log")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyOrganizationID, "default")
	v.SetDefault(KeyOllamaServerURL, "http://localhost:11434")
	v.SetDefault(KeyOllamaModel, "llama3.1")

	return &EnvService{v: v}
}

func (e *EnvService) Get(key string) string {
	return e.v.GetString(key)
}

func (e *EnvService) MustGet(key string) string {
	val := e.v.GetString(key)
	if val == "" {
		log.Fatalf("ENV %s is missing", key)
	}
	return val
}

func (e *EnvService) GetWithDefault(key string, defaultValue string) string {
	if !e.v.IsSet(key) || e.v.GetString(key) == "" {
		return defaultValue
	}
	return e.v.GetString(key)
}

func (e *EnvService) GetBool(key string, defaultValue bool) bool {
	if !e.v.IsSet(key) {
		return defaultValue
	}
	return e.v.GetBool(key)
}

func (e *EnvService) GetInt(key string, defaultValue int) int {
	if !e.v.IsSet(key) {
		return defaultValue
	}
	return e.v.GetInt(key)
}

func (e *EnvService) GetFloat(key string, defaultValue float64) float64 {
	if !e.v.IsSet(key) {
		return defaultValue
	}
	return e.v.GetFloat64(key)
}

// Set overrides a key for the lifetime of the service, typically from a CLI flag.
func (e *EnvService) Set(key string, value any) {
	e.v.Set(key, value)
}
