package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port          int
	DatabaseURL   string
	LogLevel      string
	OpenAIAPIKey  string
	OpenAIModel   string
	NatsURL       string
	NatsToken     string
	APIToken      string
	EmployeesFile string
	KPIFile       string
}

func Load() Config {
	return Config{
		Port:          envInt("IPPO_PORT", 8760),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		OpenAIAPIKey:  envStr("OPENAI_API_KEY", ""),
		OpenAIModel:   envStr("IPPO_MODEL", "gpt-4o-mini"),
		NatsURL:       envStr("NATS_URL", ""),
		NatsToken:     envStr("NATS_TOKEN", ""),
		APIToken:      envStr("IPPO_API_TOKEN", ""),
		EmployeesFile: envStr("IPPO_EMPLOYEES_FILE", "employee_master.json"),
		KPIFile:       envStr("IPPO_KPI_FILE", "kpi_definitions.json"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
