// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// AdminConfig provides the secret used to validate operator bearer tokens.
type AdminConfig interface {
	GetAdminJWTSecret() string
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetCycleInterval() time.Duration
}

// ProposalStoreConfig provides settings for the batch proposal store.
type ProposalStoreConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetProposalTTL() time.Duration
}

// LLMConfig provides settings for the content-generation model.
type LLMConfig interface {
	GetLLMProvider() string
	GetLLMAPIKey() string
	GetLLMBaseURL() string
	GetLLMModel() string
}

// GoogleConfig provides OAuth and document settings for Google APIs.
type GoogleConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleTokenPath() string
	GetCompanyInfoDocID() string
	IsGoogleEnabled() bool
}

// SenderConfig provides the identity used in outgoing mail.
type SenderConfig interface {
	GetSenderName() string
	GetSenderTitle() string
	GetSenderCompany() string
	GetSenderWebsite() string
	// GetSenderAddress is the From address. Empty uses the mailbox default.
	GetSenderAddress() string
	GetUnsubscribeURL() string
}

// CRMConfig provides settings for the HubSpot adapter.
type CRMConfig interface {
	GetHubSpotToken() string
	GetHubSpotBaseURL() string
	IsCRMEnabled() bool
}

// SlackConfig provides settings for the notification channel.
type SlackConfig interface {
	GetSlackWebhookURL() string
	GetSlackSigningSecret() string
	GetSlackBotToken() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env              string
	HTTPAddr         string
	DatabaseURL      string
	CORSAllowAll     bool
	CORSOrigins      []string
	AdminJWTSecret   string
	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	CycleInterval    time.Duration
	ProposalTTL      time.Duration

	LLMProvider string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleTokenPath    string
	CompanyInfoDocID   string

	SenderName     string
	SenderTitle    string
	SenderCompany  string
	SenderWebsite  string
	SenderAddress  string
	UnsubscribeURL string

	HubSpotToken   string
	HubSpotBaseURL string

	SlackWebhookURL    string
	SlackSigningSecret string
	SlackBotToken      string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// AdminConfig implementation
func (c *Config) GetAdminJWTSecret() string { return c.AdminJWTSecret }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string             { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool       { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string       { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int        { return c.AsynqConcurrency }
func (c *Config) GetCycleInterval() time.Duration { return c.CycleInterval }

// ProposalStoreConfig implementation
func (c *Config) GetProposalTTL() time.Duration { return c.ProposalTTL }

// LLMConfig implementation
func (c *Config) GetLLMProvider() string { return c.LLMProvider }
func (c *Config) GetLLMAPIKey() string   { return c.LLMAPIKey }
func (c *Config) GetLLMBaseURL() string  { return c.LLMBaseURL }
func (c *Config) GetLLMModel() string    { return c.LLMModel }

// GoogleConfig implementation
func (c *Config) GetGoogleClientID() string     { return c.GoogleClientID }
func (c *Config) GetGoogleClientSecret() string { return c.GoogleClientSecret }
func (c *Config) GetGoogleTokenPath() string    { return c.GoogleTokenPath }
func (c *Config) GetCompanyInfoDocID() string   { return c.CompanyInfoDocID }
func (c *Config) IsGoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// SenderConfig implementation
func (c *Config) GetSenderName() string     { return c.SenderName }
func (c *Config) GetSenderTitle() string    { return c.SenderTitle }
func (c *Config) GetSenderCompany() string  { return c.SenderCompany }
func (c *Config) GetSenderWebsite() string  { return c.SenderWebsite }
func (c *Config) GetSenderAddress() string  { return c.SenderAddress }
func (c *Config) GetUnsubscribeURL() string { return c.UnsubscribeURL }

// CRMConfig implementation
func (c *Config) GetHubSpotToken() string   { return c.HubSpotToken }
func (c *Config) GetHubSpotBaseURL() string { return c.HubSpotBaseURL }
func (c *Config) IsCRMEnabled() bool        { return c.HubSpotToken != "" }

// SlackConfig implementation
func (c *Config) GetSlackWebhookURL() string    { return c.SlackWebhookURL }
func (c *Config) GetSlackSigningSecret() string { return c.SlackSigningSecret }
func (c *Config) GetSlackBotToken() string      { return c.SlackBotToken }

// SenderProfile is the optional YAML file describing the outgoing mail identity.
type SenderProfile struct {
	Name           string `yaml:"name"`
	Title          string `yaml:"title"`
	Company        string `yaml:"company"`
	Website        string `yaml:"website"`
	Address        string `yaml:"address"`
	UnsubscribeURL string `yaml:"unsubscribe_url"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		CORSAllowAll:     corsAllowAll,
		CORSOrigins:      corsOrigins,
		AdminJWTSecret:   getEnv("ADMIN_JWT_SECRET", ""),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "cadence"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		CycleInterval:    mustDuration(getEnv("CYCLE_INTERVAL", "12h")),
		ProposalTTL:      mustDuration(getEnv("PROPOSAL_TTL", "72h")),

		LLMProvider: strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMAPIKey:   getEnv("LLM_API_KEY", ""),
		LLMBaseURL:  getEnv("LLM_BASE_URL", ""),
		LLMModel:    getEnv("LLM_MODEL", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleTokenPath:    getEnv("GOOGLE_TOKEN_PATH", ""),
		CompanyInfoDocID:   getEnv("COMPANY_INFO_DOC_ID", ""),

		SenderName:     getEnv("SENDER_NAME", ""),
		SenderTitle:    getEnv("SENDER_TITLE", ""),
		SenderCompany:  getEnv("SENDER_COMPANY", ""),
		SenderWebsite:  getEnv("SENDER_WEBSITE", ""),
		SenderAddress:  getEnv("SENDER_ADDRESS", ""),
		UnsubscribeURL: getEnv("UNSUBSCRIBE_URL", ""),

		HubSpotToken:   getEnv("HUBSPOT_ACCESS_TOKEN", ""),
		HubSpotBaseURL: getEnv("HUBSPOT_BASE_URL", "https://api.hubapi.com"),

		SlackWebhookURL:    getEnv("SLACK_WEBHOOK_URL", ""),
		SlackSigningSecret: getEnv("SLACK_SIGNING_SECRET", ""),
		SlackBotToken:      getEnv("SLACK_BOT_TOKEN", ""),
	}

	if path := getEnv("SENDER_PROFILE_PATH", ""); path != "" {
		profile, err := LoadSenderProfile(path)
		if err != nil {
			return nil, err
		}
		cfg.applySenderProfile(profile)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.LLMProvider != "openai" && cfg.LLMProvider != "gemini" {
		return nil, fmt.Errorf("LLM_PROVIDER must be openai or gemini, got %q", cfg.LLMProvider)
	}

	return cfg, nil
}

// LoadSenderProfile reads a YAML sender profile from path.
func LoadSenderProfile(path string) (SenderProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SenderProfile{}, fmt.Errorf("read sender profile: %w", err)
	}

	var profile SenderProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return SenderProfile{}, fmt.Errorf("parse sender profile: %w", err)
	}
	return profile, nil
}

// applySenderProfile fills sender fields that the environment left empty.
func (c *Config) applySenderProfile(p SenderProfile) {
	fill := func(dst *string, value string) {
		if *dst == "" {
			*dst = strings.TrimSpace(value)
		}
	}
	fill(&c.SenderName, p.Name)
	fill(&c.SenderTitle, p.Title)
	fill(&c.SenderCompany, p.Company)
	fill(&c.SenderWebsite, p.Website)
	fill(&c.SenderAddress, p.Address)
	fill(&c.UnsubscribeURL, p.UnsubscribeURL)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
