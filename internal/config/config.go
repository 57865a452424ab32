package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for the linkscope engine.
type Config struct {
	// Core
	Target   string   `yaml:"target" json:"target"`
	UA       string   `yaml:"ua" json:"ua"`
	Keywords []string `yaml:"keywords" json:"keywords"`

	// Collection
	MaxBacklinks int  `yaml:"max_backlinks" json:"max_backlinks"`
	UseArchive   bool `yaml:"use_archive" json:"use_archive"`
	UseSearch    bool `yaml:"use_search" json:"use_search"`
	UseSearchAPI bool `yaml:"use_search_api" json:"use_search_api"`
	Enrich       bool `yaml:"enrich" json:"enrich"`

	// Archive index
	ArchiveBaseURL string   `yaml:"archive_base_url" json:"archive_base_url"`
	ArchiveDataURL string   `yaml:"archive_data_url" json:"archive_data_url"`
	ArchiveIndexes []string `yaml:"archive_indexes" json:"archive_indexes"`

	// Search API
	SearchAPIKey   string `yaml:"search_api_key" json:"search_api_key"`
	SearchEngineID string `yaml:"search_engine_id" json:"search_engine_id"`

	// Domain metrics
	PageRankAPIKey string `yaml:"pagerank_api_key" json:"pagerank_api_key"`
	DailyQuota     int    `yaml:"daily_quota" json:"daily_quota"`
	CacheDays      int    `yaml:"cache_days" json:"cache_days"`

	// Output
	OutputFormat string `yaml:"output_format" json:"output_format"`
	Ingest       string `yaml:"ingest" json:"ingest"`
	SpoolDir     string `yaml:"spool_dir" json:"spool_dir"`

	// Observability
	MetricsAddr  string `yaml:"metrics_addr" json:"metrics_addr"`
	OTELEndpoint string `yaml:"otel_endpoint" json:"otel_endpoint"`
	OTELInsecure bool   `yaml:"otel_insecure" json:"otel_insecure"`
	OTELService  string `yaml:"otel_service" json:"otel_service"`

	// Redis
	RedisAddr      string `yaml:"redis_addr" json:"redis_addr"`
	RedisQueueAddr string `yaml:"redis_queue_addr" json:"redis_queue_addr"`
	RedisQueueKey  string `yaml:"redis_queue_key" json:"redis_queue_key"`
}

// SetDefaults sets default values for the configuration.
func (c *Config) SetDefaults() {
	if c.UA == "" {
		c.UA = "linkscope/1.0 (+https://github.com/seolens/linkscope)"
	}
	if c.MaxBacklinks == 0 {
		c.MaxBacklinks = 100
	}
	if c.ArchiveBaseURL == "" {
		c.ArchiveBaseURL = "https://index.commoncrawl.org"
	}
	if c.ArchiveDataURL == "" {
		c.ArchiveDataURL = "https://data.commoncrawl.org"
	}
	if len(c.ArchiveIndexes) == 0 {
		c.ArchiveIndexes = []string{"CC-MAIN-2024-38", "CC-MAIN-2024-33", "CC-MAIN-2024-26"}
	}
	if c.DailyQuota == 0 {
		c.DailyQuota = 1000
	}
	if c.CacheDays == 0 {
		c.CacheDays = 30
	}
	if c.OutputFormat == "" {
		c.OutputFormat = "json"
	}
	if c.SpoolDir == "" {
		c.SpoolDir = "spool"
	}
	if c.OTELService == "" {
		c.OTELService = "linkscope"
	}
	if c.RedisQueueKey == "" {
		c.RedisQueueKey = "linkscope:queue"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Target == "" && c.RedisQueueAddr == "" {
		return fmt.Errorf("a target domain or a redis queue is required")
	}
	if c.MaxBacklinks < 1 {
		return fmt.Errorf("max_backlinks must be at least 1")
	}
	if c.CacheDays < 1 {
		return fmt.Errorf("cache_days must be at least 1")
	}
	if c.DailyQuota < 1 {
		return fmt.Errorf("daily_quota must be at least 1")
	}
	if c.UseSearchAPI && (c.SearchAPIKey == "" || c.SearchEngineID == "") {
		return fmt.Errorf("use_search_api requires search_api_key and search_engine_id")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	config.SetDefaults()
	return &config, nil
}

// MergeWithFlags merges command-line flags with file configuration.
// Command-line flags take precedence.
func (c *Config) MergeWithFlags(flags map[string]interface{}) {
	if v, ok := flags["target"].(string); ok && v != "" {
		c.Target = v
	}
	if v, ok := flags["ua"].(string); ok && v != "" {
		c.UA = v
	}
	if v, ok := flags["max_backlinks"].(int); ok && v > 0 {
		c.MaxBacklinks = v
	}
	if v, ok := flags["use_archive"].(bool); ok {
		c.UseArchive = v
	}
	if v, ok := flags["use_search"].(bool); ok {
		c.UseSearch = v
	}
	if v, ok := flags["use_search_api"].(bool); ok {
		c.UseSearchAPI = v
	}
	if v, ok := flags["enrich"].(bool); ok {
		c.Enrich = v
	}
	if v, ok := flags["output_format"].(string); ok && v != "" {
		c.OutputFormat = v
	}
	if v, ok := flags["ingest"].(string); ok && v != "" {
		c.Ingest = v
	}
	if v, ok := flags["spool_dir"].(string); ok && v != "" {
		c.SpoolDir = v
	}
	if v, ok := flags["metrics_addr"].(string); ok && v != "" {
		c.MetricsAddr = v
	}
	if v, ok := flags["otel_endpoint"].(string); ok && v != "" {
		c.OTELEndpoint = v
	}
	if v, ok := flags["otel_insecure"].(bool); ok {
		c.OTELInsecure = v
	}
	if v, ok := flags["otel_service"].(string); ok && v != "" {
		c.OTELService = v
	}
	if v, ok := flags["cache_days"].(int); ok && v > 0 {
		c.CacheDays = v
	}
	if v, ok := flags["keywords"].([]string); ok && len(v) > 0 {
		c.Keywords = v
	}
}

// LoadFromEnv loads API keys and connection settings from environment
// variables. A missing metrics API key disables enrichment rather than
// failing validation.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("OPEN_PAGERANK_API_KEY"); v != "" {
		c.PageRankAPIKey = v
	}
	if v := os.Getenv("SEARCH_API_KEY"); v != "" {
		c.SearchAPIKey = v
	}
	if v := os.Getenv("SEARCH_ENGINE_ID"); v != "" {
		c.SearchEngineID = v
	}
	if v := os.Getenv("METRICS_CACHE_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			c.CacheDays = days
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_QUEUE_ADDR"); v != "" {
		c.RedisQueueAddr = v
	}
	if v := os.Getenv("REDIS_QUEUE_KEY"); v != "" {
		c.RedisQueueKey = v
	}
}
