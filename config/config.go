package config

import (
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env              string          `mapstructure:"env"`
	LogLevel         string          `mapstructure:"log_level"`
	LogType          string          `mapstructure:"log_type"`
	ServiceName      string          `mapstructure:"service_name"`
	Version          string          `mapstructure:"version"`
	CrawlerSettings  *CrawlerConfig  `mapstructure:"crawler"`
	FetcherSettings  *FetcherConfig  `mapstructure:"fetcher"`
	RegistrySettings *RegistryConfig `mapstructure:"registry"`
	TelegramSettings *TelegramConfig `mapstructure:"telegram"`
	ArtifactSettings *ArtifactConfig `mapstructure:"artifacts"`
	S3Settings       *S3Config       `mapstructure:"s3"`
	CacheSettings    *CacheConfig    `mapstructure:"cache"`
	DbSettings       *DatabaseConfig `mapstructure:"database"`
	KafkaSettings    *KafkaConfig    `mapstructure:"kafka"`
}

type CrawlerConfig struct {
	SeedURLs          []string `mapstructure:"seed_urls"`
	MaxPages          int      `mapstructure:"max_pages"`
	ExcludeList       []string `mapstructure:"exclude_list"`
	IgnoreBusinessAds bool     `mapstructure:"ignore_business_ads"`
}

type FetcherConfig struct {
	ScrapeMechanism int                `mapstructure:"scrape_mechanism"`
	ScrapeTimeout   time.Duration      `mapstructure:"scrape_timeout"`
	UserAgent       string             `mapstructure:"user_agent"`
	CacheDir        string             `mapstructure:"cache_dir"`
	LocalCacheTtl   time.Duration      `mapstructure:"local_cache_ttl"`
	CommonCrawl     *CommonCrawlConfig `mapstructure:"common_crawl"`
}

type CommonCrawlConfig struct {
	RequestTimeout   int `mapstructure:"request_timeout"`
	Retries          int `mapstructure:"retries"`
	LastCrawlIndexes int `mapstructure:"last_crawl_indexes"`
}

type RegistryConfig struct {
	AllAdsPath        string `mapstructure:"all_ads_path"`
	SentAdsPath       string `mapstructure:"sent_ads_path"`
	Sync              bool   `mapstructure:"sync"`
	RemoteAllAdsPath  string `mapstructure:"remote_all_ads_path"`
	RemoteSentAdsPath string `mapstructure:"remote_sent_ads_path"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type ArtifactConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Backend           string `mapstructure:"backend"` // local or s3
	LocalRoot         string `mapstructure:"local_root"`
	DestinationFolder string `mapstructure:"destination_folder"`
}

type S3Config struct {
	AwsAccessKey    string `mapstructure:"aws_access_key"`
	AwsSecretKey    string `mapstructure:"aws_secret_key"`
	AwsBaseEndpoint string `mapstructure:"aws_base_endpoint"`
	Region          string `mapstructure:"region"`
	BucketName      string `mapstructure:"bucket_name"`
	KeyPrefix       string `mapstructure:"key_prefix"`
}

type CacheConfig struct {
	Servers    string        `mapstructure:"servers"`
	TtlForPage time.Duration `mapstructure:"ttl_for_page"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
}

type KafkaConfig struct {
	Producer *ProducerConfig `mapstructure:"producer"`
}

type ProducerConfig struct {
	Addr           string        `mapstructure:"addr"`
	WriteTopicName string        `mapstructure:"write_topic_name"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BatchSize      int           `mapstructure:"batch_size"`
	BatchTimeout   time.Duration `mapstructure:"batch_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequiredAsks   int           `mapstructure:"required_acks"`
	Async          bool          `mapstructure:"async"`
}

// Enabled reports whether a memcached server list is configured.
func (c *CacheConfig) Enabled() bool {
	return c != nil && c.Servers != ""
}

// Enabled reports whether a database host is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c != nil && c.Host != ""
}

// Enabled reports whether a kafka producer is configured.
func (c *KafkaConfig) Enabled() bool {
	return c != nil && c.Producer != nil && c.Producer.Addr != ""
}

func MustLoad() *Config {
	viper.AddConfigPath(path.Join("."))
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	// telegram.token can be set with TELEGRAM_TOKEN and so on.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	err := viper.ReadInConfig()
	if err != nil {
		slog.Error("can't initialize config file.", slog.String("err", err.Error()))
		os.Exit(1)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("error unmarshalling viper config.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	if cfg.TelegramSettings == nil || cfg.TelegramSettings.Token == "" || cfg.TelegramSettings.ChatID == 0 {
		slog.Error("telegram token and chat id are required.")
		os.Exit(1)
	}

	return &cfg
}

func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_type", "text")
	viper.SetDefault("crawler.max_pages", 10)
	viper.SetDefault("crawler.ignore_business_ads", true)
	viper.SetDefault("fetcher.scrape_timeout", 30*time.Second)
	viper.SetDefault("fetcher.local_cache_ttl", time.Hour)
	viper.SetDefault("fetcher.common_crawl.request_timeout", 30)
	viper.SetDefault("fetcher.common_crawl.retries", 3)
	viper.SetDefault("fetcher.common_crawl.last_crawl_indexes", 3)
	viper.SetDefault("registry.all_ads_path", "ads.json")
	viper.SetDefault("registry.sent_ads_path", "sent_ads.json")
	viper.SetDefault("registry.remote_all_ads_path", "/Data/ads_jsons/all_ads.json")
	viper.SetDefault("registry.remote_sent_ads_path", "/Data/ads_jsons/sent_ads.json")
	viper.SetDefault("kafka.producer.max_attempts", 3)
	viper.SetDefault("kafka.producer.batch_size", 50)
	viper.SetDefault("kafka.producer.batch_timeout", time.Second)
	viper.SetDefault("kafka.producer.write_timeout", 10*time.Second)
	viper.SetDefault("artifacts.backend", "local")
	viper.SetDefault("artifacts.destination_folder", "/Data/ads")
	// AutomaticEnv only resolves keys viper already knows about.
	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.chat_id", 0)
	viper.SetDefault("s3.aws_access_key", "")
	viper.SetDefault("s3.aws_secret_key", "")
	viper.SetDefault("database.password", "")
}
