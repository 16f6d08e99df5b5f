package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Storage  StorageConfig  `mapstructure:"storage"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port        int   `mapstructure:"port"`
	MaxUploadMB int64 `mapstructure:"max_upload_mb"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// RedisConfig Host 为空时不启用 Redis（分布式锁、token 黑名单降级为不可用）
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers       []string         `mapstructure:"brokers"`
	Topic         KafkaTopicConfig `mapstructure:"topic"`
	ConsumerGroup string           `mapstructure:"consumer_group"`
}

type KafkaTopicConfig struct {
	Notification string `mapstructure:"notification"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

func (c JWTConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiryHours) * time.Hour
}

const (
	StorageDriverLocal = "local"
	StorageDriverOSS   = "oss"
)

type StorageConfig struct {
	Driver    string    `mapstructure:"driver"`
	LocalRoot string    `mapstructure:"local_root"`
	OSS       OSSConfig `mapstructure:"oss"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type BusinessConfig struct {
	SocietyName          string           `mapstructure:"society_name"`
	DuesRates            map[string]int64 `mapstructure:"dues_rates"` // 户型 -> 每月应缴金额
	AccrualSchedule      string           `mapstructure:"accrual_schedule"`
	ExpirySweepSchedule  string           `mapstructure:"expiry_sweep_schedule"`
	Timezone             string           `mapstructure:"timezone"`
	AnnouncementTTLDays  int              `mapstructure:"announcement_ttl_days"`
	ResetTokenTTLMinutes int              `mapstructure:"reset_token_ttl_minutes"`
	ResetURL             string           `mapstructure:"reset_url"`
	AdminEmails          []string         `mapstructure:"admin_emails"`
	MaxRetryCount        int              `mapstructure:"max_retry_count"`
}

// Rates 返回按户型索引的应缴金额，非法的户型 key 会被忽略
func (b BusinessConfig) Rates() map[int]int64 {
	rates := make(map[int]int64, len(b.DuesRates))
	for k, v := range b.DuesRates {
		houseType, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			log.Printf("[Config] 忽略非法户型配置: %q", k)
			continue
		}
		rates[houseType] = v
	}
	return rates
}

// Location 业务时区，解析失败时回退到 UTC
func (b BusinessConfig) Location() *time.Location {
	if b.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		log.Printf("[Config] 时区 %s 加载失败，使用 UTC: %v", b.Timezone, err)
		return time.UTC
	}
	return loc
}

func (b BusinessConfig) AnnouncementTTL() time.Duration {
	return time.Duration(b.AnnouncementTTLDays) * 24 * time.Hour
}

func (b BusinessConfig) ResetTokenTTL() time.Duration {
	return time.Duration(b.ResetTokenTTLMinutes) * time.Minute
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("redis.port", 6379)
	v.SetDefault("kafka.topic.notification", "society.notification")
	v.SetDefault("kafka.consumer_group", "society-notifier")
	v.SetDefault("jwt.expiry_hours", 24*30)
	v.SetDefault("storage.driver", StorageDriverLocal)
	v.SetDefault("storage.local_root", "uploads")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("business.society_name", "Society")
	v.SetDefault("business.dues_rates", map[string]int64{"2": 700, "3": 1000})
	v.SetDefault("business.accrual_schedule", "0 0 1 * *")
	v.SetDefault("business.expiry_sweep_schedule", "@hourly")
	v.SetDefault("business.timezone", "UTC")
	v.SetDefault("business.announcement_ttl_days", 30)
	v.SetDefault("business.reset_token_ttl_minutes", 60)
	v.SetDefault("business.reset_url", "http://localhost:3000/reset/")
	v.SetDefault("business.max_retry_count", 5)
}

// Load 读取配置文件并叠加环境变量（前缀 SOCIETY_，如 SOCIETY_MYSQL_HOST）
func Load(configPath string) (*Config, error) {
	// .env 只在本地开发时存在
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SOCIETY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if config.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret 不能为空")
	}

	return config, nil
}

// LoadConfig 加载配置文件，失败直接退出
func LoadConfig(configPath string) *Config {
	config, err := Load(configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	return config
}
