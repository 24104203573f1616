package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
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

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	SmsNotify       string `mapstructure:"sms_notify"`       // 短信通知（验证码、购买成功）
	RedemptionEvent string `mapstructure:"redemption_event"` // 核销成功事件
	SettlementEvent string `mapstructure:"settlement_event"` // 结算完成事件
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
}

type BusinessConfig struct {
	Currency                  string `mapstructure:"currency"`
	CommissionPercentage      int    `mapstructure:"commission_percentage"`       // 默认佣金比例（百分数）
	LoginCodeTTLMinutes       int    `mapstructure:"login_code_ttl_minutes"`      // 登录码有效期
	ConsumeCodeTTLMinutes     int    `mapstructure:"consume_code_ttl_minutes"`    // 核销码有效期
	TransactionTimeoutMinutes int    `mapstructure:"transaction_timeout_minutes"` // 购买交易超时
	GatewayBaseURL            string `mapstructure:"gateway_base_url"`            // 支付网关跳转地址
	RedeemMaxRetries          int    `mapstructure:"redeem_max_retries"`          // 乐观锁冲突重试上限
	MaxRetryCount             int    `mapstructure:"max_retry_count"`             // 发件箱投递重试上限
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
