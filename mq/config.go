package mq

import "time"

/* ========================================================================
 * MQ 统一配置
 * ========================================================================
 * 职责: 定义 Kafka 的统一配置结构（按类型可扩展其他实现）
 * ======================================================================== */

// Config MQ 统一配置
type Config struct {
	// Type MQ 类型: kafka
	Type Type `yaml:"type" mapstructure:"type"`

	// Kafka 特有配置
	Kafka *KafkaConfig `yaml:"kafka" mapstructure:"kafka"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Type:  TypeKafka,
		Kafka: DefaultKafkaConfig(),
	}
}

// =============================================================================
// Kafka 配置
// =============================================================================

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Version string   `yaml:"version" mapstructure:"version"` // Kafka 版本

	// SASL 认证
	SASL KafkaSASLConfig `yaml:"sasl" mapstructure:"sasl"`

	// TLS 配置
	TLS KafkaTLSConfig `yaml:"tls" mapstructure:"tls"`

	Producer KafkaProducerConfig `yaml:"producer" mapstructure:"producer"`
	Consumer KafkaConsumerConfig `yaml:"consumer" mapstructure:"consumer"`
}

// KafkaSASLConfig Kafka SASL 认证配置
type KafkaSASLConfig struct {
	Enable    bool   `yaml:"enable" mapstructure:"enable"`
	Mechanism string `yaml:"mechanism" mapstructure:"mechanism"` // PLAIN / SCRAM-SHA-256 / SCRAM-SHA-512
	Username  string `yaml:"username" mapstructure:"username"`
	Password  string `yaml:"password" mapstructure:"password"`
}

// KafkaTLSConfig Kafka TLS 配置
type KafkaTLSConfig struct {
	Enable   bool   `yaml:"enable" mapstructure:"enable"`
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`
	CAFile   string `yaml:"ca_file" mapstructure:"ca_file"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"` // 跳过证书验证
}

// KafkaProducerConfig Kafka 生产者配置
type KafkaProducerConfig struct {
	RequiredAcks    string        `yaml:"required_acks" mapstructure:"required_acks"` // none / leader / all
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxMessageBytes int           `yaml:"max_message_bytes" mapstructure:"max_message_bytes"`
	Compression     string        `yaml:"compression" mapstructure:"compression"` // none / gzip / snappy / lz4 / zstd
	Idempotent      bool          `yaml:"idempotent" mapstructure:"idempotent"`
	RetryMax        int           `yaml:"retry_max" mapstructure:"retry_max"`
}

// KafkaConsumerConfig Kafka 消费者配置
type KafkaConsumerConfig struct {
	GroupID            string        `yaml:"group_id" mapstructure:"group_id"`
	InitialOffset      string        `yaml:"initial_offset" mapstructure:"initial_offset"` // newest / oldest
	AutoCommit         bool          `yaml:"auto_commit" mapstructure:"auto_commit"`
	AutoCommitInterval time.Duration `yaml:"auto_commit_interval" mapstructure:"auto_commit_interval"`
	SessionTimeout     time.Duration `yaml:"session_timeout" mapstructure:"session_timeout"`
	HeartbeatInterval  time.Duration `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	MaxWaitTime        time.Duration `yaml:"max_wait_time" mapstructure:"max_wait_time"`
	MaxProcessingTime  time.Duration `yaml:"max_processing_time" mapstructure:"max_processing_time"`
	FetchMin           int32         `yaml:"fetch_min" mapstructure:"fetch_min"`
	FetchMax           int32         `yaml:"fetch_max" mapstructure:"fetch_max"`
	FetchDefault       int32         `yaml:"fetch_default" mapstructure:"fetch_default"`
}

// DefaultKafkaConfig 返回 Kafka 默认配置
func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers: []string{"127.0.0.1:9092"},
		Version: "2.8.0",
		Producer: KafkaProducerConfig{
			RequiredAcks:    "leader",
			Timeout:         10 * time.Second,
			MaxMessageBytes: 1024 * 1024,
			Compression:     "none",
			Idempotent:      false,
			RetryMax:        3,
		},
		Consumer: KafkaConsumerConfig{
			GroupID:            "default_consumer_group",
			InitialOffset:      "newest",
			AutoCommit:         true,
			AutoCommitInterval: 1 * time.Second,
			SessionTimeout:     10 * time.Second,
			HeartbeatInterval:  3 * time.Second,
			MaxWaitTime:        250 * time.Millisecond,
			MaxProcessingTime:  100 * time.Millisecond,
			FetchMin:           1,
			FetchMax:           10485760,
			FetchDefault:       1048576,
		},
	}
}
