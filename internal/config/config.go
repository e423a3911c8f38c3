// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 存储驱动
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// DefaultStorageKey 持久化槽位的固定键名
const DefaultStorageKey = "story-planner-data"

// Config 存储应用配置
type Config struct {
	// 基础配置
	Port      string
	DataDir   string
	LogDir    string
	LogLevel  string
	DebugMode bool

	// 持久化配置
	StorageDriver   string
	StorageKey      string
	PersistDebounce time.Duration

	// LLM相关配置
	LLMProvider string
	LLMAPIKey   string
	LLMModel    string
	LLMBaseURL  string

	// AssistantRateLimit 每个客户端每分钟的助手请求数，0 表示不限
	AssistantRateLimit int
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	_ = godotenv.Load()

	debounceMS, err := getEnvInt("PERSIST_DEBOUNCE_MS", 1000)
	if err != nil {
		return nil, err
	}

	rateLimit, err := getEnvInt("ASSISTANT_RATE_LIMIT", 30)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Port:            getEnv("PORT", "8080"),
		DataDir:         getEnvPath("DATA_DIR", "data"),
		LogDir:          getEnvPath("LOG_DIR", "logs"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DebugMode:       getEnvBool("DEBUG_MODE", false),
		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", StorageFile)),
		StorageKey:      getEnv("STORAGE_KEY", DefaultStorageKey),
		PersistDebounce: time.Duration(debounceMS) * time.Millisecond,
		LLMProvider:     getEnv("LLM_PROVIDER", "anthropic"),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", ""),
		LLMBaseURL:      getEnv("LLM_BASE_URL", ""),

		AssistantRateLimit: rateLimit,
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.LLMAPIKey == "" {
		// 只记录警告，不返回错误
		log.Println("警告: 未设置LLM_API_KEY，AI助手需要在请求中携带密钥才能使用")
	}

	return config, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageFile, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("不支持的存储驱动: %s", c.StorageDriver)
	}
	if strings.TrimSpace(c.StorageKey) == "" {
		return fmt.Errorf("STORAGE_KEY 不能为空")
	}
	if c.PersistDebounce < 0 {
		return fmt.Errorf("PERSIST_DEBOUNCE_MS 不能为负数")
	}
	if c.AssistantRateLimit < 0 {
		return fmt.Errorf("ASSISTANT_RATE_LIMIT 不能为负数")
	}
	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，并确保目录存在
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("环境变量 %s 不是整数: %w", key, err)
	}
	return n, nil
}
