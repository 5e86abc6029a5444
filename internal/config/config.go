package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // 保证无系统时区库时 Europe/London 等时区可用

	"github.com/pelletier/go-toml/v2"

	"broadoak/internal/model"
)

// AppConfig 应用配置
type AppConfig struct {
	Server ServerConfig `toml:"server"`
	Data   DataConfig   `toml:"data"`
	Store  StoreConfig  `toml:"store"`
	Import ImportConfig `toml:"import"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// StoreConfig 存储后端配置
type StoreConfig struct {
	Backend string `toml:"backend"` // sqlite / firestore / memory
	// BatchLimit 单批写入的最大操作数（Firestore 上限 500）
	BatchLimit int `toml:"batch_limit"`

	FirestoreProject     string `toml:"firestore_project"`
	FirestoreCredentials string `toml:"firestore_credentials"`
	UsersCollection      string `toml:"users_collection"`
	ShiftsCollection     string `toml:"shifts_collection"`
}

// ImportConfig 排班表导入配置
type ImportConfig struct {
	Sentinel          string   `toml:"sentinel"`
	AddressLayout     string   `toml:"address_layout"` // keyword / label
	NotApplicableFill string   `toml:"not_applicable_fill"`
	ProtectedStatuses []string `toml:"protected_statuses"`
	Timezone          string   `toml:"timezone"`
	PreviewTTL        string   `toml:"preview_ttl"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	PortSpecified bool
}

const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"

	LayoutKeyword = "keyword"
	LayoutLabel   = "label"

	// FirestoreMaxBatch Firestore 单次事务的写入上限
	FirestoreMaxBatch = 500
)

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	protected := make([]string, 0, 4)
	for _, s := range model.DefaultProtectedStatuses() {
		protected = append(protected, string(s))
	}
	return &AppConfig{
		Server: ServerConfig{
			Port:    20262,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Store: StoreConfig{
			Backend:          BackendSQLite,
			BatchLimit:       500,
			UsersCollection:  "users",
			ShiftsCollection: "shifts",
		},
		Import: ImportConfig{
			Sentinel:          "JOB MANAGER",
			AddressLayout:     LayoutKeyword,
			NotApplicableFill: "BFBFBF",
			ProtectedStatuses: protected,
			Timezone:          "Europe/London",
			PreviewTTL:        "30m",
		},
	}
}

// Validate 校验配置取值
func (c *AppConfig) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendFirestore, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendFirestore && c.Store.FirestoreProject == "" {
		return fmt.Errorf("store.firestore_project is required for the firestore backend")
	}
	if c.Store.BatchLimit <= 0 {
		return fmt.Errorf("store.batch_limit must be positive, got %d", c.Store.BatchLimit)
	}
	if c.Store.Backend == BackendFirestore && c.Store.BatchLimit > FirestoreMaxBatch {
		return fmt.Errorf("store.batch_limit %d exceeds the firestore limit of %d operations per batch",
			c.Store.BatchLimit, FirestoreMaxBatch)
	}
	switch c.Import.AddressLayout {
	case LayoutKeyword, LayoutLabel:
	default:
		return fmt.Errorf("unknown import.address_layout %q", c.Import.AddressLayout)
	}
	if strings.TrimSpace(c.Import.Sentinel) == "" {
		return fmt.Errorf("import.sentinel must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.PreviewTTLDuration(); err != nil {
		return err
	}
	return nil
}

// Location “今天”判定所使用的时区
func (c *AppConfig) Location() (*time.Location, error) {
	if c.Import.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Import.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid import.timezone %q: %w", c.Import.Timezone, err)
	}
	return loc, nil
}

// PreviewTTLDuration 预演结果保留时长
func (c *AppConfig) PreviewTTLDuration() (time.Duration, error) {
	if c.Import.PreviewTTL == "" {
		return 30 * time.Minute, nil
	}
	d, err := time.ParseDuration(c.Import.PreviewTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid import.preview_ttl %q: %w", c.Import.PreviewTTL, err)
	}
	return d, nil
}

// Protected 受保护状态列表
func (c *AppConfig) Protected() []model.ShiftStatus {
	out := make([]model.ShiftStatus, 0, len(c.Import.ProtectedStatuses))
	for _, s := range c.Import.ProtectedStatuses {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, model.ShiftStatus(s))
		}
	}
	return out
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultConfigPath 默认配置文件路径（可执行文件同目录下的 config.toml）
func DefaultConfigPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadConfigWithInfo 从 config.toml 加载配置并返回元信息
func LoadConfigWithInfo(path string) (*AppConfig, LoadConfigInfo, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, info, fmt.Errorf("failed to read config: %w", err)
		}
		// 配置文件不存在，使用默认配置
	} else {
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// 环境变量覆盖（用于容器部署 / 本地运行）
func applyEnvOverrides(config *AppConfig) {
	if v := os.Getenv("BROADOAK_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}
	if v := os.Getenv("BROADOAK_STORE_BACKEND"); v != "" {
		config.Store.Backend = v
	}
	if config.Store.FirestoreProject == "" {
		if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
			config.Store.FirestoreProject = v
		}
	}
}

// SaveConfig 保存配置到 config.toml
func SaveConfig(path string, config *AppConfig) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureDataDir 确保数据目录存在，相对路径以可执行文件目录为基准
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := config.Data.DataDir
	if !filepath.IsAbs(dataDir) {
		exeDir, err := GetExeDir()
		if err != nil {
			exeDir = "."
		}
		dataDir = filepath.Join(exeDir, dataDir)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	return dataDir, nil
}
