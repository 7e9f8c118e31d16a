package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	PID    PIDConfig    `yaml:"pid"`
}

// ServerConfig описывает параметры авторитетного сервера.
type ServerConfig struct {
	MapPath     string `yaml:"map_path"`
	ListenAddr  string `yaml:"listen_addr"`
	TickRateMs  int    `yaml:"tick_rate_ms"`
	SnapshotMax int    `yaml:"snapshot_max"`
}

// ClientConfig описывает параметры подключения клиента.
type ClientConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Name string `yaml:"name"`
}

// PIDConfig задаёт коэффициенты контроллера темпа клиентских часов.
type PIDConfig struct {
	P float64 `yaml:"p"`
	I float64 `yaml:"i"`
	D float64 `yaml:"d"`
}

// DefaultPort — порт транспорта по умолчанию.
const DefaultPort = 11210

// DefaultTickRate — период одного тика в миллисекундах.
const DefaultTickRate = 32

// DefaultSnapshotMax — размер кольца снимков/команд на сервере.
const DefaultSnapshotMax = 32

// GetListenAddr возвращает адрес прослушивания с поддержкой fallback значений.
func (s *ServerConfig) GetListenAddr() string {
	if s.ListenAddr != "" {
		return s.ListenAddr
	}
	if env := os.Getenv("SIM_LISTEN_ADDR"); env != "" {
		return env
	}
	return ":" + strconv.Itoa(DefaultPort)
}

// GetMapPath возвращает путь к файлу уровня с поддержкой fallback значений.
func (s *ServerConfig) GetMapPath() string {
	if s.MapPath != "" {
		return s.MapPath
	}
	return os.Getenv("SIM_MAP_PATH")
}

// GetTickRate возвращает период тика, применяя дефолт при отсутствии значения.
func (s *ServerConfig) GetTickRate() time.Duration {
	if s.TickRateMs > 0 {
		return time.Duration(s.TickRateMs) * time.Millisecond
	}
	return DefaultTickRate * time.Millisecond
}

// GetSnapshotMax возвращает размер кольца снимков, применяя дефолт.
func (s *ServerConfig) GetSnapshotMax() int {
	if s.SnapshotMax > 0 {
		return s.SnapshotMax
	}
	return DefaultSnapshotMax
}

// GetHost возвращает адрес сервера для клиента с поддержкой fallback значений.
func (c *ClientConfig) GetHost() string {
	if c.Host != "" {
		return c.Host
	}
	if env := os.Getenv("SIM_SERVER_HOST"); env != "" {
		return env
	}
	return "127.0.0.1"
}

// GetPort возвращает порт сервера для клиента с поддержкой fallback значений.
func (c *ClientConfig) GetPort() int {
	if c.Port > 0 {
		return c.Port
	}
	if env := os.Getenv("SIM_SERVER_PORT"); env != "" {
		if port, err := strconv.Atoi(env); err == nil && port > 0 {
			return port
		}
	}
	return DefaultPort
}

// Resolved returns the PID gains, falling back to the safe default
// (p=0.1, i=0, d=0) when the config leaves all three at zero.
func (p PIDConfig) Resolved() (kp, ki, kd float64) {
	if p.P == 0 && p.I == 0 && p.D == 0 {
		return 0.1, 0, 0
	}
	return p.P, p.I, p.D
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV SIM_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SIM_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
