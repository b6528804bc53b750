// config предоставляет структуру конфигурации шлюза и функции загрузки
// из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/pribylovaa/go-food-platform/internal/provider/supabase"
)

// Config — корневая конфигурация шлюза.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	IPC       IPCConfig       `yaml:"ipc"`
	Supabase  supabase.Config `yaml:"supabase"`
	Upstreams UpstreamsConfig `yaml:"upstreams"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// HTTPConfig — публичный HTTP-сервер шлюза.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8000"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// MetricsConfig — служебный HTTP (liveness/readiness/metrics).
type MetricsConfig struct {
	Host string `yaml:"host" env:"METRICS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"METRICS_PORT" env-default:"9000"`
}

// Addr возвращает адрес в формате host:port.
func (m MetricsConfig) Addr() string { return net.JoinHostPort(m.Host, m.Port) }

// IPCConfig — локальный канал до auth-сайдкара.
type IPCConfig struct {
	SocketPath  string        `yaml:"socket_path" env:"IPC_SOCKET_PATH" env-default:"/tmp/food-platform-auth.sock"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"IPC_DIAL_TIMEOUT" env-default:"2s"`
	CallTimeout time.Duration `yaml:"call_timeout" env:"IPC_CALL_TIMEOUT" env-default:"5s"`
}

// UpstreamsConfig — адреса бэкендов, на которые шлюз проксирует
// аутентифицированные запросы. Значения — host:port без схемы.
type UpstreamsConfig struct {
	ProfileAddr     string `yaml:"profile_addr" env:"UPSTREAM_PROFILE_ADDR" env-default:"127.0.0.1:8001"`
	RecipeAddr      string `yaml:"recipe_addr" env:"UPSTREAM_RECIPE_ADDR" env-default:"127.0.0.1:8002"`
	MenuAddr        string `yaml:"menu_addr" env:"UPSTREAM_MENU_ADDR" env-default:"127.0.0.1:8003"`
	EatTogetherAddr string `yaml:"eat_together_addr" env:"UPSTREAM_EAT_TOGETHER_ADDR" env-default:"127.0.0.1:8004"`
}

// TimeoutConfig — таймауты шлюза.
type TimeoutConfig struct {
	// Service ограничивает обработку одного HTTP-запроса целиком
	// (middleware Timeout).
	Service time.Duration `yaml:"service" env:"SERVICE" env-default:"30s"`
	// Upstream ограничивает один проксируемый запрос к бэкенду.
	Upstream time.Duration `yaml:"upstream" env:"UPSTREAM" env-default:"20s"`
	// Shutdown — предел graceful-остановки HTTP-серверов.
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN" env-default:"5s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
