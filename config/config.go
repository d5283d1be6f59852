package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// Config es la configuración completa del evaluador.
type Config struct {
	Evaluator  EvaluatorConfig   `yaml:"evaluator"`
	Provider   ProviderConfig    `yaml:"provider"`
	Benchmarks []BenchmarkConfig `yaml:"benchmarks"`
	Storage    StorageConfig     `yaml:"storage"`
	Log        LogConfig         `yaml:"log"`
}

// EvaluatorConfig controla la simulación y el cálculo de benchmarks.
type EvaluatorConfig struct {
	// MaxGapSessions es la tolerancia de sesiones hábiles consecutivas sin
	// datos antes de abortar con DataGapError. Nunca por debajo de 2: un
	// festivo con puente no debe tumbar una evaluación.
	MaxGapSessions int `yaml:"max_gap_sessions"`
	// EdgeToleranceSessions es el margen de los bordes de ventana al decidir
	// si una serie de benchmark la cubre.
	EdgeToleranceSessions int `yaml:"edge_tolerance_sessions"`
	// FeePerContract es la comisión por contrato y lado, en dólares.
	FeePerContract float64 `yaml:"fee_per_contract"`
	// SweepWorkers es el tamaño del pool del modo sweep (0 = NumCPU).
	SweepWorkers int `yaml:"sweep_workers"`
}

// ProviderConfig contiene los base URLs de los proveedores de datos y los
// activos a descargar en el modo fetch. La API key nunca va en el YAML:
// solo por entorno (MARKET_API_KEY).
type ProviderConfig struct {
	MarketBase string   `yaml:"market_base"`
	SpotBase   string   `yaml:"spot_base"`
	Assets     []string `yaml:"assets"`
	APIKey     string   `yaml:"-"`
}

// BenchmarkConfig permite sustituir las series por defecto de un benchmark.
type BenchmarkConfig struct {
	Name string `yaml:"name"`
	ETF  string `yaml:"etf"`
	Spot string `yaml:"spot"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// BenchmarkSpecs devuelve los benchmarks configurados como specs de dominio,
// o los cuatro por defecto si el YAML no define ninguno.
func (c *Config) BenchmarkSpecs() []domain.BenchmarkSpec {
	if len(c.Benchmarks) == 0 {
		return domain.DefaultBenchmarks()
	}
	specs := make([]domain.BenchmarkSpec, 0, len(c.Benchmarks))
	for _, b := range c.Benchmarks {
		specs = append(specs, domain.BenchmarkSpec{
			Name: domain.AssetID(b.Name),
			ETF:  domain.AssetID(b.ETF),
			Spot: domain.AssetID(b.Spot),
		})
	}
	return specs
}

// FetchAssets devuelve los activos del modo fetch como ids de dominio.
func (c *Config) FetchAssets() []domain.AssetID {
	out := make([]domain.AssetID, 0, len(c.Provider.Assets))
	for _, a := range c.Provider.Assets {
		out = append(out, domain.AssetID(a))
	}
	return out
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("MARKET_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Evaluator.MaxGapSessions < 2 {
		cfg.Evaluator.MaxGapSessions = 3
	}
	if cfg.Evaluator.EdgeToleranceSessions <= 0 {
		cfg.Evaluator.EdgeToleranceSessions = 3
	}
	if cfg.Evaluator.FeePerContract < 0 {
		cfg.Evaluator.FeePerContract = 0
	}
	if len(cfg.Provider.Assets) == 0 {
		cfg.Provider.Assets = []string{"SPY", "QQQ", "IBIT", "ETHA"}
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "optbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
