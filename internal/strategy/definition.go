package strategy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/optbot/internal/domain"
)

// Definition es la descripción declarativa de una estrategia: qué contrato
// abrir, cuándo entrar y cuándo salir. La carga el usuario desde YAML y el
// evaluador la consume de solo lectura — la misma Definition sobre la misma
// ventana produce siempre el mismo ledger.
type Definition struct {
	Name       string         `yaml:"name"`
	Underlying domain.AssetID `yaml:"underlying"`
	Option     OptionSpec     `yaml:"option"`
	Entry      EntrySpec      `yaml:"entry"`
	Exit       ExitSpec       `yaml:"exit"`
	Sizing     SizingSpec     `yaml:"sizing"`
}

// OptionSpec describe el contrato a seleccionar en cada entrada.
type OptionSpec struct {
	Type      domain.OptionType `yaml:"type"`      // call | put
	Moneyness domain.Moneyness  `yaml:"moneyness"` // atm | itm | otm
	TargetDTE int               `yaml:"target_dte"`
	MinDTE    int               `yaml:"min_dte"`
	MaxDTE    int               `yaml:"max_dte"`
}

// EntrySpec describe la señal que dispara una entrada.
type EntrySpec struct {
	Signal string `yaml:"signal"` // always | close_change_pct | open_gap_pct | sma_cross
	// Threshold es el umbral en % para close_change_pct y open_gap_pct.
	// Positivo dispara en subidas >= threshold; negativo en caídas <= threshold.
	Threshold float64 `yaml:"threshold"`
	// Fast y Slow son las ventanas de las medias móviles de sma_cross.
	Fast int `yaml:"fast"`
	Slow int `yaml:"slow"`
}

// ExitSpec describe las reglas de salida. La expiración siempre cierra la
// posición (liquidación a valor intrínseco); el resto son opcionales, 0 = desactivada.
type ExitSpec struct {
	StopLossPct     float64 `yaml:"stop_loss_pct"`     // cerrar si la prima pierde este % de la entrada
	TakeProfitPct   float64 `yaml:"take_profit_pct"`   // cerrar si la prima gana este % sobre la entrada
	MaxHoldSessions int     `yaml:"max_hold_sessions"` // cerrar tras N sesiones abiertas
}

// SizingSpec describe las reglas de capital y tamaño de posición.
type SizingSpec struct {
	InitialCapital   float64 `yaml:"initial_capital"`
	Contracts        int     `yaml:"contracts"`
	MaxOpenPositions int     `yaml:"max_open_positions"`
}

// Load lee y valida una definición de estrategia desde un archivo YAML.
// Cualquier fallo se devuelve como *domain.InvalidStrategyError: la
// validación ocurre entera al cargar, nunca a mitad de una simulación.
func Load(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, &domain.InvalidStrategyError{
			Name:   path,
			Reason: fmt.Sprintf("no se pudo leer: %v", err),
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, &domain.InvalidStrategyError{
			Name:   path,
			Reason: fmt.Sprintf("YAML inválido: %v", err),
		}
	}

	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	def.applyDefaults()

	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// applyDefaults rellena los valores opcionales con defaults sensatos.
func (d *Definition) applyDefaults() {
	if d.Option.Moneyness == "" {
		d.Option.Moneyness = domain.MoneynessATM
	}
	if d.Option.TargetDTE == 0 {
		d.Option.TargetDTE = 30
	}
	if d.Option.MaxDTE == 0 {
		d.Option.MaxDTE = d.Option.TargetDTE * 2
	}
	if d.Entry.Signal == "" {
		d.Entry.Signal = SignalAlways
	}
	if d.Sizing.InitialCapital == 0 {
		d.Sizing.InitialCapital = 10000
	}
	if d.Sizing.Contracts == 0 {
		d.Sizing.Contracts = 1
	}
	if d.Sizing.MaxOpenPositions == 0 {
		d.Sizing.MaxOpenPositions = 1
	}
}

// Validate comprueba que la definición es coherente y ejecutable.
func (d Definition) Validate() error {
	fail := func(format string, args ...any) error {
		return &domain.InvalidStrategyError{Name: d.Name, Reason: fmt.Sprintf(format, args...)}
	}

	if d.Underlying == "" {
		return fail("underlying es obligatorio")
	}
	if err := d.Option.Type.Validate(); err != nil {
		return fail("option: %v", err)
	}
	if err := d.Option.Moneyness.Validate(); err != nil {
		return fail("option: %v", err)
	}
	if d.Option.TargetDTE <= 0 {
		return fail("option: target_dte debe ser > 0 (tiene %d)", d.Option.TargetDTE)
	}
	if d.Option.MinDTE < 0 {
		return fail("option: min_dte no puede ser negativo (tiene %d)", d.Option.MinDTE)
	}
	if d.Option.MinDTE > d.Option.TargetDTE || d.Option.TargetDTE > d.Option.MaxDTE {
		return fail("option: se requiere min_dte <= target_dte <= max_dte (tiene %d/%d/%d)",
			d.Option.MinDTE, d.Option.TargetDTE, d.Option.MaxDTE)
	}

	if _, err := NewSignal(d.Entry); err != nil {
		return fail("entry: %v", err)
	}

	if d.Exit.StopLossPct < 0 || d.Exit.StopLossPct > 100 {
		return fail("exit: stop_loss_pct debe estar en [0, 100] (tiene %.1f)", d.Exit.StopLossPct)
	}
	if d.Exit.TakeProfitPct < 0 {
		return fail("exit: take_profit_pct no puede ser negativo (tiene %.1f)", d.Exit.TakeProfitPct)
	}
	if d.Exit.MaxHoldSessions < 0 {
		return fail("exit: max_hold_sessions no puede ser negativo (tiene %d)", d.Exit.MaxHoldSessions)
	}

	if d.Sizing.InitialCapital <= 0 {
		return fail("sizing: initial_capital debe ser > 0 (tiene %.2f)", d.Sizing.InitialCapital)
	}
	if d.Sizing.Contracts <= 0 {
		return fail("sizing: contracts debe ser >= 1 (tiene %d)", d.Sizing.Contracts)
	}
	if d.Sizing.MaxOpenPositions <= 0 {
		return fail("sizing: max_open_positions debe ser >= 1 (tiene %d)", d.Sizing.MaxOpenPositions)
	}

	return nil
}

// LoadDir carga todas las definiciones *.yaml / *.yml de un directorio,
// ordenadas por nombre de archivo. Devuelve las rutas junto a cada
// definición; los archivos inválidos se devuelven en el mapa de errores
// sin abortar el resto (cada evaluación falla por separado).
func LoadDir(dir string) (defs []Definition, paths []string, failures map[string]error, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("strategy.LoadDir: %w", err)
	}

	failures = make(map[string]error)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		def, lerr := Load(path)
		if lerr != nil {
			failures[path] = lerr
			continue
		}
		defs = append(defs, def)
		paths = append(paths, path)
	}
	return defs, paths, failures, nil
}
