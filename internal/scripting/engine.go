package scripting

import (
	"fmt"
	"time"

	"github.com/duskwatch/server/internal/data"
	"github.com/duskwatch/server/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM used to evaluate data scripts.
// Single-goroutine access only (startup and game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a VM with the base libraries opened.
func NewEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	return &Engine{vm: vm, log: log}
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// DoFile executes a script file.
func (e *Engine) DoFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// DoString executes inline source (tests and console use).
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// WaveTables converts the global `waves` table into validated wave tables.
//
// Expected shape, durations in seconds:
//
//	waves = {
//	  night = {
//	    time_between_waves = 8,
//	    waves = { { archetype = "zombie", count = 5, spawn_interval = 2 } },
//	  },
//	}
func (e *Engine) WaveTables() (*data.WaveTables, error) {
	root, ok := e.vm.GetGlobal("waves").(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua global 'waves' is not a table")
	}

	var tables []data.PhaseWaveTable
	var convErr error
	root.ForEach(func(k, v lua.LValue) {
		if convErr != nil {
			return
		}
		phase, err := world.ParsePhase(k.String())
		if err != nil {
			convErr = err
			return
		}
		pt, ok := v.(*lua.LTable)
		if !ok {
			convErr = fmt.Errorf("waves.%s is not a table", k.String())
			return
		}
		tbl, err := phaseTable(phase, pt)
		if err != nil {
			convErr = err
			return
		}
		tables = append(tables, tbl)
	})
	if convErr != nil {
		return nil, convErr
	}
	return data.NewWaveTables(tables)
}

func phaseTable(phase world.Phase, t *lua.LTable) (data.PhaseWaveTable, error) {
	out := data.PhaseWaveTable{
		Phase:            phase,
		TimeBetweenWaves: seconds(t.RawGetString("time_between_waves")),
	}
	list, ok := t.RawGetString("waves").(*lua.LTable)
	if !ok {
		return out, fmt.Errorf("waves.%s.waves is not a table", phase)
	}
	n := list.Len()
	for i := 1; i <= n; i++ {
		wt, ok := list.RawGetInt(i).(*lua.LTable)
		if !ok {
			return out, fmt.Errorf("waves.%s.waves[%d] is not a table", phase, i)
		}
		out.Waves = append(out.Waves, data.WaveDefinition{
			Archetype:     lua.LVAsString(wt.RawGetString("archetype")),
			Count:         int(lua.LVAsNumber(wt.RawGetString("count"))),
			SpawnInterval: seconds(wt.RawGetString("spawn_interval")),
		})
	}
	return out, nil
}

func seconds(v lua.LValue) time.Duration {
	return time.Duration(float64(lua.LVAsNumber(v)) * float64(time.Second))
}

// LoadWaveTables runs a Lua wave script and returns its tables.
func LoadWaveTables(path string, log *zap.Logger) (*data.WaveTables, error) {
	e := NewEngine(log)
	defer e.Close()
	if err := e.DoFile(path); err != nil {
		return nil, err
	}
	t, err := e.WaveTables()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Info("lua wave tables loaded", zap.String("file", path), zap.Int("phases", t.Count()))
	return t, nil
}
