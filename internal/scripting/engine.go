package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/realmd/internal/game/world"
)

// spawnPlanFunc is the global each spawn script must define. It receives the
// zone id and returns a table of {template=, x=, y=, count=} entries.
const spawnPlanFunc = "spawn_plan"

// Engine stores named spawn scripts and evaluates them on demand. Each run
// uses a fresh sandboxed VM, so scripts cannot leak state between runs.
// Safe for concurrent use.
type Engine struct {
	logger    *zap.Logger
	instLimit int

	mu      sync.RWMutex
	scripts map[string]string
}

// NewEngine creates a script Engine. instLimit 0 uses the default opcode
// limit.
//
// Precondition: logger must be non-nil.
func NewEngine(logger *zap.Logger, instLimit int) *Engine {
	return &Engine{
		logger:    logger,
		instLimit: instLimit,
		scripts:   make(map[string]string),
	}
}

// LoadScript registers a named script after compile-checking it in a
// sandboxed VM.
//
// Precondition: name must be non-empty.
// Postcondition: Returns an error without registering when the source does
// not compile.
func (e *Engine) LoadScript(name, source string) error {
	if name == "" {
		return fmt.Errorf("scripting: script name must not be empty")
	}
	L := newSandboxedState(e.instLimit)
	defer L.Close()
	if _, err := L.LoadString(source); err != nil {
		return fmt.Errorf("scripting: compile %q: %w", name, err)
	}

	e.mu.Lock()
	e.scripts[name] = source
	e.mu.Unlock()
	return nil
}

// LoadDir registers every *.lua file in dir under its base name without the
// extension. A missing directory is not an error.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("scripting: read dir %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("scripting: read %q: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), ".lua")
		if err := e.LoadScript(name, string(data)); err != nil {
			return err
		}
		e.logger.Debug("spawn script loaded", zap.String("script", name))
	}
	return nil
}

// Has reports whether a script is registered under name.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.scripts[name]
	return ok
}

// SpawnPlan runs the named script's spawn_plan function for zoneID and
// returns the directives it produced. Implements world.ScriptRunner.
//
// Postcondition: Every returned directive has a non-empty template id and
// count >= 1.
func (e *Engine) SpawnPlan(script, zoneID string) ([]world.SpawnDirective, error) {
	e.mu.RLock()
	source, ok := e.scripts[script]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("scripting: unknown script %q", script)
	}

	L := newSandboxedState(e.instLimit)
	defer L.Close()

	if err := L.DoString(source); err != nil {
		return nil, fmt.Errorf("scripting: run %q: %w", script, err)
	}
	fn := L.GetGlobal(spawnPlanFunc)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("scripting: %q does not define %s", script, spawnPlanFunc)
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LString(zoneID)); err != nil {
		return nil, fmt.Errorf("scripting: call %s in %q: %w", spawnPlanFunc, script, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	table, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("scripting: %s in %q must return a table, got %s", spawnPlanFunc, script, ret.Type())
	}

	var directives []world.SpawnDirective
	var parseErr error
	table.ForEach(func(_, value lua.LValue) {
		if parseErr != nil {
			return
		}
		entry, ok := value.(*lua.LTable)
		if !ok {
			parseErr = fmt.Errorf("scripting: %q spawn entry must be a table, got %s", script, value.Type())
			return
		}
		d, err := parseDirective(entry)
		if err != nil {
			parseErr = fmt.Errorf("scripting: %q: %w", script, err)
			return
		}
		directives = append(directives, d)
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return directives, nil
}

func parseDirective(entry *lua.LTable) (world.SpawnDirective, error) {
	d := world.SpawnDirective{Count: 1}

	tmpl := entry.RawGetString("template")
	name, ok := tmpl.(lua.LString)
	if !ok || name == "" {
		return d, fmt.Errorf("spawn entry needs a template string")
	}
	d.TemplateID = string(name)

	if x, ok := entry.RawGetString("x").(lua.LNumber); ok {
		d.X = float64(x)
	}
	if y, ok := entry.RawGetString("y").(lua.LNumber); ok {
		d.Y = float64(y)
	}
	if count, ok := entry.RawGetString("count").(lua.LNumber); ok && int(count) >= 1 {
		d.Count = int(count)
	}
	return d, nil
}
