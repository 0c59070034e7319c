package policy

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/gammad/internal/display"
)

// targetFunc is the global the script must define:
//
//	function target(luminance, max_step, offset) return max_step - luminance * max_step / 255 + offset end
const targetFunc = "target"

// Lua evaluates a user script. When the script fails the Linear target is
// returned together with the error.
type Lua struct {
	mu       sync.Mutex
	L        *lua.LState
	path     string
	fallback Linear
}

// LoadLua compiles the script at path.
func LoadLua(path string) (*Lua, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy script: %w", err)
	}
	return NewLua(path, string(src))
}

// NewLua compiles src. name is used in error messages.
func NewLua(name, src string) (*Lua, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.MathLibName, lua.OpenMath},
		{lua.StringLibName, lua.OpenString},
		{lua.TabLibName, lua.OpenTable},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	if err := L.DoString(src); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to load policy script %s: %w", name, err)
	}
	if fn, ok := L.GetGlobal(targetFunc).(*lua.LFunction); !ok || fn == nil {
		L.Close()
		return nil, fmt.Errorf("policy script %s does not define %s()", name, targetFunc)
	}

	log.Info().Str("script", name).Msg("Brightness policy script loaded")
	return &Lua{L: L, path: name}, nil
}

// BrightnessTarget implements Policy.
func (p *Lua) BrightnessTarget(luminance, offset int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.L.CallByParam(lua.P{
		Fn:      p.L.GetGlobal(targetFunc),
		NRet:    1,
		Protect: true,
	}, lua.LNumber(luminance), lua.LNumber(display.MaxBrightnessStep), lua.LNumber(offset))
	if err != nil {
		return p.fallbackTarget(luminance, offset, fmt.Errorf("policy script failed: %w", err))
	}

	ret := p.L.Get(-1)
	p.L.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok {
		return p.fallbackTarget(luminance, offset, fmt.Errorf("policy script returned %s, want number", ret.Type()))
	}
	return int(n), nil
}

func (p *Lua) fallbackTarget(luminance, offset int, cause error) (int, error) {
	target, _ := p.fallback.BrightnessTarget(luminance, offset)
	return target, cause
}

// Close releases the Lua state.
func (p *Lua) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.L.Close()
}
