package chip8

import (
	"fmt"
	"log/slog"
)

// Hook runs inside the console loop with exclusive access to the CPU.
// Hooks must not call back into the Console. They may be added while the loop runs.
type Hook func(cpu *Cpu)

// AddBeforeFrameHook adds a hook that will run before every frame
func (c *Console) AddBeforeFrameHook(h Hook) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.beforeFrameHooks = append(c.beforeFrameHooks, h)

	return len(c.beforeFrameHooks)
}

// AddBeforeCycleHook adds a hook that will run before every cycle
func (c *Console) AddBeforeCycleHook(h Hook) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.beforeCycleHooks = append(c.beforeCycleHooks, h)

	return len(c.beforeCycleHooks)
}

// AddAfterCycleHook adds a hook that will run after every cycle
func (c *Console) AddAfterCycleHook(h Hook) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.afterCycleHooks = append(c.afterCycleHooks, h)

	return len(c.afterCycleHooks)
}

// AddAfterFrameHook adds a hook that will run after every frame
func (c *Console) AddAfterFrameHook(h Hook) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.afterFrameHooks = append(c.afterFrameHooks, h)

	return len(c.afterFrameHooks)
}

// AddErrorHook adds a hook that will run when a cycle fails
func (c *Console) AddErrorHook(h Hook) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errorHooks = append(c.errorHooks, h)

	return len(c.errorHooks)
}

func (c *Console) runHooks(hooks []Hook) {
	for _, h := range hooks {
		h(c.cpu)
	}
}

// TraceHook logs the instruction that was just executed at debug level.
// Meant to be added as an after-cycle hook.
func TraceHook(logger *slog.Logger) Hook {
	return func(cpu *Cpu) {
		ins := Decode(cpu.OpCode)
		logger.Debug("cycle",
			slog.String("opcode", hex4(cpu.OpCode)),
			slog.String("op", ins.Op.String()),
			slog.String("pc", hex4(cpu.Pc)),
			slog.String("i", hex4(cpu.I)),
			slog.Int("sp", int(cpu.Sp)),
			slog.Any("stack", cpu.Stack[:cpu.Sp]),
		)
	}
}

func hex4(v uint16) string {
	return fmt.Sprintf("%04X", v)
}
