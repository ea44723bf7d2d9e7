package module

import "sync"

// process-wide port sets, filled while a command wires its modules
var (
	mu  sync.RWMutex
	reg = map[string]any{}
)

// Register stores the port set of module name, replacing an earlier one
func Register(name string, ports any) {
	mu.Lock()
	defer mu.Unlock()
	reg[name] = ports
}

// PortsAs returns the port set registered under name as T
func PortsAs[T any](name string) (T, bool) {
	mu.RLock()
	v, ok := reg[name]
	mu.RUnlock()
	out, ok2 := v.(T)
	return out, ok && ok2
}

// Reset forgets every registration; tests only
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	clear(reg)
}
