// Package memdiag provides debug-time memory reporting and the periodic
// reclamation pass used between chunk windows.
package memdiag

import (
	"log"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

const gib = 1024 * 1024 * 1024

// LogUsage logs system and process memory for the given context label.
// Callers gate it behind the debug flag.
func LogUsage(context string) {
	log.Printf("[%s] Memory status:", context)

	if vm, err := mem.VirtualMemory(); err == nil {
		log.Printf("  System: %.1f%% used (%.2fGB / %.2fGB)",
			vm.UsedPercent, float64(vm.Used)/gib, float64(vm.Total)/gib)
	} else {
		log.Printf("  System: unavailable: %v", err)
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil {
			log.Printf("  Process RSS: %.2fGB VMS: %.2fGB",
				float64(info.RSS)/gib, float64(info.VMS)/gib)
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	log.Printf("  Go heap: %.2fGB in use, %.2fGB idle",
		float64(ms.HeapInuse)/gib, float64(ms.HeapIdle)/gib)
}

// Reclaim forces a collection and returns freed memory to the OS. Called
// every few windows by the chunked loader; a latency trade-off, not a
// correctness requirement.
func Reclaim() {
	runtime.GC()
	debug.FreeOSMemory()
}
