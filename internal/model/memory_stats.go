package model

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"QueryFilter/internal/logger"
)

func readAllocBytes() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// countRegistryEntries returns how many models, top-level fields and query
// keys (aliases and search keys) the registry holds.
func countRegistryEntries() (models, fields, keys int) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, m := range Registry {
		models++
		fields += len(m.Fields.TopLevel())
		keys += len(m.Alias) + len(m.Search)
	}
	return models, fields, keys
}

// logRegistryFootprint пишет в лог, сколько памяти занял загруженный реестр.
func logRegistryFootprint(before uint64) {
	models, fields, keys := countRegistryEntries()
	var delta uint64
	if after := readAllocBytes(); after > before {
		delta = after - before
	}
	limit, source := detectMemoryLimit()
	logger.Info("registry_footprint", map[string]any{
		"models":       models,
		"fields":       fields,
		"query_keys":   keys,
		"heap_delta":   formatBytes(delta),
		"memory_limit": formatBytes(limit),
		"limit_source": source,
	})
}

var cgroupLimitFiles = []struct{ path, source string }{
	{"/sys/fs/cgroup/memory.max", "cgroup v2 memory.max"},
	{"/sys/fs/cgroup/memory/memory.limit_in_bytes", "cgroup v1 memory.limit_in_bytes"},
}

// detectMemoryLimit: лимит cgroup, иначе MemTotal; 0 если неизвестно.
func detectMemoryLimit() (uint64, string) {
	for _, f := range cgroupLimitFiles {
		if data, err := os.ReadFile(f.path); err == nil {
			if v, ok := parseLimitValue(string(data)); ok {
				return v, f.source
			}
		}
	}
	if data, err := os.ReadFile("/proc/meminfo"); err == nil {
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			var kb uint64
			if _, err := fmt.Sscanf(sc.Text(), "MemTotal: %d kB", &kb); err == nil {
				return kb * 1024, "proc meminfo MemTotal"
			}
		}
	}
	return 0, "unknown"
}

func parseLimitValue(raw string) (uint64, bool) {
	s := strings.TrimSpace(raw)
	if s == "max" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}

func formatBytes(v uint64) string {
	units := []string{"KB", "MB", "GB"}
	if v < 1024 {
		return strconv.FormatUint(v, 10) + " B"
	}
	f := float64(v) / 1024
	i := 0
	for f >= 1024 && i < len(units)-1 {
		f /= 1024
		i++
	}
	return strconv.FormatFloat(f, 'f', 2, 64) + " " + units[i]
}
