package monitor

// CpuCounters holds cumulative CPU time fields parsed from the
// aggregate "cpu" line of /proc/stat (spec.md §3).
type CpuCounters struct {
	User    uint64
	Nice    uint64
	System  uint64
	Idle    uint64
	IOWait  uint64
	IRQ     uint64
	SoftIRQ uint64
	Steal   uint64
}

// Total returns the sum of all eight counters.
func (c CpuCounters) Total() uint64 {
	return c.User + c.Nice + c.System + c.Idle + c.IOWait + c.IRQ + c.SoftIRQ + c.Steal
}

// IdleTotal returns idle + iowait.
func (c CpuCounters) IdleTotal() uint64 {
	return c.Idle + c.IOWait
}

// SystemStats is the parsed, periodically-collected snapshot of a
// remote host's vitals (spec.md §3). JSON field names are camelCase to
// match the desktop frontend's existing wire convention.
type SystemStats struct {
	Hostname          string     `json:"hostname"`
	UptimeSeconds     float64    `json:"uptimeSeconds"`
	LoadAverage       [3]float64 `json:"loadAverage"`
	CPUUsagePercent   float64    `json:"cpuUsagePercent"`
	MemoryTotalKB     uint64     `json:"memoryTotalKb"`
	MemoryAvailableKB uint64     `json:"memoryAvailableKb"`
	MemoryUsedPercent float64    `json:"memoryUsedPercent"`
	DiskTotalKB       uint64     `json:"diskTotalKb"`
	DiskUsedKB        uint64     `json:"diskUsedKb"`
	DiskUsedPercent   float64    `json:"diskUsedPercent"`
	OSInfo            string     `json:"osInfo"`
}
