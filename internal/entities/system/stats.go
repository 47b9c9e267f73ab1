package system

// Field is one chartable measurement of Stats.
type Field struct {
	Key   string
	Value func(*Stats) float64
}

// StatsFields lists the fixed chart keys of Stats in display order.
// Map valued stats (temperatures, extra filesystems) are keyed dynamically
// with a "t." or "efs.<name>." prefix instead.
var StatsFields = []Field{
	{"cpu", func(s *Stats) float64 { return s.Cpu }},
	{"m", func(s *Stats) float64 { return s.Mem }},
	{"mu", func(s *Stats) float64 { return s.MemUsed }},
	{"mp", func(s *Stats) float64 { return s.MemPct }},
	{"mb", func(s *Stats) float64 { return s.MemBuffCache }},
	{"mz", func(s *Stats) float64 { return s.MemZfsArc }},
	{"s", func(s *Stats) float64 { return s.Swap }},
	{"su", func(s *Stats) float64 { return s.SwapUsed }},
	{"d", func(s *Stats) float64 { return s.DiskTotal }},
	{"du", func(s *Stats) float64 { return s.DiskUsed }},
	{"dp", func(s *Stats) float64 { return s.DiskPct }},
	{"dr", func(s *Stats) float64 { return s.DiskReadPs }},
	{"dw", func(s *Stats) float64 { return s.DiskWritePs }},
	{"ns", func(s *Stats) float64 { return s.NetworkSent }},
	{"nr", func(s *Stats) float64 { return s.NetworkRecv }},
	{"bs", func(s *Stats) float64 { return float64(s.Bandwidth[0]) }},
	{"br", func(s *Stats) float64 { return float64(s.Bandwidth[1]) }},
	{"dior", func(s *Stats) float64 { return float64(s.DiskIO[0]) }},
	{"diow", func(s *Stats) float64 { return float64(s.DiskIO[1]) }},
	{"l1", func(s *Stats) float64 { return s.LoadAvg[0] }},
	{"l5", func(s *Stats) float64 { return s.LoadAvg[1] }},
	{"l15", func(s *Stats) float64 { return s.LoadAvg[2] }},
	{"bat", func(s *Stats) float64 { return float64(s.Battery[0]) }},
}
