package system

// Stats is the stats payload stored in the system_stats collection.
type Stats struct {
	Cpu            float64             `json:"cpu"`
	MaxCpu         float64             `json:"cpum,omitempty"`
	Mem            float64             `json:"m"`
	MemUsed        float64             `json:"mu"`
	MemPct         float64             `json:"mp"`
	MemBuffCache   float64             `json:"mb"`
	MemZfsArc      float64             `json:"mz,omitempty"` // ZFS ARC memory
	Swap           float64             `json:"s,omitempty"`
	SwapUsed       float64             `json:"su,omitempty"`
	DiskTotal      float64             `json:"d"`
	DiskUsed       float64             `json:"du"`
	DiskPct        float64             `json:"dp"`
	DiskReadPs     float64             `json:"dr"`
	DiskWritePs    float64             `json:"dw"`
	NetworkSent    float64             `json:"ns"`
	NetworkRecv    float64             `json:"nr"`
	Temperatures   map[string]float64  `json:"t,omitempty"`
	ExtraFs        map[string]*FsStats `json:"efs,omitempty"`
	Bandwidth      [2]uint64           `json:"b,omitzero"` // [sent bytes, recv bytes]
	LoadAvg        [3]float64          `json:"la,omitempty"`
	Battery        [2]uint8            `json:"bat,omitzero"` // [percent, charge state]
	DiskIO         [2]uint64           `json:"dio,omitzero"` // [read bytes, write bytes]
	MaxNetworkSent float64             `json:"nsm,omitempty"`
	MaxNetworkRecv float64             `json:"nrm,omitempty"`
}

type FsStats struct {
	DiskTotal   float64 `json:"d"`
	DiskUsed    float64 `json:"du"`
	DiskReadPs  float64 `json:"r"`
	DiskWritePs float64 `json:"w"`
}
