package array

// Device identifies the memory an array's elements live in.
type Device int

const (
	// Host is ordinary process memory.
	Host Device = iota
	// CUDA is memory on an NVIDIA GPU.
	CUDA
)

func (d Device) String() string {
	switch d {
	case Host:
		return "host"
	case CUDA:
		return "cuda"
	default:
		return "unknown"
	}
}

// DeviceInfo contains information about the device backing an array module
type DeviceInfo struct {
	Name              string `json:"name"`
	TotalMemory       int64  `json:"totalMemory"`     // in bytes
	AvailableMemory   int64  `json:"availableMemory"` // in bytes
	ComputeCapability string `json:"computeCapability"`
	DriverVersion     string `json:"driverVersion"`
	CUDAVersion       string `json:"cudaVersion,omitempty"`
}
