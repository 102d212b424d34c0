package harness

import (
	"fmt"
	"strings"

	"github.com/notargets/kernelbench/runner"
	"github.com/notargets/kernelbench/utils"
)

var occaModes = map[string]string{
	"serial": `{"mode": "Serial"}`,
	"openmp": `{"mode": "OpenMP"}`,
	"cuda":   `{"mode": "CUDA", "device_id": 0}`,
	"opencl": `{"mode": "OpenCL", "platform_id": 0, "device_id": 0}`,
}

// NewBackend selects the execution backend named by cfg.Device:
//
//	host              goroutine backend, cfg.Workers wide
//	auto | occa       first OCCA device among OpenMP, CUDA, Serial
//	serial | openmp | cuda | opencl
//	{"mode": ...}     raw OCCA device properties
func NewBackend(cfg *Config) (runner.Backend, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Device))

	switch {
	case name == "host":
		return runner.NewHostBackend(cfg.Workers), nil
	case name == "auto" || name == "occa":
		device, err := utils.CreateDevice()
		if err != nil {
			return nil, err
		}
		return runner.AdoptOCCABackend(device), nil
	case strings.HasPrefix(name, "{"):
		return runner.OpenOCCABackend(cfg.Device)
	}

	if props, ok := occaModes[name]; ok {
		return runner.OpenOCCABackend(props)
	}
	return nil, fmt.Errorf("unknown device %q", cfg.Device)
}
