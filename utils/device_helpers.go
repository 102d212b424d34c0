package utils

import (
	"fmt"

	"github.com/notargets/gocca"
	"github.com/notargets/kernelbench/logging"
)

// DeviceChain is the order in which OCCA modes are tried when no explicit
// device is requested
var DeviceChain = []string{
	`{"mode": "OpenMP"}`,
	`{"mode": "CUDA", "device_id": 0}`,
	`{"mode": "Serial"}`,
}

// CreateDevice opens the first device that succeeds among props. With no
// props it walks DeviceChain.
func CreateDevice(props ...string) (*gocca.OCCADevice, error) {
	if len(props) == 0 {
		props = DeviceChain
	}

	var lastErr error
	for _, p := range props {
		device, err := gocca.NewDevice(p)
		if err == nil {
			logging.Get().WithField("mode", device.Mode()).Info("created OCCA device")
			return device, nil
		}
		logging.Get().WithField("props", p).Debugf("device unavailable: %v", err)
		lastErr = err
	}
	return nil, fmt.Errorf("no OCCA device could be created: %w", lastErr)
}

// CreateTestDevice creates a Device for testing, preferring parallel backends
func CreateTestDevice() *gocca.OCCADevice {
	device, err := CreateDevice()
	if err != nil {
		// Should not reach here, Serial is always built
		panic(err)
	}
	return device
}
