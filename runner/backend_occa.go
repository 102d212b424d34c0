package runner

import (
	"fmt"
	"unsafe"

	"github.com/notargets/gocca"
	"github.com/notargets/kernelbench/logging"
	"github.com/notargets/kernelbench/runner/builder"
)

// OCCABackend runs OKL kernels on an OCCA device (Serial, OpenMP, CUDA, ...)
type OCCABackend struct {
	Device  *gocca.OCCADevice
	Kernels map[string]*gocca.OCCAKernel
	owned   bool
}

// NewOCCABackend wraps an existing device. The caller keeps ownership of the device.
func NewOCCABackend(device *gocca.OCCADevice) *OCCABackend {
	return &OCCABackend{
		Device:  device,
		Kernels: make(map[string]*gocca.OCCAKernel),
	}
}

// OpenOCCABackend creates a device from OCCA properties, e.g. `{"mode": "Serial"}`,
// and frees it together with the backend
func OpenOCCABackend(props string) (*OCCABackend, error) {
	device, err := gocca.NewDevice(props)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCCA device %s: %w", props, err)
	}
	return AdoptOCCABackend(device), nil
}

// AdoptOCCABackend wraps device and frees it together with the backend
func AdoptOCCABackend(device *gocca.OCCADevice) *OCCABackend {
	ob := NewOCCABackend(device)
	ob.owned = true
	return ob
}

type occaMemory struct {
	mem   *gocca.OCCAMemory
	bytes int64
}

func (m *occaMemory) Bytes() int64 { return m.bytes }

func (m *occaMemory) Free() {
	if m.mem != nil {
		m.mem.Free()
		m.mem = nil
	}
}

func (ob *OCCABackend) Mode() string {
	if ob.Device == nil {
		return "freed"
	}
	return ob.Device.Mode()
}

func (ob *OCCABackend) Validate(def *KernelDefinition) error {
	if def.Body == "" {
		return fmt.Errorf("kernel %s has no OKL body", def.Name)
	}
	return nil
}

func (ob *OCCABackend) Allocate(buf *Buffer) (DeviceMemory, error) {
	bytes := buf.Bytes()
	mem := ob.Device.Malloc(bytes, nil, nil)
	if mem == nil {
		return nil, fmt.Errorf("device malloc of %d bytes failed", bytes)
	}
	return &occaMemory{mem: mem, bytes: bytes}, nil
}

func (ob *OCCABackend) Upload(buf *Buffer) error {
	mem, err := occaStorage(buf)
	if err != nil {
		return err
	}
	mem.mem.CopyFrom(unsafe.Pointer(&buf.host[0]), mem.bytes)
	return nil
}

func (ob *OCCABackend) Download(buf *Buffer) error {
	mem, err := occaStorage(buf)
	if err != nil {
		return err
	}
	mem.mem.CopyTo(unsafe.Pointer(&buf.host[0]), mem.bytes)
	return nil
}

// Launch builds the kernel on first use, runs it and waits for the device
func (ob *OCCABackend) Launch(def *KernelDefinition, _ builder.Range, args []Arg, scalars []interface{}) error {
	kernel, err := ob.BuildKernel(def)
	if err != nil {
		return err
	}

	kargs, err := buildKernelArguments(def, args, scalars)
	if err != nil {
		return fmt.Errorf("failed to build arguments: %w", err)
	}

	if err := kernel.RunWithArgs(kargs...); err != nil {
		return err
	}
	ob.Device.Finish()
	return nil
}

// BuildKernel compiles a kernel definition once per name
func (ob *OCCABackend) BuildKernel(def *KernelDefinition) (*gocca.OCCAKernel, error) {
	if kernel, exists := ob.Kernels[def.Name]; exists {
		return kernel, nil
	}

	var kernel *gocca.OCCAKernel
	var err error

	if ob.Device.Mode() == "OpenMP" {
		// Workaround for OCCA bug: OpenMP doesn't get default -O3 flag
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = ob.Device.BuildKernelFromString(def.Source(), def.Name, props)
	} else {
		kernel, err = ob.Device.BuildKernelFromString(def.Source(), def.Name, nil)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to build kernel %s: %w", def.Name, err)
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", def.Name)
	}

	logging.Get().WithField("kernel", def.Name).Debugf("built kernel on %s device", ob.Device.Mode())
	ob.Kernels[def.Name] = kernel
	return kernel, nil
}

// Free releases kernels, and the device when the backend opened it
func (ob *OCCABackend) Free() {
	for name, kernel := range ob.Kernels {
		kernel.Free()
		delete(ob.Kernels, name)
	}
	if ob.owned && ob.Device != nil {
		ob.Device.Free()
		ob.Device = nil
	}
}

func occaStorage(buf *Buffer) (*occaMemory, error) {
	mem, ok := buf.mem.(*occaMemory)
	if !ok || mem == nil || mem.mem == nil {
		return nil, fmt.Errorf("buffer %s has no OCCA device memory", buf.Name)
	}
	return mem, nil
}
