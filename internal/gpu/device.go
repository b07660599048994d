package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// deviceContext bundles the HAL objects a compositor renders with.
// When external is true the device and queue are borrowed from a
// provider and must not be destroyed on close.
type deviceContext struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	adapterName string
	external    bool
}

// halProvider is the duck-typed contract for sharing a GPU device with
// another library. The provider must return hal.Device and hal.Queue
// from HalDevice/HalQueue.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// acquireDevice opens a GPU device for compositing. With a non-nil
// provider the device is borrowed; otherwise a Vulkan instance is
// created and an adapter opened, preferring discrete and integrated
// GPUs over software implementations.
func acquireDevice(provider any) (*deviceContext, error) {
	if provider != nil {
		return borrowDevice(provider)
	}
	return openOwnDevice()
}

func borrowDevice(provider any) (*deviceContext, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("provider HalQueue is not hal.Queue")
	}
	slogger().Info("compositor using shared GPU device")
	return &deviceContext{
		device:      device,
		queue:       queue,
		adapterName: "shared",
		external:    true,
	}, nil
}

func openOwnDevice() (*deviceContext, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}
	slogger().Info("compositor GPU device opened", "adapter", selected.Info.Name)
	return &deviceContext{
		instance:    instance,
		device:      openDev.Device,
		queue:       openDev.Queue,
		adapterName: selected.Info.Name,
	}, nil
}

// close releases the device and instance when owned. Borrowed devices
// are only detached.
func (dc *deviceContext) close() {
	if dc == nil {
		return
	}
	if !dc.external {
		if dc.device != nil {
			dc.device.Destroy()
		}
		if dc.instance != nil {
			dc.instance.Destroy()
		}
	}
	dc.device = nil
	dc.queue = nil
	dc.instance = nil
}
