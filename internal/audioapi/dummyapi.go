package audioapi

import (
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice/device"
)

// A dummy API that lists only one input and one output device:
// - a dummy sampler (produces silence, forever)
// - a dummy output device (keeps every sample written to it)
//
// This API is intended to be used in testing, and for dry runs of the CLI.
type DummyAudioIODeviceAPI struct {
	properties audiodevice.DeviceProperties
}

func NewDummyAudioIODeviceAPI(properties audiodevice.DeviceProperties) DummyAudioIODeviceAPI {
	return DummyAudioIODeviceAPI{
		properties: properties,
	}
}

func (api DummyAudioIODeviceAPI) InputDevices() []AudioIODevice {
	return []AudioIODevice{
		{
			ID:               0,
			Name:             "DummyInput",
			IsDefault:        true,
			DeviceProperties: api.properties,
		},
	}
}

func (api DummyAudioIODeviceAPI) InitInputDeviceFromID(id AudioIODevice) (audiodevice.Sampler, error) {
	if id.ID != 0 {
		return nil, errNoDeviceWithID
	}
	return api.InitDefaultInputDevice()
}

func (api DummyAudioIODeviceAPI) InitDefaultInputDevice() (audiodevice.Sampler, error) {
	return device.NewDummySampler(api.properties, []int16{0}), nil
}

func (api DummyAudioIODeviceAPI) OutputDevices() []AudioIODevice {
	return []AudioIODevice{
		{
			ID:               0,
			Name:             "DummyOutput",
			IsDefault:        true,
			DeviceProperties: api.properties,
		},
	}
}

func (api DummyAudioIODeviceAPI) InitOutputDeviceFromID(id AudioIODevice) (audiodevice.OutputDevice, error) {
	if id.ID != 0 {
		return nil, errNoDeviceWithID
	}
	return api.InitDefaultOutputDevice()
}

func (api DummyAudioIODeviceAPI) InitDefaultOutputDevice() (audiodevice.OutputDevice, error) {
	return device.NewDummyOutputDevice(api.properties), nil
}

func (api DummyAudioIODeviceAPI) Close() {}
