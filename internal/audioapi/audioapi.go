package audioapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
)

var errNoDeviceWithID = errors.New("no device with specified ID")

type AudioIODevice struct {
	// The ID of the device
	//
	// Assigned by the AudioIODeviceAPI when listing devices, and only
	// meaningful to the API that listed it. Intended to be the canonical way
	// to reference the AudioIODevice (e.g. a microphone or speaker) when
	// asking the API to initialize it.
	ID int

	// A human-readable name for the device, if one exists.
	// Not necessary, and not canonical.
	Name string

	IsDefault bool

	// The device properties (sample rate and channels) the device is opened with.
	DeviceProperties audiodevice.DeviceProperties
}

func (device AudioIODevice) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "ID:          %d\n", device.ID)
	fmt.Fprintf(&sb, "Name:        %s\n", device.Name)
	fmt.Fprintf(&sb, "Default:     %t\n", device.IsDefault)
	fmt.Fprintf(&sb, "SampleRate:  %d\n", device.DeviceProperties.SampleRate)
	fmt.Fprintf(&sb, "NumChannels: %d\n", device.DeviceProperties.NumChannels)
	return sb.String()
}

// Define an API to interface with hardware devices.
// Intended to be an abstract way to:
// - Query existing devices (input and output)
// - Initialize an input/output device as a Sampler/OutputDevice respectively
//
// Devices initialized by the API are released by Close.
type AudioIODeviceAPI interface {
	InputDevices() []AudioIODevice
	InitInputDeviceFromID(AudioIODevice) (audiodevice.Sampler, error)
	InitDefaultInputDevice() (audiodevice.Sampler, error)

	OutputDevices() []AudioIODevice
	InitOutputDeviceFromID(AudioIODevice) (audiodevice.OutputDevice, error)
	InitDefaultOutputDevice() (audiodevice.OutputDevice, error)

	Close()
}
