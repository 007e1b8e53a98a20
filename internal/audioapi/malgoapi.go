package audioapi

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice/device"
	"github.com/gen2brain/malgo"
	"github.com/google/uuid"
)

type closer interface {
	Close()
}

// AudioIODeviceAPI over miniaudio, through malgo.
//
// Input devices are opened with the configured capture properties; output
// devices are configured per playback session.
type MalgoApi struct {
	logger       *slog.Logger
	malgoContext *malgo.AllocatedContext
	properties   audiodevice.DeviceProperties
	queueSize    int

	mu     sync.Mutex
	opened []closer
}

// Create a new MalgoApi. properties are used for capture devices, queueSize
// bounds the sample queue between the hardware callback and the caller.
func NewMalgoApi(properties audiodevice.DeviceProperties, queueSize int) (*MalgoApi, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"malgo api uuid", uuid,
	)

	malgoContext, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		logger.Error("failed to create malgo context", "err", err)
		return nil, fmt.Errorf("%w: %w", audiodevice.ErrPeripheralInit, err)
	}

	return &MalgoApi{
		logger:       logger,
		malgoContext: malgoContext,
		properties:   properties,
		queueSize:    queueSize,
	}, nil
}

func (api *MalgoApi) devices(deviceType malgo.DeviceType) ([]malgo.DeviceInfo, []AudioIODevice) {
	infos, err := api.malgoContext.Devices(deviceType)
	if err != nil {
		api.logger.Error("failed to list devices", "deviceType", deviceType, "err", err)
		return nil, nil
	}

	devices := make([]AudioIODevice, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, AudioIODevice{
			ID:               i,
			Name:             info.Name(),
			IsDefault:        info.IsDefault == 1,
			DeviceProperties: api.properties,
		})
	}
	return infos, devices
}

func (api *MalgoApi) find(deviceType malgo.DeviceType, ioDevice AudioIODevice) (*malgo.DeviceID, error) {
	infos, _ := api.devices(deviceType)
	if ioDevice.ID < 0 || ioDevice.ID >= len(infos) {
		return nil, fmt.Errorf("%w: %d", errNoDeviceWithID, ioDevice.ID)
	}
	id := infos[ioDevice.ID].ID
	return &id, nil
}

func (api *MalgoApi) track(c closer) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.opened = append(api.opened, c)
}

func (api *MalgoApi) InputDevices() []AudioIODevice {
	_, devices := api.devices(malgo.Capture)
	return devices
}

func (api *MalgoApi) OutputDevices() []AudioIODevice {
	_, devices := api.devices(malgo.Playback)
	return devices
}

func (api *MalgoApi) InitInputDeviceFromID(ioDevice AudioIODevice) (audiodevice.Sampler, error) {
	id, err := api.find(malgo.Capture, ioDevice)
	if err != nil {
		return nil, err
	}
	return api.initInput(id)
}

func (api *MalgoApi) InitDefaultInputDevice() (audiodevice.Sampler, error) {
	return api.initInput(nil)
}

func (api *MalgoApi) initInput(id *malgo.DeviceID) (audiodevice.Sampler, error) {
	input, err := device.NewMalgoInputDevice(id, api.properties, api.queueSize)
	if err != nil {
		return nil, err
	}
	api.track(input)
	return device.NewMalgoSampler(input), nil
}

func (api *MalgoApi) InitOutputDeviceFromID(ioDevice AudioIODevice) (audiodevice.OutputDevice, error) {
	id, err := api.find(malgo.Playback, ioDevice)
	if err != nil {
		return nil, err
	}
	return api.initOutput(id)
}

func (api *MalgoApi) InitDefaultOutputDevice() (audiodevice.OutputDevice, error) {
	return api.initOutput(nil)
}

func (api *MalgoApi) initOutput(id *malgo.DeviceID) (audiodevice.OutputDevice, error) {
	output, err := device.NewMalgoOutputDevice(id, api.queueSize)
	if err != nil {
		return nil, err
	}
	api.track(output)
	return output, nil
}

// Close every device opened through the API, then the malgo context.
func (api *MalgoApi) Close() {
	api.mu.Lock()
	defer api.mu.Unlock()

	for _, c := range api.opened {
		c.Close()
	}
	api.opened = nil

	if api.malgoContext != nil {
		if err := api.malgoContext.Uninit(); err != nil {
			api.logger.Warn("failed to uninitialize malgo context", "err", err)
		}
		api.malgoContext.Free()
		api.malgoContext = nil
	}
}
