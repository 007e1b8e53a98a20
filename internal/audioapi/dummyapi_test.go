package audioapi

import (
	"testing"

	"github.com/Honorable-Knights-of-the-Roundtable/toyvoice/pkg/audiodevice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDummyAudioIODeviceAPI(t *testing.T) {
	properties := audiodevice.DeviceProperties{SampleRate: 8000, NumChannels: 1}
	var api AudioIODeviceAPI = NewDummyAudioIODeviceAPI(properties)
	defer api.Close()

	inputs := api.InputDevices()
	require.Len(t, inputs, 1)
	assert.True(t, inputs[0].IsDefault)
	assert.Contains(t, inputs[0].String(), "DummyInput")

	sampler, err := api.InitInputDeviceFromID(inputs[0])
	require.NoError(t, err)
	sample, err := sampler.ReadSample()
	require.NoError(t, err)
	assert.Equal(t, int16(0), sample)
	assert.Equal(t, properties, sampler.GetDeviceProperties())

	outputs := api.OutputDevices()
	require.Len(t, outputs, 1)
	output, err := api.InitOutputDeviceFromID(outputs[0])
	require.NoError(t, err)
	assert.Equal(t, properties, output.GetDeviceProperties())

	_, err = api.InitInputDeviceFromID(AudioIODevice{ID: 3})
	assert.ErrorIs(t, err, errNoDeviceWithID)
	_, err = api.InitOutputDeviceFromID(AudioIODevice{ID: 3})
	assert.ErrorIs(t, err, errNoDeviceWithID)
}
