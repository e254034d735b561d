// Package camera opens device cameras with pion/mediadevices.
// A capture driver must be registered by the binary, e.g.
//
//	import _ "github.com/pion/mediadevices/pkg/driver/camera"
package camera

import (
	"fmt"
	"image"
	"strings"

	"github.com/giongto35/camview/pkg/capture"
	"github.com/giongto35/camview/pkg/logger"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
)

// Device describes one video input.
type Device struct {
	ID    string
	Label string
}

type MediaDevices struct {
	log *logger.Logger

	// enumerate is swapped in tests
	enumerate func() []mediadevices.MediaDeviceInfo
}

func New(log *logger.Logger) *MediaDevices {
	return &MediaDevices{log: log.Module("camera"), enumerate: mediadevices.EnumerateDevices}
}

// List returns all video inputs known to the registered drivers.
func (m *MediaDevices) List() []Device {
	var devices []Device
	for _, d := range m.enumerate() {
		if d.Kind != mediadevices.VideoInput {
			continue
		}
		devices = append(devices, Device{ID: d.DeviceID, Label: d.Label})
	}
	return devices
}

// Open picks a device and starts a raw video track on it.
func (m *MediaDevices) Open(conf capture.Config) (capture.Stream, error) {
	dev, ok := pick(m.List(), conf.DeviceID, conf.Facing)
	if !ok {
		return nil, capture.ErrNoCamera
	}
	m.log.Info().Str("id", dev.ID).Str("label", dev.Label).Msg("camera selected")

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.DeviceID = prop.StringExact(dev.ID)
			if conf.Width > 0 && conf.Height > 0 {
				c.Width = prop.Int(conf.Width)
				c.Height = prop.Int(conf.Height)
			}
			if conf.FrameRate > 0 {
				c.FrameRate = prop.Float(conf.FrameRate)
			}
		},
	})
	if err != nil {
		// retry with the device alone, some drivers reject any size hint
		m.log.Warn().Err(err).Msg("camera constraints rejected, retrying without them")
		stream, err = mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
			Video: func(c *mediadevices.MediaTrackConstraints) {
				c.DeviceID = prop.StringExact(dev.ID)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("get user media: %w", err)
		}
	}

	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return nil, capture.ErrNoCamera
	}
	track, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		for _, t := range tracks {
			_ = t.Close()
		}
		return nil, fmt.Errorf("unexpected track type %T", tracks[0])
	}
	return &trackStream{track: track, reader: track.NewReader(false)}, nil
}

// trackStream adapts a mediadevices track to capture.Stream.
// Closing the track makes a pending Read return an error.
type trackStream struct {
	track  *mediadevices.VideoTrack
	reader video.Reader
}

func (s *trackStream) Read() (image.Image, func(), error) { return s.reader.Read() }
func (s *trackStream) Close() error                       { return s.track.Close() }

// pick selects the device by exact id, then by facing keyword in the label,
// then the first one.
func pick(devices []Device, id, facing string) (Device, bool) {
	if len(devices) == 0 {
		return Device{}, false
	}
	if id != "" {
		for _, d := range devices {
			if d.ID == id {
				return d, true
			}
		}
	}
	if facing != "" {
		f := strings.ToLower(facing)
		for _, d := range devices {
			if strings.Contains(strings.ToLower(d.Label), f) {
				return d, true
			}
		}
	}
	return devices[0], true
}
