package software

import (
	"github.com/gogpu/gputext/backend"
	"github.com/gogpu/gputext/device"
)

func init() {
	backend.Register(backend.Software, func() (device.Device, error) {
		return New(), nil
	})
}
