package relayagent

import (
	"os"
	"strings"

	"github.com/autopeer-io/cellrelay/pkg/log"
)

// DeviceIDFile is written by the provisioning step of the node image.
const DeviceIDFile = "/etc/cellrelay/device-id"

// DiscoverDeviceID looks up the device identity in the environment, then in DeviceIDFile.
// It returns an empty string when neither is set.
func DiscoverDeviceID() string {
	return discoverDeviceID(DeviceIDFile)
}

func discoverDeviceID(path string) string {
	if envID := os.Getenv("CPEER_DEVICE_ID"); envID != "" {
		log.Info("DeviceID detected from env", "id", envID)
		return envID
	}

	if content, err := os.ReadFile(path); err == nil {
		id := strings.TrimSpace(string(content))
		if id != "" {
			log.Info("DeviceID detected from file", "id", id)
			return id
		}
	}

	return ""
}
