package hal

// Config describes the device wiring.
type Config struct {
	DeviceID string

	// GPIORoot is the sysfs GPIO directory, DefaultGPIORoot when empty.
	GPIORoot  string
	Lines     Lines
	ActiveLow bool

	// ImagePath is where the firmware image is installed.
	ImagePath string
}
