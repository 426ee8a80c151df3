package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*OTAOptions)(nil)

const (
	// OTASourceHTTP fetches the firmware and version file from fixed URLs.
	OTASourceHTTP = "http"
	// OTASourceS3 fetches them through presigned URLs of an S3 compatible bucket.
	OTASourceS3 = "s3"
)

// OTAOptions contains the firmware retrieval and flashing configuration.
type OTAOptions struct {
	// FirmwareVersion overrides the version token baked in at build time.
	FirmwareVersion string `json:"firmware-version" mapstructure:"firmware-version"`

	Source string `json:"source" mapstructure:"source"`

	FirmwareURL string `json:"firmware-url" mapstructure:"firmware-url"`
	VersionURL  string `json:"version-url" mapstructure:"version-url"`

	// Object keys and link lifetime used when Source is "s3".
	FirmwareObject string        `json:"firmware-object" mapstructure:"firmware-object"`
	VersionObject  string        `json:"version-object" mapstructure:"version-object"`
	PresignExpiry  time.Duration `json:"presign-expiry" mapstructure:"presign-expiry"`

	// HTTPTimeout bounds a complete GET, body included.
	HTTPTimeout time.Duration `json:"http-timeout" mapstructure:"http-timeout"`

	// ImagePath is where the verified firmware image is installed.
	ImagePath string `json:"image-path" mapstructure:"image-path"`

	// FlushDelay is the pause between publishing success and restarting.
	FlushDelay time.Duration `json:"flush-delay" mapstructure:"flush-delay"`
}

// NewOTAOptions creates an OTAOptions object with default parameters.
func NewOTAOptions() *OTAOptions {
	return &OTAOptions{
		Source:         OTASourceHTTP,
		FirmwareURL:    "https://raw.githubusercontent.com/autopeer-io/cellrelay-firmware/main/firmware/firmware.bin",
		VersionURL:     "https://raw.githubusercontent.com/autopeer-io/cellrelay-firmware/main/version.txt",
		FirmwareObject: "cellrelay/firmware.bin",
		VersionObject:  "cellrelay/version.txt",
		PresignExpiry:  15 * time.Minute,
		HTTPTimeout:    5 * time.Minute,
		ImagePath:      "/var/lib/cellrelay/firmware.bin",
		FlushDelay:     time.Second,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *OTAOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	switch o.Source {
	case OTASourceHTTP:
		for name, raw := range map[string]string{"firmware-url": o.FirmwareURL, "version-url": o.VersionURL} {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				errors = append(errors, fmt.Errorf("--ota.%s must be an http(s) URL, got %q", name, raw))
			}
		}
	case OTASourceS3:
		if o.FirmwareObject == "" || o.VersionObject == "" {
			errors = append(errors, fmt.Errorf("--ota.firmware-object and --ota.version-object are required for the s3 source"))
		}
		if o.PresignExpiry <= 0 {
			errors = append(errors, fmt.Errorf("--ota.presign-expiry must be positive"))
		}
	default:
		errors = append(errors, fmt.Errorf("--ota.source must be %q or %q, got %q", OTASourceHTTP, OTASourceS3, o.Source))
	}

	if o.HTTPTimeout <= 0 {
		errors = append(errors, fmt.Errorf("--ota.http-timeout must be positive"))
	}
	if o.ImagePath == "" {
		errors = append(errors, fmt.Errorf("--ota.image-path is required"))
	}

	return errors
}

// AddFlags adds flags for OTAOptions to the specified FlagSet.
func (o *OTAOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.FirmwareVersion, "ota.firmware-version", o.FirmwareVersion, "Override the running firmware version token.")
	fs.StringVar(&o.Source, "ota.source", o.Source, "Where firmware artifacts come from ('http' or 's3').")
	fs.StringVar(&o.FirmwareURL, "ota.firmware-url", o.FirmwareURL, "URL of the raw firmware binary.")
	fs.StringVar(&o.VersionURL, "ota.version-url", o.VersionURL, "URL of the plaintext version token.")
	fs.StringVar(&o.FirmwareObject, "ota.firmware-object", o.FirmwareObject, "Object key of the firmware binary (s3 source).")
	fs.StringVar(&o.VersionObject, "ota.version-object", o.VersionObject, "Object key of the version token (s3 source).")
	fs.DurationVar(&o.PresignExpiry, "ota.presign-expiry", o.PresignExpiry, "Lifetime of presigned URLs (s3 source).")
	fs.DurationVar(&o.HTTPTimeout, "ota.http-timeout", o.HTTPTimeout, "Timeout of a complete firmware or version GET.")
	fs.StringVar(&o.ImagePath, "ota.image-path", o.ImagePath, "Install path of the firmware image.")
	fs.DurationVar(&o.FlushDelay, "ota.flush-delay", o.FlushDelay, "Pause between the success status and the restart.")
}
