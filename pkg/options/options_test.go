package options

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestDefaultsAreValid(t *testing.T) {
	groups := map[string]IOptions{
		"mqtt":      NewMqttOptions(),
		"modem":     NewModemOptions(),
		"relay":     NewRelayOptions(),
		"telemetry": NewTelemetryOptions(),
		"ota":       NewOTAOptions(),
		"s3":        NewS3Options(),
		"http":      NewHttpOptions(),
	}

	for name, o := range groups {
		if errs := o.Validate(); len(errs) != 0 {
			t.Errorf("%s defaults invalid: %v", name, errs)
		}
	}
}

func TestRelayOptionsRejectsSharedLine(t *testing.T) {
	o := NewRelayOptions()
	o.Relay2Line = o.Relay1Line
	errs := o.Validate()
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "same line") {
		t.Fatalf("expected a shared line error, got %v", errs)
	}
}

func TestOTAOptionsSource(t *testing.T) {
	o := NewOTAOptions()
	o.Source = "ftp"
	if errs := o.Validate(); len(errs) == 0 {
		t.Error("unknown source should be rejected")
	}

	o = NewOTAOptions()
	o.Source = OTASourceS3
	o.FirmwareURL = ""
	if errs := o.Validate(); len(errs) != 0 {
		t.Errorf("s3 source must not require URLs, got %v", errs)
	}

	o = NewOTAOptions()
	o.VersionURL = "ftp://example.com/version.txt"
	if errs := o.Validate(); len(errs) != 1 {
		t.Errorf("expected one URL error, got %v", errs)
	}
}

func TestModemOptionsFlags(t *testing.T) {
	o := NewModemOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	if err := fs.Parse([]string{"--modem.apn=airtelgprs.com", "--modem.cool-down=3s"}); err != nil {
		t.Fatal(err)
	}
	if o.APN != "airtelgprs.com" || o.CoolDown != 3*time.Second {
		t.Errorf("flags not bound: apn=%q cool-down=%v", o.APN, o.CoolDown)
	}

	o.CoolDown = 0
	if errs := o.Validate(); len(errs) != 1 {
		t.Errorf("expected cool-down error, got %v", errs)
	}
}

func TestMqttOptionsToClientConfig(t *testing.T) {
	o := NewMqttOptions()
	o.ClientID = "esp0_client"
	cfg := o.ToClientConfig()
	if cfg.KeepAlive != 60 || cfg.ClientID != "esp0_client" || cfg.BrokerURL != o.Broker {
		t.Errorf("unexpected client config %+v", cfg)
	}
}

func TestValidateAddress(t *testing.T) {
	for addr, ok := range map[string]bool{
		"0.0.0.0:9090": true,
		":9090":        true,
		"127.0.0.1":    false,
		"1.2.3.4:x":    false,
	} {
		if err := ValidateAddress(addr); (err == nil) != ok {
			t.Errorf("ValidateAddress(%q) err = %v", addr, err)
		}
	}
}
