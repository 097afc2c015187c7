package mqtt

import (
	"errors"
	"testing"

	"github.com/sweeney/home-controller/internal/device"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in     string
		wantID string
		want   device.State
	}{
		{"led1:ON", "led1", device.StateOn},
		{"fan:OFF", "fan", device.StateOff},
		{"led2:on", "led2", device.StateOn},
		{" door:OFF\n", "door", device.StateOff},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cmd, err := ParseCommand([]byte(tt.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.DeviceID != tt.wantID {
				t.Errorf("DeviceID: got %q, want %q", cmd.DeviceID, tt.wantID)
			}
			if cmd.State != tt.want {
				t.Errorf("State: got %q, want %q", cmd.State, tt.want)
			}
		})
	}
}

func TestParseCommandMalformed(t *testing.T) {
	for _, in := range []string{"", "led1", "led1-ON", ":ON", "led1:", "led1:DIM", "Temperature:25.00"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseCommand([]byte(in))
			if !errors.Is(err, ErrMalformedMessage) {
				t.Errorf("got %v, want ErrMalformedMessage", err)
			}
		})
	}
}

func TestFormatCommand(t *testing.T) {
	if got := string(FormatCommand("led1", device.StateOn)); got != "led1:ON" {
		t.Errorf("got %q", got)
	}
	if got := string(FormatCommand("fan", device.StateOff)); got != "fan:OFF" {
		t.Errorf("got %q", got)
	}
}

func TestFormatReading(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{25, "Temperature:25.00"},
		{23.456, "Temperature:23.46"},
		{-1.5, "Temperature:-1.50"},
	}
	for _, tt := range tests {
		if got := string(FormatReading(tt.in)); got != tt.want {
			t.Errorf("FormatReading(%v): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewTopics(t *testing.T) {
	topics := NewTopics("")
	if topics.Control != "smart_home/control" {
		t.Errorf("Control: got %q", topics.Control)
	}
	if topics.Sensor != "smart_home/sensor" {
		t.Errorf("Sensor: got %q", topics.Sensor)
	}
	if topics.Status != "smart_home/status" {
		t.Errorf("Status: got %q", topics.Status)
	}

	custom := NewTopics("lab")
	if custom.Control != "lab/control" {
		t.Errorf("custom Control: got %q", custom.Control)
	}
}
