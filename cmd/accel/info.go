package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/mma845x/accel"
	"github.com/mklimuk/mma845x/cmd/accel/console"
)

type chipInfo struct {
	Session         string         `yaml:"session"`
	Chip            string         `yaml:"chip"`
	Identity        string         `yaml:"identity"`
	Resolution      uint8          `yaml:"resolution"`
	Mode            string         `yaml:"mode"`
	Range           string         `yaml:"range"`
	Scale           string         `yaml:"scale"`
	SampleFrequency string         `yaml:"sample_frequency"`
	Oversampling    string         `yaml:"oversampling"`
	HighPass        string         `yaml:"high_pass"`
	Events          []string       `yaml:"events"`
	CalibBias       map[string]int `yaml:"calib_bias"`
}

var infoCmd = cli.Command{
	Name:  "info",
	Usage: "identify the chip and print its configuration",
	Action: func(c *cli.Context) error {
		s, release, err := openSession(c)
		if err != nil {
			return console.Exit(1, "could not open session: %s", err)
		}
		defer release()
		ctx := commandContext(c)

		desc := s.Descriptor()
		info := chipInfo{
			Session:    s.ID().String(),
			Chip:       desc.Name,
			Identity:   fmt.Sprintf("%#04x", desc.ID),
			Resolution: desc.Resolution(),
			Range:      s.Range().String(),
			Scale:      s.Scale().String(),
			CalibBias:  map[string]int{},
		}
		mode, err := s.DeviceMode(ctx)
		if err != nil {
			return console.Exit(1, "could not read mode: %s", err)
		}
		info.Mode = mode.String()
		hz, err := s.SampleFrequency(ctx)
		if err != nil {
			return console.Exit(1, "could not read data rate: %s", err)
		}
		info.SampleFrequency = hz.String() + " Hz"
		ovs, err := s.Oversampling(ctx)
		if err != nil {
			return console.Exit(1, "could not read oversampling mode: %s", err)
		}
		info.Oversampling = ovs.String()
		hpf, err := s.HighPassFilter(ctx)
		if err != nil {
			return console.Exit(1, "could not read high-pass filter: %s", err)
		}
		info.HighPass = "off"
		if hpf.Enabled {
			info.HighPass = fmt.Sprintf("cutoff %d", hpf.Cutoff)
		}
		for _, k := range desc.SupportedEvents {
			info.Events = append(info.Events, k.String())
		}
		for _, axis := range []accel.Axis{accel.AxisX, accel.AxisY, accel.AxisZ} {
			bias, err := s.CalibBias(ctx, axis)
			if err != nil {
				return console.Exit(1, "could not read %s offset: %s", axis, err)
			}
			info.CalibBias[axis.String()] = int(bias)
		}

		enc := yaml.NewEncoder(console.Writer())
		defer enc.Close()
		if err := enc.Encode(info); err != nil {
			return console.Exit(1, "encoding error: %s", err)
		}
		return nil
	},
}
