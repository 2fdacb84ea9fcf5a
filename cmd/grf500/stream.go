// grf-500-api
// Copyright (c) 2025 The grf-500-api Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of grf-500-api.
//
// grf-500-api is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// grf-500-api is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with grf-500-api; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	"github.com/LightWare-Optoelectronics/grf-500-api/telemetry"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var (
	streamKind       string
	streamFormat     string
	streamOutput     string
	streamCount      int
	streamMQTT       string
	streamMQTTPrefix string
	streamMQTTUser   string
	streamMQTTQoS    uint8
	streamMQTTRetain bool
)

const (
	kindDistance = "distance"
	kindMulti    = "multi"

	// restoreTimeout bounds switching the stream off after an interrupt
	restoreTimeout = 2 * time.Second
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Record measurements as JSON lines, CBOR or MQTT messages",
	Long: `Record measurements until interrupted or --count is reached.

Serial sensors are switched to streaming for the duration of the command
and back off afterwards. I2C sensors are read at the configured update
rate. Records go to stdout (or --output) and, with --mqtt, to a broker.
The broker password is read from GRF500_MQTT_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, err := telemetry.ParseFormat(streamFormat)
		if err != nil {
			return err
		}
		if streamKind != kindDistance && streamKind != kindMulti {
			return fmt.Errorf("unknown kind %q, want %s or %s", streamKind, kindDistance, kindMulti)
		}

		sink, err := openSinks(cmd.Context(), cmd.OutOrStdout(), format)
		if err != nil {
			return err
		}
		defer func() {
			if err := sink.Close(); err != nil {
				glog.Warningf("close sink: %v", err)
			}
		}()

		return withDevice(cmd.Context(), func(d *grf500.Device) error {
			sample, restore, err := newSampler(cmd.Context(), d, streamKind)
			if err != nil {
				return err
			}
			defer restore()
			return collect(cmd.Context(), sample, sink, streamCount)
		})
	},
}

func init() {
	streamCmd.Flags().StringVar(&streamKind, "kind", kindDistance, "Measurement: distance or multi")
	streamCmd.Flags().StringVarP(&streamFormat, "format", "f", string(telemetry.FormatJSON), "Encoding: json or cbor")
	streamCmd.Flags().StringVarP(&streamOutput, "output", "o", "", "Write records to a file instead of stdout")
	streamCmd.Flags().IntVarP(&streamCount, "count", "n", 0, "Stop after this many records (0 runs until interrupted)")
	streamCmd.Flags().StringVar(&streamMQTT, "mqtt", "", "Also publish to this broker (tcp://host:1883)")
	streamCmd.Flags().StringVar(&streamMQTTPrefix, "mqtt-prefix", telemetry.DefaultTopicPrefix, "MQTT topic prefix")
	streamCmd.Flags().StringVar(&streamMQTTUser, "mqtt-username", "", "MQTT username")
	streamCmd.Flags().Uint8Var(&streamMQTTQoS, "mqtt-qos", 0, "MQTT quality of service")
	streamCmd.Flags().BoolVar(&streamMQTTRetain, "mqtt-retain", false, "Publish retained messages")
}

// openSinks builds the stream sink and, when asked, the MQTT sink
func openSinks(ctx context.Context, stdout io.Writer, format telemetry.Format) (telemetry.Sink, error) {
	w := stdout
	if streamOutput != "" {
		f, err := os.Create(streamOutput)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", streamOutput, err)
		}
		w = f
	}
	out, err := telemetry.NewStreamSink(w, format)
	if err != nil {
		return nil, err
	}
	if streamMQTT == "" {
		return out, nil
	}

	broker, err := telemetry.DialMQTT(ctx, telemetry.BrokerConfig{
		URL:      streamMQTT,
		ClientID: fmt.Sprintf("grf500-%d", os.Getpid()),
		Username: streamMQTTUser,
		Password: os.Getenv("GRF500_MQTT_PASSWORD"),
	},
		telemetry.WithTopicPrefix(streamMQTTPrefix),
		telemetry.WithQoS(streamMQTTQoS),
		telemetry.WithRetained(streamMQTTRetain),
		telemetry.WithPayloadFormat(format),
		telemetry.WithMQTTLogger(glogLogger),
	)
	if err != nil {
		_ = out.Close()
		return nil, err
	}
	return telemetry.MultiSink{out, broker}, nil
}

// sampler returns the next measurement
type sampler func(ctx context.Context) (telemetry.Record, error)

// newSampler prepares d for kind. Stream transports have the device
// stream the packet; register transports read it at the update rate.
// restore undoes any device change and is always safe to call.
func newSampler(ctx context.Context, d *grf500.Device, kind string) (sampler, func(), error) {
	info, err := d.ProductInfo(ctx)
	if err != nil {
		return nil, nil, err
	}
	config, err := d.DistanceConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	rate, err := d.UpdateRate(ctx)
	if err != nil {
		return nil, nil, err
	}
	period := time.Second
	if rate > 0 {
		period = time.Duration(float64(time.Second) / rate)
	}

	distance := func(data grf500.DistanceData) telemetry.Record {
		return telemetry.FromDistance(info.SerialNumber, time.Now(), config, data)
	}
	multi := func(data grf500.MultiData) telemetry.Record {
		return telemetry.FromMulti(info.SerialNumber, time.Now(), data)
	}

	if !d.IsStream() {
		sleep := func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(period):
				return nil
			}
		}
		restore := func() {}
		if kind == kindMulti {
			return func(ctx context.Context) (telemetry.Record, error) {
				if err := sleep(ctx); err != nil {
					return telemetry.Record{}, err
				}
				data, err := d.MultiData(ctx)
				return multi(data), err
			}, restore, nil
		}
		return func(ctx context.Context) (telemetry.Record, error) {
			if err := sleep(ctx); err != nil {
				return telemetry.Record{}, err
			}
			data, err := d.DistanceData(ctx, config)
			return distance(data), err
		}, restore, nil
	}

	stream := grf500.StreamDistanceData
	if kind == kindMulti {
		stream = grf500.StreamMultiData
	}
	if err := d.SetStream(ctx, stream); err != nil {
		return nil, nil, err
	}
	restore := func() {
		ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		defer cancel()
		if err := d.SetStream(ctx, grf500.StreamNone); err != nil {
			glog.Warningf("failed to stop streaming: %v", err)
		}
	}

	// A few missed periods are tolerated before the wait gives up
	wait := 4*period + timeout
	if kind == kindMulti {
		return func(ctx context.Context) (telemetry.Record, error) {
			data, err := d.WaitForStreamedMultiData(ctx, wait)
			return multi(data), err
		}, restore, nil
	}
	return func(ctx context.Context) (telemetry.Record, error) {
		data, err := d.WaitForStreamedDistanceData(ctx, config, wait)
		return distance(data), err
	}, restore, nil
}

// collect writes samples to sink until count records were written (count
// 0 means forever) or ctx ends. An interrupt is a normal way to stop.
func collect(ctx context.Context, sample sampler, sink telemetry.Sink, count int) error {
	for n := 0; count == 0 || n < count; n++ {
		r, err := sample(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := sink.Write(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
