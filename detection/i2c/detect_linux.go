//go:build linux

package i2c

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LightWare-Optoelectronics/grf-500-api/detection"
	"golang.org/x/sys/unix"
)

// Linux i2c-dev ioctl requests
const (
	// I2CSlave is the ioctl command to set the slave address
	I2CSlave = 0x0703

	// I2CFuncs is the ioctl command to get adapter functionality
	I2CFuncs = 0x0705

	// I2CFuncI2C indicates plain I2C support
	I2CFuncI2C = 0x00000001
)

// detectLinux searches every /dev/i2c-* bus
func detectLinux(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	buses, err := findI2CBuses()
	if err != nil {
		return nil, err
	}
	if len(buses) == 0 {
		return nil, detection.ErrNoDevicesFound
	}

	var devices []detection.DeviceInfo
	for _, busPath := range buses {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}

		found, err := detectBus(ctx, busPath, opts)
		if err != nil {
			continue // Skip this bus on error
		}
		devices = append(devices, found...)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// detectBus scans one bus and classifies what answered
func detectBus(ctx context.Context, busPath string, opts *detection.Options) ([]detection.DeviceInfo, error) {
	fd, err := unix.Open(busPath, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", busPath, err)
	}
	defer func() { _ = unix.Close(fd) }()

	addresses := scanBus(fd)
	return classify(ctx, busPath, addresses, opts, func(ctx context.Context, addr uint8) (string, bool) {
		return queryProductName(ctx, fd, addr)
	}), nil
}

// findI2CBuses returns the buses that support plain I2C transfers
func findI2CBuses() ([]string, error) {
	matches, err := filepath.Glob("/dev/i2c-*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan for I2C devices: %w", err)
	}

	buses := make([]string, 0, len(matches))
	for _, path := range matches {
		if _, err := os.Stat(path); err != nil {
			continue
		}

		fd, err := unix.Open(path, unix.O_RDWR, 0)
		if err != nil {
			continue
		}
		funcs, err := unix.IoctlGetUint32(fd, I2CFuncs)
		_ = unix.Close(fd)
		if err != nil || funcs&I2CFuncI2C == 0 {
			continue
		}

		buses = append(buses, path)
	}

	return buses, nil
}

// scanBus returns every 7-bit address that acknowledges a one byte read
func scanBus(fd int) []uint8 {
	var addresses []uint8
	buf := make([]byte, 1)

	// Skip reserved addresses
	for addr := uint8(0x08); addr <= 0x77; addr++ {
		if err := unix.IoctlSetInt(fd, I2CSlave, int(addr)); err != nil {
			continue
		}
		if _, err := unix.Read(fd, buf); err == nil {
			addresses = append(addresses, addr)
		}
	}

	return addresses
}

// queryProductName selects the product name register and reads it back.
// The sensor may still be in its startup mode, so the I2C wake byte is
// written first.
func queryProductName(ctx context.Context, fd int, addr uint8) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	if err := unix.IoctlSetInt(fd, I2CSlave, int(addr)); err != nil {
		return "", false
	}

	if _, err := unix.Write(fd, []byte{productNameRegister, 0x80}); err != nil {
		return "", false
	}
	if _, err := unix.Write(fd, []byte{productNameRegister}); err != nil {
		return "", false
	}

	name := make([]byte, productNameSize)
	n, err := unix.Read(fd, name)
	if err != nil || n == 0 {
		return "", false
	}
	return trimName(name[:n]), true
}
