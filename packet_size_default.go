//go:build !grf500_largepackets

package grf500

// ResponseCapacity is the largest response payload a Device accepts.
// Build with the grf500_largepackets tag to raise it to 1024 bytes.
const ResponseCapacity = 64
