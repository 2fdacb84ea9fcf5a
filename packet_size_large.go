//go:build grf500_largepackets

package grf500

// ResponseCapacity is the largest response payload a Device accepts.
const ResponseCapacity = 1024
