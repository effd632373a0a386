// Package config provides configuration management for algobench.
package config

import "time"

// Default configuration values.
const (
	DefaultSlice         = 5 * time.Second
	DefaultDevice        = DeviceHost
	DefaultOutput        = "pretty"
	DefaultWindow        = 16
	DefaultLeakThreshold = "1MB"
	DefaultSettleDelay   = time.Second
	DefaultSettleRetries = 1

	DefaultMemoryFraction = 0.25
	DefaultMinThroughput  = 1 << 6
	DefaultMaxThroughput  = 1 << 20

	DefaultSimDevices  = 2
	DefaultSimMemory   = "4GB"
	DefaultSimReserved = "64MB"

	DefaultLogLevel      = "info"
	DefaultConsoleLevel  = "info"
	DefaultLogMaxSize    = "10MB"
	DefaultLogMaxAge     = 14
	DefaultLogMaxBackups = 3
)

// Device backends.
const (
	DeviceHost = "host"
	DeviceSim  = "sim"
)
