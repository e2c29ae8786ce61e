package models

import "time"

// Fixed timing contracts. They are calibrated against the sensor firmware's
// loop timing and the backend's group registration lag; they are not
// configurable per call.
const (
	SensorAcceptTimeout  = 10 * time.Second
	SensorConfirmTimeout = 10 * time.Second
	PersistenceTimeout   = 15 * time.Second
	PrecheckTimeout      = 15 * time.Second
	RetrySettleDelay     = 3 * time.Second
	ResetDwell           = 4 * time.Second
	ChannelReadySettle   = 500 * time.Millisecond
	EarlyErrorWindow     = 1500 * time.Millisecond
	ConfirmCueFallback   = 3 * time.Second
	StaleLockAge         = 30 * time.Minute
)
