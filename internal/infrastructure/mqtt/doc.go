// Package mqtt publishes coupon system events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained online/offline status with a Last Will for crash detection
//   - Sweep reports published after every expiration sweep tick
//   - A command topic that triggers an immediate sweep
//
// MQTT is optional. When the broker is disabled or unreachable the process
// runs without it and sweep reports go only to the other reporters.
//
// # Topics
//
//	couponsys/system/status   retained online/offline status (LWT)
//	couponsys/sweep/report    one JSON sweep.Report per tick
//	couponsys/command/sweep   any message runs one sweep tick
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	coordinator.AddReporter(mqtt.NewSweepReporter(client))
package mqtt
