// Package influxdb records coupon system metrics in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes and health checks.
//
// # Measurements
//
//	sweep_run   one point per expiration sweep tick
//	            tags: complete; fields: found, removed, failed, duration_ms
//	pool_stats  sampled connection pool occupancy
//	            fields: size, free, leased
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	coordinator.AddReporter(influxdb.NewSweepReporter(client))
//	go client.SamplePool(ctx, cfg.System.ID, 30*time.Second, pool.Stats)
//
// InfluxDB is optional; the process runs without it when disabled or
// unreachable. Write errors are delivered asynchronously to SetOnError.
package influxdb
