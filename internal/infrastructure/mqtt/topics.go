package mqtt

// TopicPrefix is the root of every coupon system topic.
const TopicPrefix = "couponsys"

// Topics provides builders for coupon system MQTT topics.
type Topics struct{}

// SystemStatus returns the retained status topic, also used for the LWT.
//
// Example: couponsys/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// SweepReport returns the topic sweep reports are published on.
//
// Example: couponsys/sweep/report
func (Topics) SweepReport() string {
	return TopicPrefix + "/sweep/report"
}

// SweepCommand returns the topic that triggers an immediate sweep.
//
// Example: couponsys/command/sweep
func (Topics) SweepCommand() string {
	return TopicPrefix + "/command/sweep"
}

// AllTopics returns a wildcard matching every coupon system topic.
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
