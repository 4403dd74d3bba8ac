// Package mqtt provides the broker connection behind the device's cloud link.
//
// This package manages:
//   - A non-blocking connect that paho retries with exponential backoff
//   - Subscriptions recorded before connect and restored on every reconnect
//   - Acknowledged publishing with QoS and payload-size checks
//   - A retained status topic with a Last Will for offline detection
//   - The device topic tree ({prefix}/{device_id}/...)
//
// # Topic tree
//
//	{root}/status                  retained online/offline (LWT)
//	{root}/property                property samples (device -> cloud)
//	{root}/notification/{topic}    rendered notifications
//	{root}/event/{topic}           application publishes
//	{root}/property/set/{key}      property writes (cloud -> device)
//	{root}/rpc/post/{name}         POST invocations
//	{root}/rpc/get/{name}          GET invocations
//	{root}/reply/{request_id}      results of the two above
//
// # Security Considerations
//
//   - TLS should be enabled for any broker outside the device (cfg.Broker.TLS=true)
//   - Broker ACLs should confine each device to its own root
//
// # Usage
//
//	topics := mqtt.Topics{Prefix: cfg.Cloud.TopicPrefix, DeviceID: id.DeviceIDHex()}
//	client := mqtt.New(cfg.Cloud.MQTT, id.DeviceIDHex(), topics.Status())
//	_ = client.Subscribe(topics.RPCPostFilter(), 1, handler)
//	_ = client.Connect() // returns at once; watch client.State()
package mqtt
