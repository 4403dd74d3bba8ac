// Package cloud connects the device to its cloud over MQTT.
//
// A Link is configured with the device identity, which fixes the client id
// and the topic root {prefix}/{device_id}. It then:
//
//   - Publishes property samples, notifications and application events
//     through a bounded queue and a single sender goroutine
//   - Handles property writes and RPC calls arriving on
//     property/set/{key}, rpc/post/{name} and rpc/get/{name}
//   - Replies on reply/{request_id}
//
// Every outbound message carries a uuid message id and a timestamp and is
// encoded as JSON or CBOR depending on cloud.encoding.
package cloud
