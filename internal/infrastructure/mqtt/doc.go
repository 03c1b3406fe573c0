// Package mqtt provides the MQTT connectivity layer between the gateway
// module and the gateway's local broker.
//
// This package manages:
//   - Connection to the gateway broker with an explicit connect/disconnect
//     lifecycle owned by the caller
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - A caller-supplied Last Will and Testament, refreshed on every connect
//   - Connection health monitoring
//
// # Architecture
//
// The module talks to the platform only through the gateway's broker. The
// broker decouples the module from the gateway's platform link.
//
//	Module ↔ Gateway Broker ↔ Gateway ↔ Platform
//
// Automatic reconnection is deliberately disabled: the caller decides when
// to retry so that reconnect attempts serialise with the rest of its work
// and the last will payload can be rebuilt before each attempt.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT)
//	client.SetWill("lastwill", []byte(`["DEV1"]`))
//	if err := client.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect()
//
//	err := client.Subscribe("p2d/#", 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
