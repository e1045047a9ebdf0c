// Package feed decouples the simulation loop from its sinks.
//
// The simulator publishes best price changes into a PriceFanout, which copies
// each update into one Buffer per sink (database writer, WebSocket hub, Kafka
// publisher). Buffers never block the producer: they grow up to a maximum
// capacity and then drop the oldest entries.
package feed
