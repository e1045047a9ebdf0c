// Package publish forwards simulated best price changes to a Kafka topic.
//
// Messages are keyed by run id so that every update of one simulation run
// lands on the same partition in order.
package publish
