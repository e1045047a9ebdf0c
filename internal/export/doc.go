// Package export writes simulation results to delimited text files and reads
// initial book depth files.
//
// Prices are stored in ticks by the order book. The price series is written in
// raw LOBSTER price units (tick times tick size) or, optionally, in dollars.
// Depth profiles stay in ticks so that an exported profile can seed a later
// simulation. Paths ending in .gz are gzip-compressed.
package export
