// Package lobster reads LOBSTER message and orderbook files into trading days.
//
// A trading day consists of two CSV files with one line per event:
//
//	<SYMBOL>_<YYYY-MM-DD>_<start>_<end>_message_<N>.csv
//	<SYMBOL>_<YYYY-MM-DD>_<start>_<end>_orderbook_<N>.csv
//
// Message lines hold time, type, order id, size, price and direction.
// Orderbook lines hold N levels as askPrice, askSize, bidPrice, bidSize.
// Unoccupied levels carry the dummy prices +/-9999999999 with size 0 and are
// dropped. Lines that fail to parse are logged and skipped together with
// their counterpart in the other file so both streams stay aligned.
//
// Files ending in .gz are decompressed transparently.
package lobster
