// Package orderbook implements the aggregate-depth limit order book used by
// the zero-intelligence simulator.
//
// The book tracks depth per price tick on each side, not individual orders.
// Prices are integer ticks. Levels live in a red-black tree so the best price
// after a level is emptied is simply the next key.
//
// Limit orders are assumed not to cross the opposite best quote; the
// simulator only draws prices strictly inside its own side.
package orderbook
