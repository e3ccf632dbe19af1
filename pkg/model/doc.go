// Package model defines the data exchanged with the external object and
// state store.
//
// # Objects
//
// An Object describes a monitored value. Its Common block carries the value
// type tag and a Custom map with one configuration block per adapter
// namespace:
//
//	Object (light.kitchen)
//	└── Common
//	    ├── Type: "boolean"
//	    └── Custom
//	        └── expire.0
//	            ├── enabled:  true
//	            ├── interval: "5s"
//	            ├── state:    false
//	            └── ack:      false
//
// # States
//
// A State is a single observation of a value: the value itself, its
// acknowledgement flag and the time it was written (milliseconds since epoch).
//
// # Values
//
// Value is a closed variant over boolean, number and string. Raw values read
// from configuration are coerced once into a Value. Comparison against raw
// store values is loose: numbers, numeric strings and booleans compare
// numerically.
package model
