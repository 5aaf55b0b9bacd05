// Package schema checks the values a dialog collected against declared types.
//
// Types are written as short strings so they fit in dialog files:
//
//	results:
//	  name: string
//	  size: string
//	  count: number
//	  cheese: bool
//	  toppings: "[string]"
//	  note: string?
//
// A trailing "?" marks a key as optional. Values may have gone through a
// JSON round trip in a state store, so numbers are accepted as any numeric
// Go type and lists as any slice.
package schema
