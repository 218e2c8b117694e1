// Package registry maps CITES Trade Database versions to their expected
// checksums.
//
// A default registry is embedded in the binary. It can be replaced by a
// user supplied YAML file of the same shape:
//
//	current: "2020.1"
//	versions:
//	  "2020.1":
//	    algorithm: md5
//	    archive: d64d99182bdfb3696f6ce91687ccdd81
//	    combined: ""
package registry
