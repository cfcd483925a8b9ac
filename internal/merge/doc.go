// Package merge rewrites aggregator files.
//
// An aggregator file has three regions, always in this order:
//
//	header   leading import directives (plus configured header tokens), verbatim
//	exports  the sorted union of old and new export statements
//	trailer  everything else, verbatim, with leading blank lines removed;
//	         a trailer of only blank lines still earns the separator line
//
// Split assigns each line of an existing file to a region with a small state
// machine; Render writes the regions back. Rendering the output of Split is
// stable, so repeated merges with the same statements produce identical bytes.
package merge
