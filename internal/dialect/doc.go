// Package dialect describes the directive syntax of the module files that are
// aggregated: which files count as modules, which are generated artifacts, and
// how import, export and part-of lines look.
//
// Directive detection is line based and never parses module source. A line
// carries a directive when, after trimming, it begins with the directive token
// followed by whitespace, a quote, a semicolon or the end of the line.
package dialect
