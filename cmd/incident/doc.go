// Package main hosts the incident CLI entrypoint and command graph.
//
// `incident serve` runs the HTTP daemon. The analyze and refine commands run
// the same executor and pipeline in-process for one-shot use, printing either
// rendered tables or the JSON result. The remaining commands cover policy
// inspection, configuration scaffolding, the audit log, and notification
// checks. Heavy lifting stays in the internal packages; commands here only
// resolve configuration and format output.
package main
