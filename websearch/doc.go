// Package websearch implements the online branch of the routing graph: a
// Provider abstraction, a DuckDuckGo provider that scrapes the HTML result
// page, and the Step that turns provider results into web evidence.
package websearch
