// Package vedictime implements the snapshot cache, throttle policy, and text
// extraction used to serve the clock shown on vedicstandardtime.com.
//
// A Service owns the single live Snapshot. Reads inside the throttle window are
// answered from memory; other reads are coalesced into one flight that drives
// the Renderer (reload when the snapshot is older than the refresh window, then
// read the rendered text) and runs Extract over the result.
package vedictime
