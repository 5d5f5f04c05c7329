// Package lakeconfig loads the lake connection settings
//
// Config carries the [aws] credential section and the [datalake] bucket
// section. Two providers produce it: FileProvider reads a sectioned INI file,
// EnvProvider reads LAKE_* environment variables. Both validate required keys
// at load time, so a bad source surfaces as a configuration failure before any
// ingest work starts.
package lakeconfig
