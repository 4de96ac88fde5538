// Package model defines the AscendEX wire and storage types shared by
// the stream consumers, the REST client, and the recorder.
package model
