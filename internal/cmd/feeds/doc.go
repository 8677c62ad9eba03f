// Package feeds contains the Cobra commands of the feedstore CLI. Each command
// opens the data directory, runs one registry operation and closes it again.
package feeds
