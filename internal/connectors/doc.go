// Package connectors holds the driven.NodeConnector implementations. Each
// subpackage turns one kind of data source into node snapshots and change
// events.
//
//   - filesystem: directories on the local disk, watched with fsnotify
package connectors
