// Package registry backs up, restores, and garbage-collects images through
// the local backup registry.
//
// [Client] speaks the registry's manifest and tag HTTP API directly: tag
// resolution, deletion by digest, catalog and tag listing. Image bytes never
// move over this client; pushes and pulls go through the container engine,
// which already streams layers efficiently.
//
// [Monitor] is the self-healing layer: it checks the registry container
// before every operation and starts it when stopped, so a reboot never
// breaks backups. [Service] ties client, monitor, mover, and applied-state
// store together into the operations the CLI exposes, including the
// digest-resolving removal path and the mark-and-sweep prune.
package registry
