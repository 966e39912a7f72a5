// Package desktop exports a container's applications into the host desktop.
//
// The exporter reads .desktop entries out of a running container, rewrites
// them to launch through per-command alias scripts, copies the icons they
// reference, and installs everything under the user's XDG data directories.
// Every artifact carries the container name as a prefix, which makes
// removal a safe prefix sweep and keeps entries from different containers
// apart.
package desktop
